package catalog

import (
	"sort"
)

// Creature is one playable creature joined from its reference, record and
// visual entries.
type Creature struct {
	ID          string
	Cost        int
	Tier        int
	Town        string
	TownRank    int
	UpgradeSlot int
	DisplayRef  string
}

// UpgradeEdge links a base creature to its upgrades. Either upgrade may be empty.
type UpgradeEdge struct {
	Base     string
	Upgrade1 string
	Upgrade2 string
}

// Pair is one row of a projection.
type Pair struct {
	Key   string
	Value string
}

// Builder accumulates creatures during preload.
type Builder struct {
	creatures map[string]*Creature
	order     []string
	edges     []UpgradeEdge
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{creatures: make(map[string]*Creature)}
}

// Add registers a creature. Town is normalized and its rank derived; a
// repeated id replaces the earlier row.
func (b *Builder) Add(c Creature) {
	c.Town = NormalizeTown(c.Town)
	c.TownRank, _ = TownRank(c.Town)
	if _, ok := b.creatures[c.ID]; !ok {
		b.order = append(b.order, c.ID)
	}
	b.creatures[c.ID] = &c
}

// AddUpgrades records the upgrade ids listed by a base creature. Nothing is
// recorded when upgrades is empty.
func (b *Builder) AddUpgrades(base string, upgrades ...string) {
	if len(upgrades) == 0 {
		return
	}
	e := UpgradeEdge{Base: base, Upgrade1: upgrades[0]}
	if len(upgrades) > 1 {
		e.Upgrade2 = upgrades[1]
	}
	b.edges = append(b.edges, e)
}

// Build applies upgrade slots in edge order and freezes the catalog.
func (b *Builder) Build() *Catalog {
	for _, e := range b.edges {
		b.setSlot(e.Base, 0)
		b.setSlot(e.Upgrade1, 1)
		b.setSlot(e.Upgrade2, 2)
	}

	c := &Catalog{
		byID:  make(map[string]Creature, len(b.creatures)),
		edges: append([]UpgradeEdge(nil), b.edges...),
	}
	for _, id := range b.order {
		cr := *b.creatures[id]
		c.byID[id] = cr
		c.sorted = append(c.sorted, cr)
	}
	sort.Slice(c.sorted, func(i, j int) bool { return less(c.sorted[i], c.sorted[j]) })
	return c
}

func (b *Builder) setSlot(id string, slot int) {
	if cr, ok := b.creatures[id]; ok {
		cr.UpgradeSlot = slot
	}
}

// Catalog is the read-only creature dataset.
type Catalog struct {
	byID   map[string]Creature
	sorted []Creature
	edges  []UpgradeEdge
}

func less(a, b Creature) bool {
	if a.TownRank != b.TownRank {
		return a.TownRank < b.TownRank
	}
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	if a.UpgradeSlot != b.UpgradeSlot {
		return a.UpgradeSlot < b.UpgradeSlot
	}
	return a.ID < b.ID
}

// Len returns the number of creatures.
func (c *Catalog) Len() int {
	return len(c.sorted)
}

// Get returns a creature by id.
func (c *Catalog) Get(id string) (Creature, bool) {
	cr, ok := c.byID[id]
	return cr, ok
}

// Creatures returns every creature ordered by (town rank, tier, upgrade slot, id).
func (c *Catalog) Creatures() []Creature {
	return append([]Creature(nil), c.sorted...)
}

// Edges returns the upgrade edges in preload order.
func (c *Catalog) Edges() []UpgradeEdge {
	return append([]UpgradeEdge(nil), c.edges...)
}

// UpgradedToBase maps every upgraded creature in the catalog to its base,
// ordered by the upgraded creature's sort key.
func (c *Catalog) UpgradedToBase() []Pair {
	type row struct {
		upgraded Creature
		base     string
	}
	var rows []row
	for _, e := range c.edges {
		for _, up := range []string{e.Upgrade1, e.Upgrade2} {
			if cr, ok := c.byID[up]; ok {
				rows = append(rows, row{upgraded: cr, base: e.Base})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i].upgraded, rows[j].upgraded) })

	out := make([]Pair, 0, len(rows))
	for _, r := range rows {
		out = append(out, Pair{Key: r.upgraded.ID, Value: r.base})
	}
	return out
}

// BaseToUpgrade maps every base creature in the catalog to its first (slot 1)
// or second (slot 2) upgrade, ordered by the base creature's sort key. Bases
// without an upgrade in that slot are left out.
func (c *Catalog) BaseToUpgrade(slot int) []Pair {
	type row struct {
		base    Creature
		upgrade string
	}
	var rows []row
	for _, e := range c.edges {
		base, ok := c.byID[e.Base]
		if !ok {
			continue
		}
		up := e.Upgrade1
		if slot == 2 {
			up = e.Upgrade2
		}
		if up == "" {
			continue
		}
		rows = append(rows, row{base: base, upgrade: up})
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i].base, rows[j].base) })

	out := make([]Pair, 0, len(rows))
	for _, r := range rows {
		out = append(out, Pair{Key: r.base.ID, Value: r.upgrade})
	}
	return out
}
