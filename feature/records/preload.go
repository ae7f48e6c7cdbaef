package records

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"compat-merger/core/job"
	"compat-merger/core/overlay"
	"compat-merger/core/xdb"
	"compat-merger/feature/catalog"

	"go.uber.org/zap"
)

// Well-known paths inside the game's virtual filesystem.
const (
	DescriptorName = "map-tag.xdb"
	HeroesDir      = "MapObjects/"
	CreatureTable  = "GameMechanics/RefTables/Creatures.xdb"

	AllHeroesMarker          = "TTBerein/TTBereinAllHeroes.chk"
	AllSpellsArtifactsMarker = "TTBerein/TTBereinAllSpellsArtefacts.chk"
	RacialBoostMarker        = "TTBerein/TTBereinRacialAbilityBoost.chk"
)

var heroTag = []byte("<AdvMapHeroShared")

// Source is the read side of an overlay index.
type Source interface {
	Walk(prefix string, excludeSuffixes ...string) []overlay.Entry
	GetFile(ctx context.Context, p string) ([]byte, bool)
	ArchiveOf(p string) (string, bool)
}

// Preload reads every record a run needs into memory. Unreadable maps and
// heroes are logged and skipped; a missing creature table fails the preload.
func Preload(ctx context.Context, src Source, tracker *job.Tracker, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &preloader{ctx: ctx, src: src, tracker: tracker, log: logger}
	tracker.SetTotal(4)

	s := &Store{}
	var err error

	if s.maps, err = p.maps(); err != nil {
		return nil, err
	}
	tracker.Advance(1)

	if s.heroes, err = p.heroes(); err != nil {
		return nil, err
	}
	tracker.Advance(1)

	if s.catalog, err = p.creatures(); err != nil {
		return nil, err
	}
	tracker.Advance(1)

	s.mods = p.markers()
	tracker.Advance(1)

	return s, nil
}

type preloader struct {
	ctx     context.Context
	src     Source
	tracker *job.Tracker
	log     *zap.Logger
}

func (p *preloader) maps() (map[Category][]*MapRecord, error) {
	p.tracker.SetStage("Preloading maps")
	start := time.Now()

	byCat := make(map[Category]map[string]*MapRecord)
	for _, j := range MapJobs() {
		if err := p.tracker.Checkpoint(p.ctx); err != nil {
			return nil, err
		}
		if byCat[j.Category] == nil {
			byCat[j.Category] = make(map[string]*MapRecord)
		}
		for _, e := range p.src.Walk(j.Prefix, j.Exclude...) {
			if path.Base(e.LogicalPath) != DescriptorName {
				continue
			}
			rec, ok := p.mapRecord(j.Category, e)
			if !ok {
				continue
			}
			byCat[j.Category][overlay.Normalize(rec.Path)] = rec
		}
	}

	out := make(map[Category][]*MapRecord, len(byCat))
	total := 0
	for cat, recs := range byCat {
		out[cat] = sortedMaps(recs)
		total += len(recs)
	}
	p.log.Info("Maps preloaded", zap.Int("maps", total), zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// mapRecord follows a map-tag.xdb descriptor to the map file it names.
func (p *preloader) mapRecord(cat Category, desc overlay.Entry) (*MapRecord, bool) {
	data, ok := p.src.GetFile(p.ctx, desc.LogicalPath)
	if !ok {
		return nil, false
	}
	doc, err := xdb.Parse(data)
	if err != nil {
		p.log.Warn("Skipping malformed map descriptor",
			zap.String("path", desc.TruePath),
			zap.String("archive", desc.Archive),
			zap.Error(err))
		return nil, false
	}
	href := xdb.HrefPath(xdb.Href(doc.Root().SelectElement("AdvMapDesc")))
	if href == "" {
		p.log.Warn("Map descriptor has no map reference",
			zap.String("path", desc.TruePath),
			zap.String("archive", desc.Archive))
		return nil, false
	}

	mapPath := path.Join(path.Dir(desc.TruePath), href)
	if strings.HasPrefix(href, "/") {
		mapPath = strings.TrimPrefix(href, "/")
	}

	mapData, ok := p.src.GetFile(p.ctx, mapPath)
	if !ok {
		p.log.Warn("Cannot read map referenced by descriptor",
			zap.String("map", mapPath),
			zap.String("descriptor", desc.TruePath),
			zap.String("archive", desc.Archive))
		return nil, false
	}
	archive, _ := p.src.ArchiveOf(mapPath)
	p.log.Debug("Map loaded", zap.String("category", string(cat)), zap.String("map", mapPath))
	return NewMapRecord(mapPath, cat, archive, mapData), true
}

func (p *preloader) heroes() ([]*HeroRecord, error) {
	p.tracker.SetStage("Preloading heroes")
	start := time.Now()

	var heroes []*HeroRecord
	for _, e := range p.src.Walk(HeroesDir) {
		if err := p.tracker.Checkpoint(p.ctx); err != nil {
			return nil, err
		}
		if !strings.HasSuffix(e.LogicalPath, ".xdb") {
			continue
		}
		data, ok := p.src.GetFile(p.ctx, e.LogicalPath)
		if !ok || !bytes.Contains(data, heroTag) {
			continue
		}
		doc, err := xdb.Parse(data)
		if err != nil {
			p.log.Warn("Skipping malformed hero record",
				zap.String("path", e.TruePath),
				zap.String("archive", e.Archive),
				zap.Error(err))
			continue
		}
		if doc.Root().Tag != "AdvMapHeroShared" {
			continue
		}
		heroes = append(heroes, &HeroRecord{Path: e.TruePath, Archive: e.Archive, Doc: doc})
	}

	p.log.Info("Heroes preloaded", zap.Int("heroes", len(heroes)), zap.Duration("elapsed", time.Since(start)))
	return heroes, nil
}

// creatures joins the reference table with each creature record and its
// visual record. Creatures without a display name are not playable and are
// left out.
func (p *preloader) creatures() (*catalog.Catalog, error) {
	p.tracker.SetStage("Preloading creatures")
	start := time.Now()

	data, ok := p.src.GetFile(p.ctx, CreatureTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredFile, CreatureTable)
	}
	table, err := xdb.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CreatureTable, err)
	}

	b := catalog.NewBuilder()
	objects := table.Root().SelectElement("objects")
	if objects == nil {
		return nil, fmt.Errorf("%w: %s has no objects", ErrMissingRequiredFile, CreatureTable)
	}

	added := 0
	for _, item := range objects.ChildElements() {
		if err := p.tracker.Checkpoint(p.ctx); err != nil {
			return nil, err
		}
		id := strings.TrimSpace(xdb.Text(item, "ID"))
		obj := refPath(xdb.Href(item.SelectElement("Obj")))
		if id == "" || obj == "" {
			continue
		}

		c, upgrades, ok := p.creature(id, obj)
		if !ok {
			continue
		}
		b.Add(c)
		b.AddUpgrades(id, upgrades...)
		added++
	}

	p.log.Info("Creatures preloaded", zap.Int("creatures", added), zap.Duration("elapsed", time.Since(start)))
	return b.Build(), nil
}

func (p *preloader) creature(id, obj string) (catalog.Creature, []string, bool) {
	skip := func(reason string, fields ...zap.Field) (catalog.Creature, []string, bool) {
		p.log.Warn("Skipping creature", append([]zap.Field{zap.String("id", id), zap.String("reason", reason)}, fields...)...)
		return catalog.Creature{}, nil, false
	}

	data, ok := p.src.GetFile(p.ctx, obj)
	if !ok {
		return skip("record unreadable", zap.String("path", obj))
	}
	doc, err := xdb.Parse(data)
	if err != nil {
		return skip("record malformed", zap.String("path", obj), zap.Error(err))
	}
	root := doc.Root()

	cost, err := strconv.Atoi(strings.TrimSpace(xdb.Text(root, "Cost/Gold")))
	if err != nil {
		return skip("invalid cost", zap.Error(err))
	}
	tier, err := strconv.Atoi(strings.TrimSpace(xdb.Text(root, "CreatureTier")))
	if err != nil {
		return skip("invalid tier", zap.Error(err))
	}

	visual := refPath(xdb.Href(root.SelectElement("Visual")))
	vdata, ok := p.src.GetFile(p.ctx, visual)
	if !ok {
		return skip("visual unreadable", zap.String("path", visual))
	}
	vdoc, err := xdb.Parse(vdata)
	if err != nil {
		return skip("visual malformed", zap.String("path", visual), zap.Error(err))
	}
	nameRef := xdb.Href(vdoc.Root().SelectElement("CreatureNameFileRef"))
	if nameRef == "" {
		return catalog.Creature{}, nil, false
	}

	var upgrades []string
	for _, t := range xdb.ItemTexts(root.SelectElement("Upgrades")) {
		if t = strings.TrimSpace(t); t != "" {
			upgrades = append(upgrades, t)
		}
	}

	return catalog.Creature{
		ID:         id,
		Cost:       cost,
		Tier:       tier,
		Town:       strings.TrimSpace(xdb.Text(root, "CreatureTown")),
		DisplayRef: nameRef,
	}, upgrades, true
}

func (p *preloader) markers() ModStatus {
	p.tracker.SetStage("Detecting mods")
	check := func(name, marker string) Marker {
		archive, ok := p.src.ArchiveOf(marker)
		if !ok {
			p.log.Info("Mod not installed", zap.String("mod", name))
			return Marker{}
		}
		p.log.Info("Mod installed", zap.String("mod", name), zap.String("archive", path.Base(archive)))
		return Marker{Present: true, Archive: archive}
	}
	return ModStatus{
		AllHeroes:          check("all heroes", AllHeroesMarker),
		AllSpellsArtifacts: check("all spells and artifacts", AllSpellsArtifactsMarker),
		RacialBoost:        check("racial ability boost", RacialBoostMarker),
	}
}

// refPath turns "/GameMechanics/Creature/X.xdb#xpointer(/Creature)" into a
// lookup path.
func refPath(href string) string {
	return strings.TrimPrefix(xdb.HrefPath(href), "/")
}
