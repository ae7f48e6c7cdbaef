// Package recordstest provides an in-memory record source for tests.
package recordstest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"testing"
	"time"

	"compat-merger/core/archive/ziptest"
	"compat-merger/core/overlay"

	"github.com/go-git/go-billy/v5"
)

type file struct {
	entry overlay.Entry
	body  string
}

// Source is a fake overlay index. Later additions replace earlier ones.
type Source struct {
	files map[string]file
}

// New returns an empty source.
func New() *Source {
	return &Source{files: make(map[string]file)}
}

// Add stores body at p as if supplied by archive.
func (s *Source) Add(archive, p, body string) *Source {
	logical := overlay.Normalize(p)
	s.files[logical] = file{
		entry: overlay.Entry{LogicalPath: logical, TruePath: p, Archive: archive, Modified: time.Unix(0, 0)},
		body:  body,
	}
	return s
}

// Walk implements records.Source.
func (s *Source) Walk(prefix string, excludeSuffixes ...string) []overlay.Entry {
	target := strings.TrimPrefix(strings.ToLower(prefix), "/")
	if !strings.HasSuffix(target, "/") {
		target += "/"
	}
	var out []overlay.Entry
	for k, f := range s.files {
		if !strings.HasPrefix(k, target) || excludedArchive(f.entry.Archive, excludeSuffixes) {
			continue
		}
		out = append(out, f.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalPath < out[j].LogicalPath })
	return out
}

func excludedArchive(archive string, suffixes []string) bool {
	for _, sfx := range suffixes {
		if strings.HasSuffix(strings.ToLower(archive), strings.ToLower(sfx)) {
			return true
		}
	}
	return false
}

// GetFile implements records.Source.
func (s *Source) GetFile(_ context.Context, p string) ([]byte, bool) {
	f, ok := s.files[overlay.Normalize(p)]
	if !ok {
		return nil, false
	}
	return []byte(f.body), true
}

// ArchiveOf implements records.Source.
func (s *Source) ArchiveOf(p string) (string, bool) {
	f, ok := s.files[overlay.Normalize(p)]
	return f.entry.Archive, ok
}

// Install writes every archive of the source to fs as a real zip, so the
// same fixture can be scanned from an installation.
func (s *Source) Install(t testing.TB, fs billy.Filesystem) {
	t.Helper()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	byArchive := make(map[string][]ziptest.File)
	var archives []string
	for _, k := range keys {
		f := s.files[k]
		if _, ok := byArchive[f.entry.Archive]; !ok {
			archives = append(archives, f.entry.Archive)
		}
		byArchive[f.entry.Archive] = append(byArchive[f.entry.Archive], ziptest.File{Name: f.entry.TruePath, Body: f.body})
	}
	for _, a := range archives {
		ziptest.Write(t, fs, a, byArchive[a]...)
	}
}

// AddMap stores a map descriptor in dir pointing at map.xdb and the map itself.
func (s *Source) AddMap(archive, dir, mapXML string) *Source {
	s.Add(archive, dir+"/map-tag.xdb",
		`<AdvMapDescTag><AdvMapDesc href="map.xdb#xpointer(/AdvMapDesc)"/></AdvMapDescTag>`)
	return s.Add(archive, dir+"/map.xdb", mapXML)
}

// Creature describes one creature for AddCreatures.
type Creature struct {
	ID       string
	Town     string
	Tier     int
	Cost     int
	Upgrades []string
	// Unnamed leaves CreatureNameFileRef empty.
	Unnamed bool
}

// AddCreatures stores the creature reference table together with one
// creature record and one visual record per creature.
func (s *Source) AddCreatures(archive string, creatures ...Creature) *Source {
	var table strings.Builder
	table.WriteString("<Table_Creature_CreatureID>\n<objects>\n")
	for _, c := range creatures {
		rec := "/GameMechanics/Creature/" + c.ID + ".xdb"
		vis := "/GameMechanics/CreatureVisual/" + c.ID + ".xdb"
		fmt.Fprintf(&table, "<Item><ID>%s</ID><Obj href=\"%s#xpointer(/Creature)\"/></Item>\n", c.ID, rec)

		var ups strings.Builder
		for _, u := range c.Upgrades {
			fmt.Fprintf(&ups, "<Item>%s</Item>", u)
		}
		s.Add(archive, strings.TrimPrefix(rec, "/"), fmt.Sprintf(
			"<Creature><Cost><Wood>0</Wood><Gold>%d</Gold></Cost><CreatureTown>%s</CreatureTown>"+
				"<CreatureTier>%d</CreatureTier><Upgrades>%s</Upgrades>"+
				"<Visual href=\"%s#xpointer(/CreatureVisual)\"/></Creature>",
			c.Cost, c.Town, c.Tier, ups.String(), vis))

		name := "/Text/Game/Creatures/" + c.ID + "/Name.txt"
		if c.Unnamed {
			name = ""
		}
		s.Add(archive, strings.TrimPrefix(vis, "/"), fmt.Sprintf(
			"<CreatureVisual><CreatureNameFileRef href=\"%s\"/></CreatureVisual>", name))
	}
	table.WriteString("</objects>\n</Table_Creature_CreatureID>\n")
	return s.Add(archive, "GameMechanics/RefTables/Creatures.xdb", table.String())
}

// Hero describes one hero record for AddHero.
type Hero struct {
	InternalName   string
	Class          string
	Specialization string
	PrimarySkill   string
	Skills         []string
	Perks          []string
	Spells         []string
}

// XML renders the hero as an AdvMapHeroShared record.
func (h Hero) XML() string {
	var b strings.Builder
	b.WriteString("<AdvMapHeroShared>\n")
	fmt.Fprintf(&b, "<InternalName>%s</InternalName>\n", h.InternalName)
	fmt.Fprintf(&b, "<Class>%s</Class>\n", h.Class)
	fmt.Fprintf(&b, "<Specialization>%s</Specialization>\n", h.Specialization)
	b.WriteString("<SpecializationNameFileRef href=\"/Text/spec/name.txt\"/>\n")
	b.WriteString("<SpecializationDescFileRef href=\"/Text/spec/desc.txt\"/>\n")
	b.WriteString("<SpecializationIcon href=\"/Textures/spec.xdb#xpointer(/Texture)\"/>\n")
	fmt.Fprintf(&b, "<PrimarySkill><SkillID>%s</SkillID><Mastery>MASTERY_BASIC</Mastery></PrimarySkill>\n", h.PrimarySkill)
	b.WriteString("<Editable>\n<skills>\n")
	for _, s := range h.Skills {
		fmt.Fprintf(&b, "<Item><Mastery>MASTERY_BASIC</Mastery><SkillID>%s</SkillID></Item>\n", s)
	}
	b.WriteString("</skills>\n<perkIDs>\n")
	for _, p := range h.Perks {
		fmt.Fprintf(&b, "<Item>%s</Item>\n", p)
	}
	b.WriteString("</perkIDs>\n<spellIDs>\n")
	for _, s := range h.Spells {
		fmt.Fprintf(&b, "<Item>%s</Item>\n", s)
	}
	b.WriteString("</spellIDs>\n</Editable>\n</AdvMapHeroShared>\n")
	return b.String()
}

// AddHero stores a hero record under MapObjects.
func (s *Source) AddHero(archive string, h Hero) *Source {
	return s.Add(archive, path.Join("MapObjects", h.InternalName+".xdb"), h.XML())
}
