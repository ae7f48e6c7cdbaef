package transform_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"compat-merger/core/archive/ziptest"
	"compat-merger/core/job"
	"compat-merger/core/overlay"
	"compat-merger/core/patch"
	"compat-merger/core/resources"
	"compat-merger/core/resources/resourcestest"
	"compat-merger/core/xdb"
	"compat-merger/feature/records"
	"compat-merger/feature/records/recordstest"
	"compat-merger/feature/transform"

	"github.com/beevik/etree"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memSink struct {
	names []string
	files map[string]string
	fail  error
}

func newSink() *memSink {
	return &memSink{files: make(map[string]string)}
}

func (s *memSink) WriteEntry(name string, data []byte) error {
	if s.fail != nil {
		return s.fail
	}
	if _, dup := s.files[name]; dup {
		return fmt.Errorf("entry written twice: %s", name)
	}
	s.names = append(s.names, name)
	s.files[name] = string(data)
	return nil
}

func (s *memSink) root(t *testing.T, name string) *etree.Element {
	t.Helper()
	body, ok := s.files[name]
	require.True(t, ok, "%s not written", name)
	return parseRoot(t, body)
}

const fullMap = `<AdvMapDesc>
<objects>
<Item><AdvMapTown><Name>HavenStarter</Name></AdvMapTown></Item>
</objects>
<AvailableHeroes><Item>Godric</Item></AvailableHeroes>
<spellIDs><Item>SPELL_BLESS</Item></spellIDs>
<artifactIDs><Item>ARTIFACT_SWORD</Item></artifactIDs>
<MapScript href=""/>
</AdvMapDesc>`

func fixture() *recordstest.Source {
	return recordstest.New().
		AddCreatures("data/a.pak",
			recordstest.Creature{ID: "CREATURE_WOLF", Town: "TOWN_NO_TYPE", Tier: 1, Cost: 200, Upgrades: []string{"CREATURE_DIRE_WOLF"}},
			recordstest.Creature{ID: "CREATURE_DIRE_WOLF", Town: "TOWN_NO_TYPE", Tier: 1, Cost: 400},
		).
		AddMap("data/a.pak", "Maps/Scenario/C1M1", fullMap).
		AddMap("data/a.pak", "Maps/Multiplayer/Duel", fullMap).
		AddMap("Maps/custom.h5m", "Maps/Multiplayer/Custom", fullMap).
		AddMap("Maps/custom.h5m", "Maps/Scenario/UserScenario", fullMap).
		AddHero("data/a.pak", recordstest.Hero{
			InternalName: "Isabel", Class: "HERO_CLASS_KNIGHT", Specialization: "HERO_SPEC_HAVEN",
			PrimarySkill: "HERO_SKILL_TRAINING", Spells: []string{"SPELL_BLESS"},
		}).
		AddHero("data/a.pak", recordstest.Hero{
			InternalName: "Raelag", Class: "HERO_CLASS_WARLOCK", Specialization: "HERO_SPEC_DARK_ACOLYTE",
			PrimarySkill: "HERO_SKILL_INVOCATION",
		}).
		AddHero("data/a.pak", recordstest.Hero{
			InternalName: "Shadya", Class: "HERO_CLASS_WARLOCK", Specialization: "HERO_SPEC_DARK_ACOLYTE",
			PrimarySkill: "HERO_SKILL_INVOCATION", Perks: []string{"HERO_SKILL_OLD_PERK"},
		}).
		AddHero("data/a.pak", recordstest.Hero{
			InternalName: "Sorin", Class: "HERO_CLASS_WARLOCK", Specialization: "HERO_SPEC_OLD",
			PrimarySkill: "HERO_SKILL_INVOCATION", Skills: []string{"HERO_SKILL_DARK_MAGIC"},
			Perks: []string{"HERO_SKILL_OLD_PERK"},
		})
}

func pipeline(t *testing.T, src records.Source, skip ...string) (*transform.Pipeline, *records.Store) {
	t.Helper()
	store, err := records.Preload(context.Background(), src, job.NewTracker(), zap.NewNop())
	require.NoError(t, err)
	bundle := resources.New(resourcestest.New(t, skip...), zap.NewNop())
	return transform.New(store, bundle, zap.NewNop()), store
}

func fullSelection() transform.Selection {
	return transform.Selection{
		Maps: map[records.Category]transform.Options{
			records.Scenario:   {AllSpellsArtifacts: true, RacialBoost: true},
			records.Customized: {AllHeroes: true},
		},
		BoostHeroes: true,
	}
}

func TestRun(t *testing.T) {
	p, store := pipeline(t, fixture())
	sink := newSink()
	tr := job.NewTracker()

	report, err := p.Run(context.Background(), tr, fullSelection(), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Maps/Scenario/C1M1/MapScript.xdb",
		"Maps/Scenario/C1M1/MapScript.lua",
		"Maps/Scenario/C1M1/map.xdb",
		"Maps/Scenario/UserScenario/map.xdb",
		"Maps/Multiplayer/Custom/map.xdb",
		"MapObjects/Isabel.xdb",
		"MapObjects/Sorin.xdb",
		"scripts/RacialAbilityBoost/RacialAbilityBoostDarkAcolytes.lua",
		transform.CreatureInfoScript,
	}, sink.names)

	assert.Equal(t, &transform.Report{
		MapsWritten:     3,
		MapScripts:      1,
		HeroesWritten:   2,
		HeroesUnchanged: 2,
		HeroScripts:     1,
		Creatures:       2,
	}, report)

	p2 := tr.Snapshot()
	assert.Equal(t, 8, p2.Total)
	assert.Equal(t, 8, p2.Done)

	t.Run("ScenarioMap", func(t *testing.T) {
		m := sink.root(t, "Maps/Scenario/C1M1/map.xdb")
		assert.Equal(t, []string{"SPELL_BLESS", "SPELL_MAGIC_ARROW"}, xdb.ItemTexts(m.SelectElement("spellIDs")))
		assert.Equal(t, []string{"ARTIFACT_SWORD"}, xdb.ItemTexts(m.SelectElement("artifactIDs")))
		assert.Equal(t, []string{"Godric"}, xdb.ItemTexts(m.SelectElement("AvailableHeroes")))
		assert.Equal(t, transform.MapScriptHref, xdb.Href(m.SelectElement("MapScript")))

		var names []string
		for _, item := range m.FindElements("objects/Item") {
			names = append(names, xdb.Text(item, "AdvMapTown/Name")+xdb.Text(item, "AdvMapArtifact/Name"))
		}
		assert.Equal(t, []string{"HavenStarter", "AcademyStarter", "ArtificerRing"}, names)
		assert.Equal(t, resourcestest.Files["MapScript.lua"], sink.files["Maps/Scenario/C1M1/MapScript.lua"])
	})

	t.Run("NoChangeKeepsHeroes", func(t *testing.T) {
		m := sink.root(t, "Maps/Scenario/UserScenario/map.xdb")
		assert.Equal(t, []string{"Godric"}, xdb.ItemTexts(m.SelectElement("AvailableHeroes")))
	})

	t.Run("CustomizedOpensHeroes", func(t *testing.T) {
		m := sink.root(t, "Maps/Multiplayer/Custom/map.xdb")
		assert.Empty(t, xdb.ItemTexts(m.SelectElement("AvailableHeroes")))
		assert.Equal(t, []string{"SPELL_BLESS"}, xdb.ItemTexts(m.SelectElement("spellIDs")))
	})

	t.Run("Heroes", func(t *testing.T) {
		isabel := sink.root(t, "MapObjects/Isabel.xdb")
		assert.Equal(t, []string{"SPELL_BLESS", "SPELL_DIVINE_STRENGTH"}, xdb.ItemTexts(isabel.FindElement("Editable/spellIDs")))

		sorin := sink.root(t, "MapObjects/Sorin.xdb")
		assert.Equal(t, []string{"HERO_SKILL_NEW_PERK"}, xdb.ItemTexts(sorin.FindElement("Editable/perkIDs")))
		assert.Equal(t, "HERO_SPEC_DARK_ACOLYTE", xdb.Text(sorin, "Specialization"))

		// Heroes are listed under the specialization they were preloaded with.
		assert.Equal(t, `DARK_ACOLYTE_HEROES = {"Raelag", "Shadya"}`,
			sink.files["scripts/RacialAbilityBoost/RacialAbilityBoostDarkAcolytes.lua"])
	})

	t.Run("StoreUntouched", func(t *testing.T) {
		doc, err := store.Maps(records.Scenario)[0].Tree()
		require.NoError(t, err)
		assert.Equal(t, "", xdb.Href(doc.Root().SelectElement("MapScript")))
		assert.Equal(t, "HERO_SPEC_OLD", xdb.Text(store.Heroes()[3].Doc.Root(), "Specialization"))
	})
}

func TestRun_Repeatable(t *testing.T) {
	p, _ := pipeline(t, fixture())

	first, second := newSink(), newSink()
	_, err := p.Run(context.Background(), job.NewTracker(), fullSelection(), first)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), job.NewTracker(), fullSelection(), second)
	require.NoError(t, err)

	assert.Equal(t, first.files, second.files)
}

func TestRun_NoOptions(t *testing.T) {
	p, _ := pipeline(t, fixture())
	sink := newSink()

	_, err := p.Run(context.Background(), job.NewTracker(), transform.Selection{
		Maps: map[records.Category]transform.Options{records.NoChange: {AllHeroes: true}},
	}, sink)
	assert.ErrorIs(t, err, transform.ErrNoOptionsSelected)
	assert.Empty(t, sink.names)
}

func TestRun_HeroesOnlyWhenRequested(t *testing.T) {
	p, _ := pipeline(t, fixture())
	sink := newSink()

	sel := fullSelection()
	sel.BoostHeroes = false
	report, err := p.Run(context.Background(), job.NewTracker(), sel, sink)
	require.NoError(t, err)

	assert.Zero(t, report.HeroesWritten+report.HeroesUnchanged)
	assert.NotContains(t, sink.files, "MapObjects/Isabel.xdb")
	assert.Contains(t, sink.files, transform.CreatureInfoScript)
}

func TestRun_CreatureTablesAlwaysWritten(t *testing.T) {
	p, _ := pipeline(t, fixture())
	sink := newSink()

	_, err := p.Run(context.Background(), job.NewTracker(), transform.Selection{
		Maps: map[records.Category]transform.Options{records.Multiplayer: {AllHeroes: true}},
	}, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maps/Multiplayer/Duel/map.xdb", transform.CreatureInfoScript}, sink.names)
}

func TestRun_Cancelled(t *testing.T) {
	p, _ := pipeline(t, fixture())
	sink := newSink()
	tr := job.NewTracker()
	tr.Cancel()

	_, err := p.Run(context.Background(), tr, fullSelection(), sink)
	require.ErrorIs(t, err, job.ErrCancelled)
	// Cancellation is honoured after the record in flight.
	assert.Equal(t, []string{
		"Maps/Scenario/C1M1/MapScript.xdb",
		"Maps/Scenario/C1M1/MapScript.lua",
		"Maps/Scenario/C1M1/map.xdb",
	}, sink.names)
}

func TestRun_SinkFailure(t *testing.T) {
	p, _ := pipeline(t, fixture())
	sink := newSink()
	sink.fail = errors.New("disk full")

	_, err := p.Run(context.Background(), job.NewTracker(), fullSelection(), sink)
	assert.EqualError(t, err, "disk full")
}

func TestRun_MissingTemplateDisablesOnlyItsRule(t *testing.T) {
	p, _ := pipeline(t, fixture(), "towns/haven.xdb", "towns/academy.xdb", "all_spells.xml")
	sink := newSink()

	_, err := p.Run(context.Background(), job.NewTracker(), fullSelection(), sink)
	require.NoError(t, err)

	m := sink.root(t, "Maps/Scenario/C1M1/map.xdb")
	assert.Equal(t, []string{"SPELL_BLESS"}, xdb.ItemTexts(m.SelectElement("spellIDs")))
	assert.Len(t, m.FindElements("objects/Item"), 2, "artificer still added")
	assert.Equal(t, transform.MapScriptHref, xdb.Href(m.SelectElement("MapScript")))
}

func TestRun_MissingListsStillEmptyOpenMaps(t *testing.T) {
	p, _ := pipeline(t, fixture(), "all_spells.xml", "all_artifacts.xml")
	sink := newSink()

	_, err := p.Run(context.Background(), job.NewTracker(), transform.Selection{
		Maps: map[records.Category]transform.Options{
			records.Scenario:    {AllSpellsArtifacts: true},
			records.Multiplayer: {AllSpellsArtifacts: true},
		},
	}, sink)
	require.NoError(t, err)

	duel := sink.root(t, "Maps/Multiplayer/Duel/map.xdb")
	assert.Empty(t, xdb.ItemTexts(duel.SelectElement("spellIDs")))
	assert.Empty(t, xdb.ItemTexts(duel.SelectElement("artifactIDs")))

	c1m1 := sink.root(t, "Maps/Scenario/C1M1/map.xdb")
	assert.Equal(t, []string{"SPELL_BLESS"}, xdb.ItemTexts(c1m1.SelectElement("spellIDs")))
}

// A user map descriptor pointing at an official map puts the same data file
// under two categories. It is written once, by the later category.
func TestRun_SharedMapPathWrittenOnce(t *testing.T) {
	src := fixture().Add("Maps/custom.h5m", "Maps/Scenario/Twin/map-tag.xdb",
		`<AdvMapDescTag><AdvMapDesc href="/Maps/Scenario/C1M1/map.xdb#xpointer(/AdvMapDesc)"/></AdvMapDescTag>`)
	p, store := pipeline(t, src)
	require.Len(t, store.Maps(records.Scenario), 1)
	require.Len(t, store.Maps(records.NoChange), 2)

	sel := transform.Selection{
		Maps: map[records.Category]transform.Options{
			records.Scenario:   {AllSpellsArtifacts: true},
			records.Customized: {AllHeroes: true},
		},
	}

	fs := memfs.New()
	w, err := patch.Begin(fs, "UserMODs/patch.h5u", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	tr := job.NewTracker()
	report, err := p.Run(context.Background(), tr, sel, w)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	assert.Equal(t, 1, report.MapsShared)

	sink := newSink()
	_, err = p.Run(context.Background(), job.NewTracker(), sel, sink)
	require.NoError(t, err)

	n := 0
	for _, name := range sink.names {
		if name == "Maps/Scenario/C1M1/map.xdb" {
			n++
		}
	}
	assert.Equal(t, 1, n)
	// The nochange copy wins, so the scenario union is not applied.
	m := sink.root(t, "Maps/Scenario/C1M1/map.xdb")
	assert.Equal(t, []string{"SPELL_BLESS"}, xdb.ItemTexts(m.SelectElement("spellIDs")))

	prog := tr.Snapshot()
	assert.Equal(t, prog.Total, prog.Done)
}

func TestRun_UnparsableMapIsSkipped(t *testing.T) {
	src := fixture().AddMap("data/a.pak", "Maps/Scenario/Broken", "<AdvMapDesc><open>")
	p, _ := pipeline(t, src)
	sink := newSink()

	report, err := p.Run(context.Background(), job.NewTracker(), fullSelection(), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MapsSkipped)
	assert.NotContains(t, sink.files, "Maps/Scenario/Broken/map.xdb")
}

// Two archives ship the same map; the newer copy must be the one patched.
func TestRun_NewestMapCopyIsPatched(t *testing.T) {
	t1 := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	descriptor := `<AdvMapDescTag><AdvMapDesc href="data.xdb#xpointer(/AdvMapDesc)"/></AdvMapDescTag>`
	mapA := `<AdvMapDesc><spellIDs><Item>SPELL_BLESS</Item></spellIDs><artifactIDs><Item>Sword</Item></artifactIDs></AdvMapDesc>`
	mapB := `<AdvMapDesc><spellIDs><Item>SPELL_BLESS</Item></spellIDs><artifactIDs><Item>Sword</Item><Item>Ring</Item></artifactIDs></AdvMapDesc>`

	tests := []struct {
		cat           records.Category
		dir           string
		wantArtifacts []string
	}{
		{records.Scenario, "Maps/Scenario/Map1", []string{"Sword", "Ring"}},
		{records.SingleMissions, "Maps/SingleMissions/Map1", []string{"Sword", "Ring", "ARTIFACT_SWORD", "ARTIFACT_CROWN"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			fs := memfs.New()
			// The newer archive sits in the earlier root.
			ziptest.Write(t, fs, "data/b.pak",
				ziptest.File{Name: tt.dir + "/map-tag.xdb", Body: descriptor, Modified: t2},
				ziptest.File{Name: tt.dir + "/data.xdb", Body: mapB, Modified: t2},
				ziptest.File{Name: "GameMechanics/RefTables/Creatures.xdb", Body: "<Table><objects/></Table>"},
			)
			ziptest.Write(t, fs, "UserMods/a.h5u",
				ziptest.File{Name: tt.dir + "/map-tag.xdb", Body: descriptor, Modified: t1},
				ziptest.File{Name: tt.dir + "/data.xdb", Body: mapA, Modified: t1},
			)

			idx, err := overlay.Build(context.Background(), fs, overlay.Options{})
			require.NoError(t, err)
			defer idx.Close()

			p, _ := pipeline(t, idx)
			sink := newSink()
			_, err = p.Run(context.Background(), job.NewTracker(), transform.Selection{
				Maps: map[records.Category]transform.Options{tt.cat: {AllSpellsArtifacts: true}},
			}, sink)
			require.NoError(t, err)

			m := sink.root(t, tt.dir+"/data.xdb")
			assert.Equal(t, tt.wantArtifacts, xdb.ItemTexts(m.SelectElement("artifactIDs")))
			assert.Equal(t, []string{"SPELL_BLESS", "SPELL_MAGIC_ARROW"}, xdb.ItemTexts(m.SelectElement("spellIDs")))
		})
	}
}

func TestSelection(t *testing.T) {
	sel := transform.Selection{Maps: map[records.Category]transform.Options{
		records.Customized: {RacialBoost: true},
		records.NoChange:   {AllHeroes: true},
	}}

	e := sel.Effective()
	assert.Equal(t, transform.Options{RacialBoost: true}, e.Maps[records.NoChange])
	assert.Equal(t, []records.Category{records.NoChange, records.Customized}, e.Categories())
	assert.True(t, e.RacialBoost())
	assert.False(t, e.HeroStage())
	assert.NoError(t, sel.Validate())

	_, store := pipeline(t, fixture())
	// Two customized/nochange maps plus the creature tables.
	assert.Equal(t, 3, sel.Total(store))
	sel.BoostHeroes = true
	assert.Equal(t, 7, sel.Total(store))
}

func TestOptions(t *testing.T) {
	var o transform.Options
	assert.False(t, o.Any())
	require.NoError(t, o.Enable("Racial_Boost"))
	assert.True(t, o.Any())
	assert.Equal(t, []transform.Field{
		{Name: transform.OptionAllHeroes},
		{Name: transform.OptionAllSpellsArtifacts},
		{Name: transform.OptionRacialBoost, Enabled: true},
	}, o.Fields())

	require.NoError(t, o.Enable("all"))
	assert.Equal(t, transform.Options{AllHeroes: true, AllSpellsArtifacts: true, RacialBoost: true}, o)
	assert.Error(t, o.Enable("everything"))
}

func TestSelection_Canonical(t *testing.T) {
	sel, err := transform.Selection{Maps: map[records.Category]transform.Options{
		"Scenario": {AllHeroes: true},
		"scenario": {RacialBoost: true},
	}, BoostHeroes: true}.Canonical()
	require.NoError(t, err)
	assert.Equal(t, map[records.Category]transform.Options{
		records.Scenario: {AllHeroes: true, RacialBoost: true},
	}, sel.Maps)
	assert.True(t, sel.BoostHeroes)

	_, err = transform.Selection{Maps: map[records.Category]transform.Options{"campaign": {}}}.Canonical()
	assert.EqualError(t, err, `unknown map category "campaign"`)
}
