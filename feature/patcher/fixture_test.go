package patcher

import (
	"testing"
	"time"

	"compat-merger/core/patch"
	"compat-merger/core/resources"
	"compat-merger/core/resources/resourcestest"
	"compat-merger/core/storage"
	"compat-merger/core/storage/mocks"
	"compat-merger/feature/records"
	"compat-merger/feature/records/recordstest"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"go.uber.org/zap"
)

var generatedAt = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

const mapXML = `<AdvMapDesc>
<objects/>
<AvailableHeroes><Item>Godric</Item></AvailableHeroes>
<spellIDs><Item>SPELL_BLESS</Item></spellIDs>
<artifactIDs><Item>ARTIFACT_SWORD</Item></artifactIDs>
<MapScript href=""/>
</AdvMapDesc>`

func installation(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	recordstest.New().
		AddCreatures("data/base.pak",
			recordstest.Creature{ID: "CREATURE_PEASANT", Town: "TOWN_HEAVEN", Tier: 1, Cost: 15, Upgrades: []string{"CREATURE_MILITIAMAN"}},
			recordstest.Creature{ID: "CREATURE_MILITIAMAN", Town: "TOWN_HEAVEN", Tier: 1, Cost: 25},
		).
		AddMap("data/base.pak", "Maps/Scenario/C1M1", mapXML).
		AddMap("data/base.pak", "Maps/SingleMissions/SM1", mapXML).
		AddMap("Maps/duel.h5m", "Maps/Multiplayer/Duel", mapXML).
		AddHero("data/base.pak", recordstest.Hero{
			InternalName: "Isabel", Class: "HERO_CLASS_KNIGHT", Specialization: "HERO_SPEC_HAVEN",
			PrimarySkill: "HERO_SKILL_TRAINING",
		}).
		Add("UserMODs/boost.h5u", records.RacialBoostMarker, "").
		Install(t, fs)
	return fs
}

func newTestService(t *testing.T, fs billy.Filesystem, client storage.Client, logger *zap.Logger) *Service {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := NewService(Deps{
		Install: fs,
		Bundle:  resources.New(resourcestest.New(t), logger),
		Patch:   patch.Config{Dir: "UserMODs", FileName: "TTBereinMergedPatch.h5u"},
		Storage: storage.Config{Bucket: "patches", Prefix: "h5"},
		Client:  client,
		Logger:  logger,
	})
	svc.now = func() time.Time { return generatedAt }
	return svc
}

func mockStorage() *mocks.Client {
	return new(mocks.Client)
}
