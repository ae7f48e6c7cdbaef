// Package resourcestest writes a small template bundle for tests.
package resourcestest

import (
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

// Files is the default bundle content.
var Files = map[string]string{
	"towns/haven.xdb":     `<Item><AdvMapTown><Name>HavenStarter</Name><Type>TOWN_HEAVEN</Type></AdvMapTown></Item>`,
	"towns/academy.xdb":   `<Item><AdvMapTown><Name>AcademyStarter</Name><Type>TOWN_ACADEMY</Type></AdvMapTown></Item>`,
	"artificer/ring.xdb":  `<Item><AdvMapArtifact><Name>ArtificerRing</Name></AdvMapArtifact></Item>`,
	"all_spells.xml":      `<Items><Item>SPELL_MAGIC_ARROW</Item><Item>SPELL_BLESS</Item></Items>`,
	"all_artifacts.xml":   `<Items><Item>ARTIFACT_SWORD</Item><Item>ARTIFACT_CROWN</Item></Items>`,
	"spells_KNIGHT.xml":   `<Items><Item>SPELL_BLESS</Item><Item>SPELL_DIVINE_STRENGTH</Item></Items>`,
	"spells_WARLOCK.xml":  `<Items></Items>`,
	"perk_swaps.ini":      "[HERO_SKILL_OLD_PERK]\nreplacement = HERO_SKILL_NEW_PERK\nprerequisite = HERO_SKILL_DARK_MAGIC\n",
	"MapScript.xdb":       `<Script><FileName href="MapScript.lua"/></Script>`,
	"MapScript.lua":       "function RacialBoostStart()\nend\n",
	"specialization_swaps.ini": "[HERO_SPEC_OLD]\nreplacement = HERO_SPEC_DARK_ACOLYTE\n" +
		"name = /Text/Spec/Acolyte/Name.txt\ndescription = /Text/Spec/Acolyte/Desc.txt\n" +
		"icon = /Textures/Spec/Acolyte.xdb#xpointer(/Texture)\n",
}

// New returns an in-memory filesystem holding Files minus the names in skip.
func New(t testing.TB, skip ...string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	Write(t, fs, "", skip...)
	return fs
}

// Write stores Files under dir on fs, minus the names in skip.
func Write(t testing.TB, fs billy.Filesystem, dir string, skip ...string) {
	t.Helper()
	omit := make(map[string]bool, len(skip))
	for _, s := range skip {
		omit[s] = true
	}
	for name, body := range Files {
		if omit[name] {
			continue
		}
		require.NoError(t, util.WriteFile(fs, fs.Join(dir, name), []byte(body), 0o644))
	}
}
