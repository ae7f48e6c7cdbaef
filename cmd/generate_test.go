package cmd

import (
	"testing"

	"compat-merger/feature/records"
	"compat-merger/feature/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	sel, err := parseSelection([]string{"Scenario=all_heroes,racial_boost", "customized=all_spells_artifacts"}, "", true)
	require.NoError(t, err)
	assert.Equal(t, map[records.Category]transform.Options{
		records.Scenario:   {AllHeroes: true, RacialBoost: true},
		records.Customized: {AllSpellsArtifacts: true},
	}, sel.Maps)
	assert.True(t, sel.BoostHeroes)
}

func TestParseSelection_PresetIsExtended(t *testing.T) {
	sel, err := parseSelection([]string{"customized=racial_boost"}, "official", false)
	require.NoError(t, err)

	all := transform.Options{AllHeroes: true, AllSpellsArtifacts: true, RacialBoost: true}
	assert.Equal(t, all, sel.Maps[records.Scenario])
	assert.Equal(t, all, sel.Maps[records.Multiplayer])
	assert.Equal(t, transform.Options{RacialBoost: true}, sel.Maps[records.Customized])
}

func TestParseSelection_Errors(t *testing.T) {
	tests := []struct {
		name   string
		specs  []string
		preset string
		want   string
	}{
		{"MissingEquals", []string{"scenario"}, "", `invalid category "scenario"`},
		{"UnknownCategory", []string{"campaign=all"}, "", `unknown map category "campaign"`},
		{"UnknownOption", []string{"scenario=everything"}, "", `category scenario: unknown option "everything"`},
		{"UnknownPreset", nil, "most", `unknown preset "most"`},
		{"Nothing", nil, "", "no options selected"},
		{"OnlyNoChange", []string{"nochange=all"}, "", "no options selected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSelection(tt.specs, tt.preset, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
