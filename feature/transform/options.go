package transform

import (
	"errors"
	"fmt"
	"strings"

	"compat-merger/feature/records"
)

// ErrNoOptionsSelected is returned when a selection enables nothing.
var ErrNoOptionsSelected = errors.New("no options selected")

// Option names, as accepted by Options.Enable and reported by Options.Fields.
const (
	OptionAllHeroes          = "all_heroes"
	OptionAllSpellsArtifacts = "all_spells_artifacts"
	OptionRacialBoost        = "racial_boost"
)

// Options is the set of compatibility rules enabled for one map category.
type Options struct {
	AllHeroes          bool `json:"all_heroes"`
	AllSpellsArtifacts bool `json:"all_spells_artifacts"`
	RacialBoost        bool `json:"racial_boost"`
}

// Field is one named option.
type Field struct {
	Name    string
	Enabled bool
}

// Fields returns the options in display order.
func (o Options) Fields() []Field {
	return []Field{
		{OptionAllHeroes, o.AllHeroes},
		{OptionAllSpellsArtifacts, o.AllSpellsArtifacts},
		{OptionRacialBoost, o.RacialBoost},
	}
}

// Any reports whether at least one option is enabled.
func (o Options) Any() bool {
	for _, f := range o.Fields() {
		if f.Enabled {
			return true
		}
	}
	return false
}

// Enable turns on the option called name. "all" enables every option.
func (o *Options) Enable(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case OptionAllHeroes:
		o.AllHeroes = true
	case OptionAllSpellsArtifacts:
		o.AllSpellsArtifacts = true
	case OptionRacialBoost:
		o.RacialBoost = true
	case "all":
		*o = Options{AllHeroes: true, AllSpellsArtifacts: true, RacialBoost: true}
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	return nil
}

// Selection is the full set of choices for one generation run.
type Selection struct {
	Maps map[records.Category]Options `json:"maps"`
	// BoostHeroes applies the racial boost to existing hero records.
	BoostHeroes bool `json:"boost_heroes"`
}

// Canonical rewrites category keys given in any case to their canonical
// names. It fails on an unknown category.
func (s Selection) Canonical() (Selection, error) {
	out := Selection{Maps: make(map[records.Category]Options, len(s.Maps)), BoostHeroes: s.BoostHeroes}
	for k, v := range s.Maps {
		c, err := records.ParseCategory(string(k))
		if err != nil {
			return Selection{}, err
		}
		prev := out.Maps[c]
		out.Maps[c] = Options{
			AllHeroes:          prev.AllHeroes || v.AllHeroes,
			AllSpellsArtifacts: prev.AllSpellsArtifacts || v.AllSpellsArtifacts,
			RacialBoost:        prev.RacialBoost || v.RacialBoost,
		}
	}
	return out, nil
}

// Validate fails with ErrNoOptionsSelected when no category enables anything.
// Options given for nochange are ignored since that bucket follows customized.
func (s Selection) Validate() error {
	for _, o := range s.Effective().Maps {
		if o.Any() {
			return nil
		}
	}
	return ErrNoOptionsSelected
}

// Effective returns the selection the pipeline runs. The nochange bucket
// always follows customized.
func (s Selection) Effective() Selection {
	out := Selection{Maps: make(map[records.Category]Options, len(s.Maps)+1), BoostHeroes: s.BoostHeroes}
	for k, v := range s.Maps {
		out.Maps[k] = v
	}
	out.Maps[records.NoChange] = s.Maps[records.Customized]
	return out
}

// RacialBoost reports whether any category enables the racial boost.
func (s Selection) RacialBoost() bool {
	for _, o := range s.Maps {
		if o.RacialBoost {
			return true
		}
	}
	return false
}

// HeroStage reports whether hero records are patched.
func (s Selection) HeroStage() bool {
	return s.BoostHeroes && s.RacialBoost()
}

// Categories returns the categories with at least one option, in display order.
func (s Selection) Categories() []records.Category {
	var out []records.Category
	for _, c := range records.Categories() {
		if s.Maps[c].Any() {
			out = append(out, c)
		}
	}
	return out
}

// Total returns the number of progress units a run of the effective
// selection takes: one per map, one per hero when heroes are patched and one
// for the creature tables.
func (s Selection) Total(store *records.Store) int {
	e := s.Effective()
	total := store.MapCount(e.Categories()...) + 1
	if e.HeroStage() {
		total += len(store.Heroes())
	}
	return total
}
