package records

import (
	"fmt"
	"strings"
)

// Category groups maps that share one set of transformation options.
type Category string

const (
	Scenario       Category = "scenario"
	SingleMissions Category = "singlemissions"
	Multiplayer    Category = "multiplayer"
	NoChange       Category = "nochange"
	Customized     Category = "customized"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Scenario, SingleMissions, Multiplayer, NoChange, Customized}
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown map category %q", s)
}

// MapJob selects the map descriptors of one category under Prefix, ignoring
// entries supplied by archives ending in one of Exclude.
type MapJob struct {
	Category Category
	Prefix   string
	Exclude  []string
}

// MapJobs returns the preload jobs in the order they run. Official campaign
// maps live in .pak/.h5u archives; anything from .h5m is a user map.
func MapJobs() []MapJob {
	official := []string{".h5m"}
	custom := []string{".h5u", ".pak"}
	return []MapJob{
		{Scenario, "maps/scenario", official},
		{SingleMissions, "maps/singlemissions", official},
		{Multiplayer, "maps/multiplayer", official},
		{NoChange, "maps/scenario", custom},
		{NoChange, "maps/singlemissions", custom},
		{Customized, "maps/multiplayer", custom},
		{Customized, "maps/rmg", custom},
	}
}
