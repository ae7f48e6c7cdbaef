package transform

import (
	"compat-merger/core/resources"
	"compat-merger/core/xdb"
	"compat-merger/feature/records"

	"github.com/beevik/etree"
)

// MapScriptHref points a map at the bundled map script installed next to it.
const MapScriptHref = resources.MapScriptXDB + "#xpointer(/Script)"

// EnableAllHeroes empties the map's AvailableHeroes list. Maps in the
// nochange category keep their list.
func EnableAllHeroes(m *etree.Element, cat records.Category) bool {
	if cat == records.NoChange {
		return false
	}
	return xdb.EmptyChild(m, "AvailableHeroes")
}

// EnableAllSpellsArtifacts opens the map's spell and artifact lists.
// Campaign categories merge the full lists into non-empty lists; other
// categories empty them, which the game reads as "everything". Scenario maps
// keep their artifact list and nochange maps are never touched. It returns
// the number of items added plus the number of lists emptied.
func EnableAllSpellsArtifacts(m *etree.Element, cat records.Category, spells, artifacts []string) int {
	if cat == records.NoChange {
		return 0
	}

	changes := 0
	for _, list := range []struct {
		tag   string
		items []string
	}{
		{"spellIDs", spells},
		{"artifactIDs", artifacts},
	} {
		if cat == records.Scenario && list.tag == "artifactIDs" {
			continue
		}
		switch cat {
		case records.Scenario, records.SingleMissions:
			changes += xdb.UnionItems(m.SelectElement(list.tag), list.items, true)
		default:
			if xdb.EmptyChild(m, list.tag) {
				changes++
			}
		}
	}
	return changes
}

type mapObjects struct {
	objects   *etree.Element
	towns     map[string]struct{}
	artifacts map[string]struct{}
}

func scanObjects(m *etree.Element) mapObjects {
	mo := mapObjects{
		objects:   m.SelectElement("objects"),
		towns:     make(map[string]struct{}),
		artifacts: make(map[string]struct{}),
	}
	if mo.objects == nil {
		return mo
	}
	for _, item := range mo.objects.SelectElements("Item") {
		if town := item.SelectElement("AdvMapTown"); town != nil {
			mo.towns[xdb.Text(town, "Name")] = struct{}{}
			continue
		}
		if art := item.SelectElement("AdvMapArtifact"); art != nil {
			if name := xdb.Text(art, "Name"); name != "" {
				mo.artifacts[name] = struct{}{}
			}
		}
	}
	return mo
}

// AddMissingTowns appends a copy of every starter town the map's object
// list does not name yet and returns how many were added.
func AddMissingTowns(m *etree.Element, towns []resources.Fragment) int {
	mo := scanObjects(m)
	return appendMissing(mo.objects, mo.towns, towns)
}

// AddMissingArtificer appends a copy of every artificer artifact the map's
// object list does not name yet and returns how many were added.
func AddMissingArtificer(m *etree.Element, artifacts []resources.Fragment) int {
	mo := scanObjects(m)
	return appendMissing(mo.objects, mo.artifacts, artifacts)
}

func appendMissing(objects *etree.Element, have map[string]struct{}, frags []resources.Fragment) int {
	if objects == nil {
		return 0
	}
	added := 0
	for _, f := range frags {
		if _, ok := have[f.Name]; ok {
			continue
		}
		objects.AddChild(f.Element.Copy())
		have[f.Name] = struct{}{}
		added++
	}
	return added
}

// HookMapScript points an unset MapScript reference at the bundled script.
// It reports whether the map now needs the script pair next to it.
func HookMapScript(m *etree.Element) bool {
	el := m.SelectElement("MapScript")
	if el == nil || xdb.Href(el) != "" {
		return false
	}
	el.CreateAttr("href", MapScriptHref)
	return true
}
