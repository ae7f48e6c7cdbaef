package transform

import (
	"sort"
	"strings"

	"compat-merger/core/luascript"
	"compat-merger/core/resources"
	"compat-merger/core/xdb"

	"github.com/beevik/etree"
)

// SpecializationScript is a generated Lua file listing the heroes that hold
// one specialization.
type SpecializationScript struct {
	Specialization string
	Path           string
	Variable       string
}

// SpecializationScripts returns the specializations whose heroes are listed
// for the racial boost scripts.
func SpecializationScripts() []SpecializationScript {
	return []SpecializationScript{
		{"HERO_SPEC_DARK_ACOLYTE", "scripts/RacialAbilityBoost/RacialAbilityBoostDarkAcolytes.lua", "DARK_ACOLYTE_HEROES"},
		{"HERO_SPEC_BORDERGUARD", "scripts/RacialAbilityBoost/RacialAbilityBoostBorderGuards.lua", "BORDERGUARD_HEROES"},
		{"HERO_SPEC_SUZERAIN", "scripts/RacialAbilityBoost/RacialAbilityBoostDarkSuzerains.lua", "SUZERAIN_HEROES"},
	}
}

// UnionClassSpells adds the class lessons missing from the hero's spell list.
func UnionClassSpells(h *etree.Element, spells []string) int {
	return xdb.UnionItems(h.FindElement("Editable/spellIDs"), spells, false)
}

// heroSkills returns the primary skill and every editable skill of a hero.
func heroSkills(h *etree.Element) map[string]struct{} {
	skills := make(map[string]struct{})
	if primary := h.SelectElement("PrimarySkill"); primary != nil {
		for _, id := range primary.SelectElements("SkillID") {
			skills[id.Text()] = struct{}{}
		}
	}
	if list := h.FindElement("Editable/skills"); list != nil {
		for _, item := range list.ChildElements() {
			skills[xdb.Text(item, "SkillID")] = struct{}{}
		}
	}
	return skills
}

// SwapPerks replaces every perk that has a swap rule whose prerequisite
// skill the hero holds. It returns the number of perks replaced.
func SwapPerks(h *etree.Element, swaps map[string]resources.PerkSwap) int {
	perks := h.FindElement("Editable/perkIDs")
	if perks == nil || len(swaps) == 0 {
		return 0
	}
	skills := heroSkills(h)

	swapped := 0
	for _, perk := range perks.ChildElements() {
		swap, ok := swaps[perk.Text()]
		if !ok {
			continue
		}
		if _, held := skills[swap.Prerequisite]; !held {
			continue
		}
		perk.SetText(swap.Replacement)
		swapped++
	}
	return swapped
}

// SwapSpecialization replaces the hero's specialization and its name,
// description and icon references when a swap rule exists.
func SwapSpecialization(h *etree.Element, swaps map[string]resources.SpecializationSwap) bool {
	spec := h.SelectElement("Specialization")
	if spec == nil {
		return false
	}
	swap, ok := swaps[spec.Text()]
	if !ok {
		return false
	}
	spec.SetText(swap.Replacement)
	setHref(h, "SpecializationNameFileRef", swap.NameRef)
	setHref(h, "SpecializationDescFileRef", swap.DescRef)
	setHref(h, "SpecializationIcon", swap.Icon)
	return true
}

func setHref(h *etree.Element, tag, href string) {
	el := h.SelectElement(tag)
	if el == nil {
		el = h.CreateElement(tag)
	}
	el.CreateAttr("href", href)
}

// SpecializationLua renders `VAR = {"a", "b"}` with names sorted.
func SpecializationLua(variable string, names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, luascript.QuoteString(n))
	}
	sort.Strings(quoted)
	return variable + " = {" + strings.Join(quoted, ", ") + "}"
}
