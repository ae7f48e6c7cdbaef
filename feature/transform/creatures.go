package transform

import (
	"fmt"
	"strconv"
	"strings"

	"compat-merger/core/luascript"
	"compat-merger/feature/catalog"
)

// CreatureInfoScript is the generated creature table consumed by the racial
// boost scripts.
const CreatureInfoScript = "scripts/RacialAbilityBoost/RacialAbilityBoostCreatureInfos.lua"

// Upgrade table names.
const (
	upgradeToBase = "CREATURE_UPGRADE2UNGRADED"
	baseToUpgrade = "CREATURE_UNGRADE2UPGRADED"
)

type luaRow struct {
	key   string
	value string
}

// luaTable renders one `NAME = {` block followed by a blank line. String
// values stay bare when the first one names a game constant.
func luaTable(name string, rows []luaRow, numeric bool) []string {
	bare := numeric
	if !numeric && len(rows) > 0 {
		v := rows[0].value
		bare = strings.HasPrefix(v, "CREATURE_") || strings.HasPrefix(v, "TOWN_")
	}

	lines := make([]string, 0, len(rows)+3)
	lines = append(lines, name+" = {")
	for _, r := range rows {
		v := r.value
		if !bare {
			v = luascript.QuoteString(v)
		}
		lines = append(lines, fmt.Sprintf("    [%s] = %s,", r.key, v))
	}
	return append(lines, "}", "")
}

func pairRows(pairs []catalog.Pair) []luaRow {
	rows := make([]luaRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, luaRow{p.Key, p.Value})
	}
	return rows
}

// CreatureScript renders the creature tables, every table ordered by town,
// tier, upgrade slot and id.
func CreatureScript(c *catalog.Catalog) string {
	creatures := c.Creatures()
	column := func(value func(catalog.Creature) string) []luaRow {
		rows := make([]luaRow, 0, len(creatures))
		for _, cr := range creatures {
			rows = append(rows, luaRow{cr.ID, value(cr)})
		}
		return rows
	}
	itoa := func(f func(catalog.Creature) int) func(catalog.Creature) string {
		return func(cr catalog.Creature) string { return strconv.Itoa(f(cr)) }
	}

	var lines []string
	lines = append(lines, luaTable("CREATURE2TEXT", column(func(cr catalog.Creature) string { return cr.DisplayRef }), false)...)
	lines = append(lines, luaTable("CREATURE2COST", column(itoa(func(cr catalog.Creature) int { return cr.Cost })), true)...)
	lines = append(lines, luaTable("CREATURE2TIER", column(itoa(func(cr catalog.Creature) int { return cr.Tier })), true)...)
	lines = append(lines, luaTable("CREATURE2TOWN", column(func(cr catalog.Creature) string { return cr.Town }), false)...)
	lines = append(lines, luaTable("CREATURE2GRADE", column(itoa(func(cr catalog.Creature) int { return cr.UpgradeSlot })), true)...)
	lines = append(lines, luaTable(upgradeToBase, pairRows(c.UpgradedToBase()), false)...)

	lines = append(lines, baseToUpgrade+" = {[1] = {}, [2] = {}}", "")
	for slot := 1; slot <= 2; slot++ {
		name := fmt.Sprintf("%s[%d]", baseToUpgrade, slot)
		lines = append(lines, luaTable(name, pairRows(c.BaseToUpgrade(slot)), false)...)
	}
	return strings.Join(lines, "\n")
}
