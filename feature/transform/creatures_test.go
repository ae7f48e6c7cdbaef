package transform_test

import (
	"testing"

	"compat-merger/feature/catalog"
	"compat-merger/feature/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func wolves() *catalog.Catalog {
	b := catalog.NewBuilder()
	b.Add(catalog.Creature{ID: "CREATURE_DIRE_WOLF", Cost: 400, Tier: 1, Town: catalog.TownNoType, DisplayRef: "/Text/Dire.txt"})
	b.Add(catalog.Creature{ID: "CREATURE_WOLF", Cost: 200, Tier: 1, Town: catalog.TownNoType, DisplayRef: "/Text/Wolf.txt"})
	b.AddUpgrades("CREATURE_WOLF", "CREATURE_DIRE_WOLF")
	return b.Build()
}

const wolfScript = `CREATURE2TEXT = {
    [CREATURE_WOLF] = "/Text/Wolf.txt",
    [CREATURE_DIRE_WOLF] = "/Text/Dire.txt",
}

CREATURE2COST = {
    [CREATURE_WOLF] = 200,
    [CREATURE_DIRE_WOLF] = 400,
}

CREATURE2TIER = {
    [CREATURE_WOLF] = 1,
    [CREATURE_DIRE_WOLF] = 1,
}

CREATURE2TOWN = {
    [CREATURE_WOLF] = TOWN_NEUTRAL,
    [CREATURE_DIRE_WOLF] = TOWN_NEUTRAL,
}

CREATURE2GRADE = {
    [CREATURE_WOLF] = 0,
    [CREATURE_DIRE_WOLF] = 1,
}

CREATURE_UPGRADE2UNGRADED = {
    [CREATURE_DIRE_WOLF] = CREATURE_WOLF,
}

CREATURE_UNGRADE2UPGRADED = {[1] = {}, [2] = {}}

CREATURE_UNGRADE2UPGRADED[1] = {
    [CREATURE_WOLF] = CREATURE_DIRE_WOLF,
}

CREATURE_UNGRADE2UPGRADED[2] = {
}
`

func TestCreatureScript(t *testing.T) {
	assert.Equal(t, wolfScript, transform.CreatureScript(wolves()))
}

func TestCreatureScript_Runs(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	// The game defines creature and town ids as numeric globals.
	require.NoError(t, L.DoString("CREATURE_WOLF = 1\nCREATURE_DIRE_WOLF = 2\nTOWN_NEUTRAL = 8\n"))
	require.NoError(t, L.DoString(transform.CreatureScript(wolves())))

	field := func(table string, keys ...int) lua.LValue {
		v := L.GetGlobal(table)
		for _, k := range keys {
			v = L.GetTable(v, lua.LNumber(k))
		}
		return v
	}

	assert.Equal(t, lua.LNumber(200), field("CREATURE2COST", 1))
	assert.Equal(t, lua.LNumber(400), field("CREATURE2COST", 2))
	assert.Equal(t, lua.LString("/Text/Wolf.txt"), field("CREATURE2TEXT", 1))
	assert.Equal(t, lua.LNumber(8), field("CREATURE2TOWN", 2))
	assert.Equal(t, lua.LNumber(1), field("CREATURE_UPGRADE2UNGRADED", 2))
	assert.Equal(t, lua.LNumber(2), field("CREATURE_UNGRADE2UPGRADED", 1, 1))
	assert.Equal(t, lua.LNil, field("CREATURE_UNGRADE2UPGRADED", 2, 1))
}

func TestCreatureScript_QuotingFollowsFirstValue(t *testing.T) {
	b := catalog.NewBuilder()
	b.Add(catalog.Creature{ID: "CREATURE_A", Tier: 1, Town: catalog.TownHeaven, DisplayRef: `/Text/"A".txt`})
	script := transform.CreatureScript(b.Build())

	assert.Contains(t, script, `    [CREATURE_A] = "/Text/\"A\".txt",`)
	assert.Contains(t, script, "    [CREATURE_A] = TOWN_HEAVEN,")
	assert.Contains(t, script, "CREATURE_UPGRADE2UNGRADED = {\n}\n")
}
