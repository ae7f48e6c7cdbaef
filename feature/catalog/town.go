package catalog

// Town identifiers as they appear in creature records.
const (
	TownHeaven     = "TOWN_HEAVEN"
	TownPreserve   = "TOWN_PRESERVE"
	TownAcademy    = "TOWN_ACADEMY"
	TownDungeon    = "TOWN_DUNGEON"
	TownNecromancy = "TOWN_NECROMANCY"
	TownInferno    = "TOWN_INFERNO"
	TownFortress   = "TOWN_FORTRESS"
	TownStronghold = "TOWN_STRONGHOLD"
	TownNeutral    = "TOWN_NEUTRAL"

	// TownNoType marks neutral creatures in the game data.
	TownNoType = "TOWN_NO_TYPE"
)

var townRanks = map[string]int{
	TownHeaven:     0,
	TownPreserve:   1,
	TownAcademy:    2,
	TownDungeon:    3,
	TownNecromancy: 4,
	TownInferno:    5,
	TownFortress:   6,
	TownStronghold: 7,
	TownNeutral:    8,
}

// UnknownTownRank orders towns outside the fixed list after neutrals.
const UnknownTownRank = 9

// NormalizeTown maps TOWN_NO_TYPE to TOWN_NEUTRAL.
func NormalizeTown(town string) string {
	if town == TownNoType {
		return TownNeutral
	}
	return town
}

// TownRank returns the display rank of a town and whether it is known.
func TownRank(town string) (int, bool) {
	r, ok := townRanks[town]
	if !ok {
		return UnknownTownRank, false
	}
	return r, true
}
