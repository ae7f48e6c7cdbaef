// Package catalog holds the creature dataset derived during preload.
//
// Each Creature joins three game records: the reference table entry (id),
// the creature record (cost, tier, town, upgrades) and its visual record
// (display name reference). Upgrade edges assign slots: 0 for a base
// creature, 1 and 2 for its upgrades.
//
// Every projection is ordered by (town rank, tier, upgrade slot, id), where
// town rank follows the fixed faction order Haven, Preserve, Academy,
// Dungeon, Necromancy, Inferno, Fortress, Stronghold, Neutral. Script
// generation relies on that order for readable output.
package catalog
