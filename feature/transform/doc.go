// Package transform turns preloaded records into patch entries.
//
// A run has three stages, always in this order:
//
//   - Maps. Every map of a category with at least one option is rewritten
//     and written, changed or not. Maps that fail to parse are skipped.
//   - Heroes. Only when the racial boost is enabled for some category and
//     requested for heroes. A hero is written only when a rule changed it.
//     Heroes holding one of the listed specializations are collected into
//     small generated Lua files.
//   - Creatures. Always. The creature catalog is rendered as Lua tables.
//
// Rules work on copies of the cached trees, so a store can serve several
// runs with different selections. The rules themselves are exported and
// operate on plain etree elements.
package transform
