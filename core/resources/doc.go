// Package resources serves the template files shipped next to the binary.
//
// The bundle is read-only and holds:
//   - towns/*.xdb: one map object per faction starter town, keyed by AdvMapTown/Name.
//   - artificer/*.xdb: artificer artifact map objects, keyed by AdvMapArtifact/Name.
//   - all_spells.xml, all_artifacts.xml: the full id lists as <Item> children.
//   - spells_<CLASS>.xml: lessons per hero class; missing means none.
//   - perk_swaps.ini: [OLD_PERK] replacement=, prerequisite=
//   - specialization_swaps.ini: [OLD_SPEC] replacement=, name=, description=, icon=
//   - MapScript.xdb and MapScript.lua: the script installed into maps without one.
//
// A missing file returns ErrMissingResource from the accessor that needs it
// and affects nothing else.
package resources
