// Package overlay builds the virtual filesystem the game itself sees.
//
// Heroes V loads every archive under data/ (.pak), UserMods/ (.h5u) and
// Maps/ (.h5m). When several archives carry the same internal path the one
// with the newest timestamp wins, which is how user mods shadow base content.
// Build reproduces that resolution into a flat manifest keyed by the
// lowercase logical path.
//
// # Manifest
//
// Only entries under a fixed set of prefixes (maps/, ttberein/, mapobjects/,
// scripts/, gamemechanics/) with a fixed set of suffixes (.xdb, .chk, .lua)
// are indexed. Archives whose name contains the reserved patch name are never
// opened so a previous run's output cannot shadow its own inputs.
//
// # Queries
//
// ListDir and Walk are pure filters over the sorted manifest keys; there is no
// directory tree. Both accept archive suffixes to exclude, which lets callers
// ask for "maps that come from .h5m files only" or the opposite.
//
// # Usage
//
//	idx, err := overlay.Build(ctx, osfs.New(cfg.Path), overlay.Options{
//	    ReservedName: "TTBereinMergedPatch.h5u",
//	    Logger:       log,
//	})
//	if errors.Is(err, overlay.ErrInvalidInstallation) {
//	    // not a game folder
//	}
//	defer idx.Close()
//	data, ok := idx.GetFile(ctx, "GameMechanics/RefTables/Creatures.xdb")
package overlay
