// Package archive reads game data archives.
//
// Heroes V ships its content as zip archives with custom suffixes (.pak, .h5u,
// .h5m). Archive wraps the klauspost zip reader over a billy filesystem and
// exposes entry listing and case-insensitive reads.
//
// # Corrupt entries
//
// Some community packages are written by tools that produce entries the zip
// reader refuses (bad checksums, truncated deflate streams). When Read hits
// such an entry it hands the archive path and entry name to an Extractor.
// SevenZip is the stock implementation and shells out to 7za. If recovery
// fails too, Read returns ErrUnavailable so the caller can skip the entry.
//
// # Usage
//
//	a, err := archive.Open(fs, "data/data.pak", archive.NewExtractor(cfg))
//	if errors.Is(err, archive.ErrNotAnArchive) {
//	    // skip
//	}
//	defer a.Close()
//	data, err := a.Read(ctx, "GameMechanics/RefTables/Creatures.xdb")
package archive
