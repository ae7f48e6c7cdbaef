package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrNotAnArchive is returned by Open when the file is not a readable zip archive.
	ErrNotAnArchive = errors.New("not an archive")
	// ErrEntryNotFound is returned when the archive has no entry with the requested name.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrUnavailable is returned when an entry is corrupt and could not be recovered.
	// Callers skip the entry rather than aborting.
	ErrUnavailable = errors.New("entry unavailable")
)

// Entry describes one file inside an archive.
type Entry struct {
	Name     string
	Modified time.Time
	IsDir    bool
}

// Archive is an open zip archive on a billy filesystem.
type Archive struct {
	path      string
	osPath    string
	file      billy.File
	reader    *zip.Reader
	byName    map[string]*zip.File
	extractor Extractor
}

// Open opens the archive at path. The extractor may be nil, in which case
// corrupt entries are reported as unavailable without a recovery attempt.
func Open(fs billy.Filesystem, path string, ex Extractor) (*Archive, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAnArchive, path, err)
	}

	a := &Archive{
		path:      path,
		osPath:    filepath.Join(fs.Root(), filepath.FromSlash(path)),
		file:      f,
		reader:    zr,
		byName:    make(map[string]*zip.File, len(zr.File)),
		extractor: ex,
	}
	for _, zf := range zr.File {
		key := normalizeName(zf.Name)
		if _, dup := a.byName[key]; !dup {
			a.byName[key] = zf
		}
	}

	return a, nil
}

// Path returns the archive path relative to the filesystem it was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Entries lists the archive entries in central directory order.
func (a *Archive) Entries() []Entry {
	entries := make([]Entry, 0, len(a.reader.File))
	for _, zf := range a.reader.File {
		entries = append(entries, Entry{
			Name:     zf.Name,
			Modified: zf.Modified,
			IsDir:    zf.FileInfo().IsDir(),
		})
	}
	return entries
}

// Read returns the bytes of the named entry. The lookup is case-insensitive.
// When the entry fails to decode because of structural corruption the
// extractor is consulted; if that fails as well ErrUnavailable is returned.
func (a *Archive) Read(ctx context.Context, name string) ([]byte, error) {
	zf, ok := a.byName[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, name, a.path)
	}

	data, err := readEntry(zf)
	if err == nil {
		return data, nil
	}
	if !isCorrupt(err) {
		return nil, fmt.Errorf("read %s from %s: %w", name, a.path, err)
	}

	if a.extractor == nil {
		return nil, fmt.Errorf("%w: %s in %s: %v", ErrUnavailable, name, a.path, err)
	}

	data, xerr := a.extractor.Extract(ctx, a.osPath, zf.Name)
	if xerr != nil {
		return nil, fmt.Errorf("%w: %s in %s: %v (extractor: %v)", ErrUnavailable, name, a.path, err, xerr)
	}
	return data, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.file.Close()
}

func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func isCorrupt(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &corrupt)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/"))
}
