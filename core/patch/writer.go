package patch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrOutputWriteBlocked is returned when the patch cannot be removed or
	// created, typically because the game or the map editor holds it open.
	ErrOutputWriteBlocked = errors.New("patch output blocked")
	// ErrDuplicateEntry is returned when an entry name is written twice.
	ErrDuplicateEntry = errors.New("duplicate patch entry")
	// ErrClosed is returned when writing to a finalized or aborted writer.
	ErrClosed = errors.New("patch writer closed")
)

// RemoveOutcome tells whether Remove deleted anything.
type RemoveOutcome int

const (
	NotFound RemoveOutcome = iota
	Removed
)

func (o RemoveOutcome) String() string {
	if o == Removed {
		return "removed"
	}
	return "not_found"
}

// Remove deletes the patch at name. A missing patch is reported as NotFound,
// not as an error.
func Remove(fsys billy.Filesystem, name string) (RemoveOutcome, error) {
	info, err := fsys.Stat(name)
	if errors.Is(err, os.ErrNotExist) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, fmt.Errorf("%w: stat %s: %v", ErrOutputWriteBlocked, name, err)
	}
	if info.IsDir() {
		return NotFound, fmt.Errorf("%w: %s is a directory", ErrOutputWriteBlocked, name)
	}
	if err := fsys.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NotFound, nil
		}
		return NotFound, fmt.Errorf("%w: cannot remove %s, close the game and the map editor: %v", ErrOutputWriteBlocked, name, err)
	}
	return Removed, nil
}

// EnsureDir creates the user mods folder when it does not exist yet.
func EnsureDir(fsys billy.Filesystem, dir string) error {
	info, err := fsys.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s is a file, not a folder", ErrOutputWriteBlocked, dir)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: stat %s: %v", ErrOutputWriteBlocked, dir, err)
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: cannot create %s: %v", ErrOutputWriteBlocked, dir, err)
	}
	return nil
}

// Writer streams entries into a fresh patch archive at maximum compression.
// It is owned by a single goroutine.
type Writer struct {
	fs       billy.Filesystem
	name     string
	file     billy.File
	zw       *zip.Writer
	modified time.Time
	seen     map[string]string
	closed   bool
}

// Begin removes any stale patch at name and opens a new archive there.
// Every entry is stamped with modified.
func Begin(fsys billy.Filesystem, name string, modified time.Time) (*Writer, error) {
	if _, err := Remove(fsys, name); err != nil {
		return nil, err
	}

	f, err := fsys.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: cannot create %s: %v", ErrOutputWriteBlocked, name, err)
		}
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	return &Writer{
		fs:       fsys,
		name:     name,
		file:     f,
		zw:       zw,
		modified: modified,
		seen:     make(map[string]string),
	}, nil
}

// Name returns the path of the archive being written.
func (w *Writer) Name() string {
	return w.name
}

// WriteEntry adds one file. Names use forward slashes and are compared
// case-insensitively, as the game does.
func (w *Writer) WriteEntry(name string, data []byte) error {
	if w.closed {
		return ErrClosed
	}
	clean := strings.TrimPrefix(path.Clean(strings.ReplaceAll(name, "\\", "/")), "/")
	key := strings.ToLower(clean)
	if prev, ok := w.seen[key]; ok {
		return fmt.Errorf("%w: %s (already written as %s)", ErrDuplicateEntry, clean, prev)
	}

	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     clean,
		Method:   zip.Deflate,
		Modified: w.modified,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", clean, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", clean, err)
	}
	w.seen[key] = clean
	return nil
}

// Entries returns the names written so far, sorted.
func (w *Writer) Entries() []string {
	out := make([]string, 0, len(w.seen))
	for _, name := range w.seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Finalize completes the archive. On failure the partial file is removed.
func (w *Writer) Finalize() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	err := w.zw.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = w.fs.Remove(w.name)
		return fmt.Errorf("finalize %s: %w", w.name, err)
	}
	return nil
}

// Abort discards the partial archive. It is a no-op after Finalize.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.file.Close()
	if err := w.fs.Remove(w.name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard %s: %w", w.name, err)
	}
	return nil
}
