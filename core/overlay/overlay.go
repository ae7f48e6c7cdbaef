package overlay

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"sort"
	"strings"
	"time"

	"compat-merger/core/archive"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidInstallation is returned by Build when a required root folder is
// missing from the installation.
var ErrInvalidInstallation = errors.New("invalid installation")

// Entry is the manifest record for one logical path.
type Entry struct {
	// LogicalPath is the lowercase, slash-separated lookup key.
	LogicalPath string
	// TruePath is the entry name as stored in the archive.
	TruePath string
	// Archive is the path of the winning archive relative to the install root.
	Archive string
	// Modified is the entry's timestamp inside the archive.
	Modified time.Time
}

// Progress receives scan progress. job.Tracker satisfies it.
type Progress interface {
	SetStage(stage string)
	SetTotal(total int)
	Advance(n int)
}

// Options controls a scan.
type Options struct {
	Roots []Root
	// Filter decides which archive entries are indexed.
	Filter Filter
	// ReservedName excludes archives whose file name contains it (case-insensitive),
	// so a previously generated patch never feeds back into the index.
	ReservedName string
	Extractor    archive.Extractor
	Logger       *zap.Logger
	Progress     Progress
}

func (o Options) withDefaults() Options {
	if o.Roots == nil {
		o.Roots = DefaultRoots()
	}
	if o.Filter.Prefixes == nil && o.Filter.Suffixes == nil {
		o.Filter = DefaultFilter()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Progress == nil {
		o.Progress = nopProgress{}
	}
	return o
}

type nopProgress struct{}

func (nopProgress) SetStage(string) {}
func (nopProgress) SetTotal(int)    {}
func (nopProgress) Advance(int)     {}

// Index is a flat manifest over every archive of an installation. It is
// immutable once built and safe for concurrent reads.
type Index struct {
	archives map[string]*archive.Archive
	manifest map[string]Entry
	keys     []string
	logger   *zap.Logger
}

type rootScan struct {
	root  Root
	dir   string
	files []string
}

// Build scans the roots in order and resolves every logical path to the
// candidate with the greatest (logical path, modified time). Candidates with
// equal timestamps resolve to the one scanned last.
func Build(ctx context.Context, fs billy.Filesystem, opts Options) (*Index, error) {
	opts = opts.withDefaults()
	log := opts.Logger
	start := time.Now()

	var plan []rootScan
	total := 0
	for _, root := range opts.Roots {
		dir, ok := resolveDir(fs, root.Dir)
		if !ok {
			if root.Required {
				return nil, fmt.Errorf("%w: %q not found under %s", ErrInvalidInstallation, root.Dir, fs.Root())
			}
			log.Debug("Optional root not present", zap.String("root", root.Dir))
			continue
		}

		files, err := listArchives(fs, dir, root.Suffix, opts.ReservedName)
		if err != nil {
			if root.Required {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInstallation, err)
			}
			log.Warn("Cannot list root", zap.String("root", dir), zap.Error(err))
			continue
		}

		plan = append(plan, rootScan{root: root, dir: dir, files: files})
		total += len(files) + 1
	}
	opts.Progress.SetTotal(total)

	idx := &Index{
		archives: make(map[string]*archive.Archive),
		manifest: make(map[string]Entry),
		logger:   log,
	}

	var candidates []Entry
	for _, scan := range plan {
		opts.Progress.SetStage(fmt.Sprintf("Scanning %s", scan.root.Dir))
		opened, err := openAll(ctx, fs, scan, opts)
		if err != nil {
			_ = idx.Close()
			for _, a := range opened {
				if a != nil {
					_ = a.Close()
				}
			}
			return nil, err
		}

		// Collect in file name order so equal timestamps resolve the same
		// way on every run.
		for _, a := range opened {
			if a == nil {
				continue
			}
			idx.archives[a.Path()] = a
			for _, e := range a.Entries() {
				if e.IsDir {
					continue
				}
				logical := Normalize(e.Name)
				if !opts.Filter.Match(logical) {
					continue
				}
				candidates = append(candidates, Entry{
					LogicalPath: logical,
					TruePath:    e.Name,
					Archive:     a.Path(),
					Modified:    e.Modified,
				})
			}
		}
		opts.Progress.Advance(1)
	}

	opts.Progress.SetStage("Building manifest")
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].LogicalPath != candidates[j].LogicalPath {
			return candidates[i].LogicalPath < candidates[j].LogicalPath
		}
		return candidates[i].Modified.Before(candidates[j].Modified)
	})
	for _, c := range candidates {
		idx.manifest[c.LogicalPath] = c
	}
	idx.keys = make([]string, 0, len(idx.manifest))
	for k := range idx.manifest {
		idx.keys = append(idx.keys, k)
	}
	sort.Strings(idx.keys)

	log.Info("Overlay index built",
		zap.Int("archives", len(idx.archives)),
		zap.Int("entries", len(idx.manifest)),
		zap.Duration("elapsed", time.Since(start)))

	return idx, nil
}

// openAll opens the archives of one root concurrently. The result is indexed
// like scan.files; unreadable archives are logged and left nil.
func openAll(ctx context.Context, fs billy.Filesystem, scan rootScan, opts Options) ([]*archive.Archive, error) {
	opened := make([]*archive.Archive, len(scan.files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, name := range scan.files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := path.Join(scan.dir, name)
			a, err := archive.Open(fs, p, opts.Extractor)
			opts.Progress.Advance(1)
			if err != nil {
				opts.Logger.Warn("Skipping unreadable archive", zap.String("archive", p), zap.Error(err))
				return nil
			}
			opened[i] = a
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return opened, err
}

// resolveDir finds a top-level folder by name, ignoring case. The game's own
// folders are spelled inconsistently (UserMods vs UserMODs).
func resolveDir(fs billy.Filesystem, name string) (string, bool) {
	infos, err := fs.ReadDir(".")
	if err != nil {
		return "", false
	}
	found := ""
	for _, fi := range infos {
		if !fi.IsDir() {
			continue
		}
		if fi.Name() == name {
			return name, true
		}
		if found == "" && strings.EqualFold(fi.Name(), name) {
			found = fi.Name()
		}
	}
	return found, found != ""
}

func listArchives(fs billy.Filesystem, dir, suffix, reserved string) ([]string, error) {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	suffix = strings.ToLower(suffix)
	reserved = strings.ToLower(reserved)

	var files []string
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		lower := strings.ToLower(fi.Name())
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		if reserved != "" && strings.Contains(lower, reserved) {
			continue
		}
		files = append(files, fi.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Len returns the number of logical paths in the manifest.
func (x *Index) Len() int {
	return len(x.manifest)
}

// ArchiveCount returns the number of archives that opened successfully.
func (x *Index) ArchiveCount() int {
	return len(x.archives)
}

// Lookup returns the manifest entry for a path.
func (x *Index) Lookup(p string) (Entry, bool) {
	e, ok := x.manifest[Normalize(p)]
	return e, ok
}

// ArchiveOf returns the archive supplying a path.
func (x *Index) ArchiveOf(p string) (string, bool) {
	e, ok := x.Lookup(p)
	return e.Archive, ok
}

// ListDir returns the immediate subdirectories and files under prefix.
// Directories are returned as logical paths without a trailing slash.
// Entries from archives whose name ends with one of excludeSuffixes are ignored.
func (x *Index) ListDir(prefix string, excludeSuffixes ...string) ([]string, []Entry) {
	target := normalizePrefix(prefix)
	dirSet := make(map[string]struct{})
	var files []Entry

	for _, k := range x.keys {
		if !strings.HasPrefix(k, target) {
			continue
		}
		e := x.manifest[k]
		if excluded(e.Archive, excludeSuffixes) {
			continue
		}
		rest := k[len(target):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			dirSet[target+rest[:i]] = struct{}{}
			continue
		}
		files = append(files, e)
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, files
}

// Walk returns every file under prefix, recursively, ordered by logical path.
func (x *Index) Walk(prefix string, excludeSuffixes ...string) []Entry {
	target := normalizePrefix(prefix)
	var files []Entry
	for _, k := range x.keys {
		if !strings.HasPrefix(k, target) {
			continue
		}
		e := x.manifest[k]
		if excluded(e.Archive, excludeSuffixes) {
			continue
		}
		files = append(files, e)
	}
	return files
}

// GetFile returns the bytes of a logical path from its winning archive.
// Absent paths and unrecoverable entries both report false; the latter is logged.
func (x *Index) GetFile(ctx context.Context, p string) ([]byte, bool) {
	e, ok := x.Lookup(p)
	if !ok {
		return nil, false
	}
	a, ok := x.archives[e.Archive]
	if !ok {
		return nil, false
	}
	data, err := a.Read(ctx, e.TruePath)
	if err != nil {
		x.logger.Warn("Cannot read entry",
			zap.String("path", e.TruePath),
			zap.String("archive", e.Archive),
			zap.Error(err))
		return nil, false
	}
	return data, true
}

// Close releases every open archive.
func (x *Index) Close() error {
	var errs []error
	for _, a := range x.archives {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	x.archives = map[string]*archive.Archive{}
	return errors.Join(errs...)
}
