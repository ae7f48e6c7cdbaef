package patcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"compat-merger/core/archive"
	"compat-merger/core/job"
	"compat-merger/core/overlay"
	"compat-merger/core/patch"
	"compat-merger/core/resources"
	"compat-merger/core/storage"
	"compat-merger/feature/records"
	"compat-merger/feature/transform"

	"github.com/go-git/go-billy/v5"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ErrPatchNotFound is returned when publishing a patch that was never generated.
var ErrPatchNotFound = errors.New("patch not found")

// Progress phases of Scan (index, preload) and Generate (pipeline). Callers
// declare their sum on the tracker so the reported fraction covers the whole
// operation.
const (
	ScanPhases     = 2
	GeneratePhases = 1
)

// Deps are the collaborators of a Service.
type Deps struct {
	// Install is rooted at the game installation.
	Install   billy.Filesystem
	Bundle    *resources.Bundle
	Extractor archive.Extractor
	Patch     patch.Config
	Storage   storage.Config
	Client    storage.Client
	Logger    *zap.Logger
}

// Service runs scans, generations and publications against one installation.
type Service struct {
	fs        billy.Filesystem
	bundle    *resources.Bundle
	extractor archive.Extractor
	patchCfg  patch.Config
	storeCfg  storage.Config
	client    storage.Client
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new patcher service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		fs:        d.Install,
		bundle:    d.Bundle,
		extractor: d.Extractor,
		patchCfg:  d.Patch,
		storeCfg:  d.Storage,
		client:    d.Client,
		logger:    d.Logger,
		now:       time.Now,
	}
}

// Summary describes what a scan found.
type Summary struct {
	ScannedAt time.Time                `json:"scanned_at"`
	Archives  int                      `json:"archives"`
	Entries   int                      `json:"entries"`
	Maps      map[records.Category]int `json:"maps"`
	Heroes    int                      `json:"heroes"`
	Creatures int                      `json:"creatures"`
	Mods      records.ModStatus        `json:"mods"`
}

// Snapshot is the preloaded state of an installation. Generations can run
// against it repeatedly; it holds no open archives.
type Snapshot struct {
	Store   *records.Store
	Summary Summary
}

// Scan indexes the installation and preloads every record a generation needs.
func (s *Service) Scan(ctx context.Context, tracker *job.Tracker) (*Snapshot, error) {
	start := s.now()

	idx, err := overlay.Build(ctx, s.fs, overlay.Options{
		ReservedName: s.patchCfg.FileName,
		Extractor:    s.extractor,
		Logger:       s.logger,
		Progress:     tracker,
	})
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if err := tracker.Checkpoint(ctx); err != nil {
		return nil, err
	}

	store, err := records.Preload(ctx, idx, tracker, s.logger)
	if err != nil {
		return nil, err
	}

	sum := Summary{
		ScannedAt: start,
		Archives:  idx.ArchiveCount(),
		Entries:   idx.Len(),
		Maps:      make(map[records.Category]int),
		Heroes:    len(store.Heroes()),
		Creatures: store.Catalog().Len(),
		Mods:      store.Mods(),
	}
	for _, c := range records.Categories() {
		sum.Maps[c] = store.MapCount(c)
	}

	s.logger.Info("Installation scanned",
		zap.Int("archives", sum.Archives),
		zap.Int("entries", sum.Entries),
		zap.Int("heroes", sum.Heroes),
		zap.Int("creatures", sum.Creatures),
		zap.Duration("elapsed", time.Since(start)))

	return &Snapshot{Store: store, Summary: sum}, nil
}

// MissingMods returns the enabled options whose mod is not installed. The
// patch is still generated; the game simply ignores what it cannot use.
func MissingMods(sel transform.Selection, mods records.ModStatus) []string {
	markers := map[string]records.Marker{
		transform.OptionAllHeroes:          mods.AllHeroes,
		transform.OptionAllSpellsArtifacts: mods.AllSpellsArtifacts,
		transform.OptionRacialBoost:        mods.RacialBoost,
	}
	enabled := make(map[string]bool)
	for _, o := range sel.Effective().Maps {
		for _, f := range o.Fields() {
			enabled[f.Name] = enabled[f.Name] || f.Enabled
		}
	}

	var missing []string
	for _, f := range (transform.Options{}).Fields() {
		if enabled[f.Name] && !markers[f.Name].Present {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Generate writes a fresh patch for sel. On failure or cancellation the
// partial archive is discarded.
func (s *Service) Generate(ctx context.Context, snap *Snapshot, sel transform.Selection, tracker *job.Tracker) (*transform.Report, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	for _, name := range MissingMods(sel, snap.Summary.Mods) {
		s.logger.Warn("Option enabled but its mod is not installed", zap.String("option", name))
	}

	if err := patch.EnsureDir(s.fs, s.patchCfg.Dir); err != nil {
		return nil, err
	}
	w, err := patch.Begin(s.fs, s.patchCfg.Path(), s.now())
	if err != nil {
		return nil, err
	}

	report, err := transform.New(snap.Store, s.bundle, s.logger).Run(ctx, tracker, sel, w)
	if err != nil {
		if aerr := w.Abort(); aerr != nil {
			s.logger.Warn("Cannot discard partial patch", zap.Error(aerr))
		}
		return nil, err
	}
	if err := w.Finalize(); err != nil {
		return nil, err
	}

	s.logger.Info("Patch generated",
		zap.String("path", w.Name()),
		zap.Int("entries", len(w.Entries())))
	return report, nil
}

// Remove uninstalls the patch and returns where it was looked for.
func (s *Service) Remove() (patch.RemoveOutcome, string, error) {
	p := s.patchCfg.Path()
	outcome, err := patch.Remove(s.fs, p)
	if err != nil {
		return outcome, p, err
	}
	s.logger.Info("Patch removal", zap.String("path", p), zap.String("outcome", outcome.String()))
	return outcome, p, nil
}

// PatchInfo describes the installed patch.
type PatchInfo struct {
	Path     string    `json:"path"`
	Exists   bool      `json:"exists"`
	Size     int64     `json:"size,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}

// Patch reports whether a patch is installed.
func (s *Service) Patch() PatchInfo {
	p := s.patchCfg.Path()
	info := PatchInfo{Path: p}
	if fi, err := s.fs.Stat(p); err == nil && !fi.IsDir() {
		info.Exists = true
		info.Size = fi.Size()
		info.Modified = fi.ModTime()
	}
	return info
}

// Published describes an uploaded patch.
type Published struct {
	Bucket string `json:"bucket"`
	Object string `json:"object"`
	Size   int64  `json:"size"`
	ETag   string `json:"etag"`
}

// Publish uploads the patch at name, relative to the installation root, to
// the configured bucket. An empty name publishes the configured patch.
func (s *Service) Publish(ctx context.Context, name string) (*Published, error) {
	if name == "" {
		name = s.patchCfg.Path()
	}
	if s.client == nil {
		return nil, errors.New("storage is not configured")
	}

	f, err := s.fs.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPatchNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	fi, err := s.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}

	if err := storage.EnsureBucket(ctx, s.client, s.storeCfg.Bucket, s.storeCfg.Region); err != nil {
		return nil, err
	}

	object := s.storeCfg.ObjectName(path.Base(name))
	info, err := s.client.PutObject(ctx, s.storeCfg.Bucket, object, f, fi.Size(), minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", object, err)
	}

	s.logger.Info("Patch published",
		zap.String("bucket", s.storeCfg.Bucket),
		zap.String("object", object),
		zap.Int64("size", fi.Size()))
	return &Published{Bucket: s.storeCfg.Bucket, Object: object, Size: fi.Size(), ETag: info.ETag}, nil
}
