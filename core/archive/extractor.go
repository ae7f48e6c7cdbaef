package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"time"
)

// Extractor recovers the raw bytes of one archive entry by other means than
// the built-in zip reader.
type Extractor interface {
	Extract(ctx context.Context, archivePath, entry string) ([]byte, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, archivePath, entry string) ([]byte, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, archivePath, entry string) ([]byte, error) {
	return f(ctx, archivePath, entry)
}

// SevenZip runs the 7-Zip command line tool to pull a single entry out of an
// archive that the zip reader rejects.
type SevenZip struct {
	Binary  string
	TempDir string
	Timeout time.Duration
}

// NewExtractor returns the configured extractor, or nil when the fallback is disabled.
func NewExtractor(cfg Config) Extractor {
	if cfg.Extractor == "" {
		return nil
	}
	return &SevenZip{
		Binary:  cfg.Extractor,
		TempDir: cfg.TempDir,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Extract runs `<binary> e <archive> -i!*<entry> -y -o<tmp>` and reads the
// extracted file back. The temporary directory is always removed.
func (s *SevenZip) Extract(ctx context.Context, archivePath, entry string) ([]byte, error) {
	dir, err := os.MkdirTemp(s.TempDir, "compat-merger-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.Binary, "e", archivePath, "-i!*"+entry, "-y", "-o"+dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", s.Binary, err, bytes.TrimSpace(out))
	}

	data, err := os.ReadFile(filepath.Join(dir, path.Base(entry)))
	if err != nil {
		return nil, fmt.Errorf("%s produced no output for %s: %w", s.Binary, entry, err)
	}
	return data, nil
}
