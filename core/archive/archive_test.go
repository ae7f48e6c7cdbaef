package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"compat-merger/core/archive"
	"compat-merger/core/archive/ziptest"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ListsEntries(t *testing.T) {
	fs := memfs.New()
	stamp := time.Date(2021, 5, 6, 7, 8, 10, 0, time.UTC)
	ziptest.Write(t, fs, "data/base.pak",
		ziptest.File{Name: "Maps/", Stored: true},
		ziptest.File{Name: "Maps/Scenario/A/map-tag.xdb", Body: "<Map/>", Modified: stamp},
	)

	a, err := archive.Open(fs, "data/base.pak", nil)
	require.NoError(t, err)
	defer a.Close()

	entries := a.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "Maps/Scenario/A/map-tag.xdb", entries[1].Name)
	assert.False(t, entries[1].IsDir)
	assert.True(t, stamp.Equal(entries[1].Modified.UTC()), "got %v", entries[1].Modified)
	assert.Equal(t, "data/base.pak", a.Path())
}

func TestOpen_NotAnArchive(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "data/broken.pak", []byte("this is not a zip file at all"), 0o644))

	_, err := archive.Open(fs, "data/broken.pak", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, archive.ErrNotAnArchive)
}

func TestRead(t *testing.T) {
	fs := memfs.New()
	ziptest.Write(t, fs, "UserMods/mod.h5u",
		ziptest.File{Name: "GameMechanics/RefTables/Creatures.xdb", Body: "<Table/>"},
	)

	a, err := archive.Open(fs, "UserMods/mod.h5u", nil)
	require.NoError(t, err)
	defer a.Close()

	t.Run("CaseInsensitive", func(t *testing.T) {
		data, err := a.Read(context.Background(), "gamemechanics/reftables/creatures.xdb")
		require.NoError(t, err)
		assert.Equal(t, "<Table/>", string(data))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := a.Read(context.Background(), "scripts/none.lua")
		assert.ErrorIs(t, err, archive.ErrEntryNotFound)
	})
}

func TestRead_CorruptFallsBackToExtractor(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "Maps/custom.h5m", ziptest.Corrupt(t, "Maps/Multiplayer/X/map.xdb"), 0o644))

	var gotArchive, gotEntry string
	ex := archive.ExtractorFunc(func(ctx context.Context, archivePath, entry string) ([]byte, error) {
		gotArchive, gotEntry = archivePath, entry
		return []byte("recovered"), nil
	})

	a, err := archive.Open(fs, "Maps/custom.h5m", ex)
	require.NoError(t, err)
	defer a.Close()

	data, err := a.Read(context.Background(), "maps/multiplayer/x/map.xdb")
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(data))
	assert.Equal(t, "Maps/Multiplayer/X/map.xdb", gotEntry)
	assert.Equal(t, "custom.h5m", filepath.Base(gotArchive))
}

func TestRead_CorruptWithoutRecovery(t *testing.T) {
	tests := []struct {
		name string
		ex   archive.Extractor
	}{
		{"NoExtractor", nil},
		{"ExtractorFails", archive.ExtractorFunc(func(context.Context, string, string) ([]byte, error) {
			return nil, errors.New("exit status 2")
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			require.NoError(t, util.WriteFile(fs, "Maps/custom.h5m", ziptest.Corrupt(t, "Maps/Multiplayer/X/map.xdb"), 0o644))

			a, err := archive.Open(fs, "Maps/custom.h5m", tt.ex)
			require.NoError(t, err)
			defer a.Close()

			_, err = a.Read(context.Background(), "Maps/Multiplayer/X/map.xdb")
			assert.ErrorIs(t, err, archive.ErrUnavailable)
		})
	}
}

func TestNewExtractor(t *testing.T) {
	assert.Nil(t, archive.NewExtractor(archive.Config{}))

	ex := archive.NewExtractor(archive.Config{Extractor: "7za", TimeoutSeconds: 5})
	require.IsType(t, &archive.SevenZip{}, ex)
	assert.Equal(t, 5*time.Second, ex.(*archive.SevenZip).Timeout)
}

func TestSevenZip_Extract(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}

	dir := t.TempDir()
	stub := filepath.Join(dir, "7za")
	script := "#!/bin/sh\nfor a in \"$@\"; do case \"$a\" in -o*) out=\"${a#-o}\";; esac; done\nprintf 'from-stub' > \"$out/map.xdb\"\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	ex := &archive.SevenZip{Binary: stub, TempDir: dir, Timeout: 5 * time.Second}
	data, err := ex.Extract(context.Background(), "/games/h5/Maps/custom.h5m", "Maps/Multiplayer/X/map.xdb")
	require.NoError(t, err)
	assert.Equal(t, "from-stub", string(data))

	t.Run("MissingOutput", func(t *testing.T) {
		silent := filepath.Join(dir, "silent")
		require.NoError(t, os.WriteFile(silent, []byte("#!/bin/sh\nexit 0\n"), 0o755))
		ex := &archive.SevenZip{Binary: silent, TempDir: dir}
		_, err := ex.Extract(context.Background(), "/x.h5m", "a/b.xdb")
		assert.Error(t, err)
	})

	t.Run("CommandFails", func(t *testing.T) {
		ex := &archive.SevenZip{Binary: filepath.Join(dir, "does-not-exist")}
		_, err := ex.Extract(context.Background(), "/x.h5m", "a/b.xdb")
		assert.Error(t, err)
	})
}
