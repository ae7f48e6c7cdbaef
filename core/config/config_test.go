package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"compat-merger/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Game.Path)
	assert.Equal(t, "7za", cfg.Archive.Extractor)
	assert.Equal(t, 60, cfg.Archive.TimeoutSeconds)
	assert.Equal(t, "UserMODs", cfg.Patch.Dir)
	assert.Equal(t, "TTBereinMergedPatch.h5u", cfg.Patch.FileName)
	assert.Equal(t, "resources", cfg.Resources.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "patches", cfg.Storage.Bucket)
	assert.False(t, cfg.Storage.UseSSL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GAME_PATH", "/games/h5")
	t.Setenv("PATCH_FILE_NAME", "Custom.h5u")
	t.Setenv("ARCHIVE_TIMEOUT_SECONDS", "5")
	t.Setenv("STORAGE_USE_SSL", "true")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/games/h5", cfg.Game.Path)
	assert.Equal(t, "Custom.h5u", cfg.Patch.FileName)
	assert.Equal(t, 5, cfg.Archive.TimeoutSeconds)
	assert.True(t, cfg.Storage.UseSSL)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\nRESOURCES_PATH=/opt/merger/resources\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("RESOURCES_PATH")
	})

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/opt/merger/resources", cfg.Resources.Path)
}
