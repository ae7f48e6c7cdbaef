package patcher

import (
	"testing"

	"compat-merger/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoader(t *testing.T) {
	feature := NewFeature(Deps{Install: installation(t), Logger: zap.NewNop()})
	t.Cleanup(feature.Shutdown)

	var _ loader.Feature = feature
	assert.Equal(t, "patcher", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))
}

func TestLoader_DisabledWithoutInstallation(t *testing.T) {
	feature := NewFeature(Deps{})
	assert.False(t, feature.IsEnabled())
}
