package cmd

import (
	"errors"
	"fmt"
	"testing"

	"compat-merger/core/job"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInterrupted(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := zap.New(core)

	assert.NoError(t, interrupted(fmt.Errorf("generate: %w", job.ErrCancelled), l))
	assert.Equal(t, 1, logs.FilterMessage("Cancelled, nothing was written").Len())

	failure := errors.New("disk full")
	assert.Equal(t, failure, interrupted(failure, l))
	assert.Nil(t, interrupted(nil, l))
	assert.Equal(t, 1, logs.Len())
}
