package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")

	ctx := WithLogger(context.Background(), &logger)
	ctx = WithFields(ctx, map[string]string{"session": "s-1"})
	Ctx(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"session":"s-1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestCtxFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default(), Ctx(context.Background()))
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "loud", "json")
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
