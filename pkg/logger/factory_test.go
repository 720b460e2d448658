package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Run("creates JSON logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello")
		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText))
		log.Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("level name", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevelName("warn"))
		log.Info("dropped")
		assert.Empty(t, buf.String())
		log.Warn("kept")
		assert.Equal(t, "kept", decode(t, buf)["msg"])
	})

	t.Run("production preset", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment("prod", "storefront"))
		log.Info("up")
		entry := decode(t, buf)
		assert.Equal(t, "storefront", entry["service"])
		assert.Equal(t, logger.EnvProduction, entry["env"])
	})

	t.Run("extracts from context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		type key string
		log := logger.New(logger.WithOutput(buf), logger.WithContextValue("request_id", key("rid")))
		ctx := context.WithValue(context.Background(), key("rid"), "42")
		log.InfoContext(ctx, "context msg")
		assert.Equal(t, "42", decode(t, buf)["request_id"])
	})
}

func TestContextWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	rid := func(context.Context) (slog.Attr, bool) { return logger.RequestID("from-extractor"), true }
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(rid))

	ctx := logger.ContextWithAttrs(context.Background(), logger.GuestID("g-1"))
	ctx = logger.ContextWithAttrs(ctx, logger.Component("cart"))
	log.InfoContext(ctx, "tagged")
	entry := decode(t, buf)
	assert.Equal(t, "g-1", entry["guest_id"])
	assert.Equal(t, "cart", entry["component"])
	assert.Equal(t, "from-extractor", entry["request_id"])

	t.Run("record attributes win", func(t *testing.T) {
		buf.Reset()
		log.InfoContext(ctx, "explicit", logger.GuestID("g-2"), logger.RequestID("explicit"))
		assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"guest_id"`)))
		entry := decode(t, buf)
		assert.Equal(t, "g-2", entry["guest_id"])
		assert.Equal(t, "explicit", entry["request_id"])
	})
}

func TestAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf))
	log.Info("mount", logger.Remote("basket", "./Basket"), logger.Error(errors.New("boom")), logger.Error(nil))
	entry := decode(t, buf)
	assert.Equal(t, "boom", entry["error"])
	remote, ok := entry["remote"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "basket", remote["name"])
	assert.Equal(t, "./Basket", remote["module"])
}

func TestWithFormatPanics(t *testing.T) {
	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestDiscard(t *testing.T) {
	log := logger.Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
