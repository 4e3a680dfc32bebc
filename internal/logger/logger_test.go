package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(&buf, Config{Format: "json", Level: zapcore.DebugLevel})
		require.NoError(t, err)
		log.Info("Compiled template", zap.String("source", "page.html"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "Compiled template", entry["msg"])
		assert.Equal(t, "page.html", entry["source"])
	})

	t.Run("logfmt", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(&buf, Config{Format: "logfmt", Level: zapcore.InfoLevel})
		require.NoError(t, err)
		log.Info("hello", zap.Int("markers", 3))
		assert.Contains(t, buf.String(), "markers=3")
		assert.Contains(t, buf.String(), `msg=hello`)
	})

	t.Run("auto falls back to logfmt off a terminal", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(&buf, NewConfig())
		require.NoError(t, err)
		log.Info("hello", zap.String("k", "v"))
		assert.Contains(t, buf.String(), "k=v")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, Config{Format: "xml"})
		require.Error(t, err)
	})
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Config{Format: "logfmt", Level: zapcore.WarnLevel})
	require.NoError(t, err)
	log.Info("quiet")
	assert.Empty(t, buf.String())
	log.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	log := zap.NewExample()
	ctx := NewContextWithLogger(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}
