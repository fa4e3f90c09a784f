package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapter_WithField(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	l := NewZerologAdapter(&zl).WithField("step", "persist")

	l.Warn("app store returned 500")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "persist", line["step"])
	assert.Equal(t, "app store returned 500", line["message"])
}

func TestNullLogger(t *testing.T) {
	l := NewNullLogger()
	l.Info("ignored")
	assert.Equal(t, NullLogger{}, l.WithField("k", "v"))
}
