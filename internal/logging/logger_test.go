package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(buf *bytes.Buffer) Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return NewLogrusAdapterFromLogger(l)
}

func TestLogrusAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedLogger(&buf)

	logger.WithField(FieldFile, "jan.pdf").
		WithError(errors.New("boom")).
		Info("analysed", F(FieldCount, 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analysed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "jan.pdf", entry[FieldFile])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(3), entry[FieldCount])
}

func TestLogrusAdapter_WithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newBufferedLogger(&buf)
	_ = parent.WithFields(F("a", 1), F("b", 2))

	parent.Warn("plain")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "a")
	assert.Equal(t, "warning", entry["level"])
}

func TestNewLogrus_InvalidLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrus("loud", "text", &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level 'loud'")
}

func TestNewLogrus_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrus("debug", "json", &buf)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	NewLogrusAdapterFromLogger(logger).Debug("visible", F(FieldOperation, "analyze"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analyze", entry[FieldOperation])
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Error("ignored", F("k", "v"))
	})
}
