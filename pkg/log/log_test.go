package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{"debug", "debug", logrus.DebugLevel},
		{"info", "info", logrus.InfoLevel},
		{"warn", "warn", logrus.WarnLevel},
		{"error", "error", logrus.ErrorLevel},
		{"unknown falls back to info", "verbose", logrus.InfoLevel},
		{"empty falls back to info", "", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Init(Config{Level: tt.level}))
			assert.Equal(t, tt.want, GetLogger().GetLevel())
		})
	}
}

func TestJSONFormatCarriesFields(t *testing.T) {
	require.NoError(t, Init(Config{Level: "info", Format: "json"}))

	var buf bytes.Buffer
	GetLogger().SetOutput(&buf)

	WithFields(map[string]interface{}{
		"user_id": 42,
		"state":   "ASK_SELL_MILES",
	}).Info("state transition")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "state transition", entry["msg"])
	assert.Equal(t, float64(42), entry["user_id"])
	assert.Equal(t, "ASK_SELL_MILES", entry["state"])
	assert.NotEmpty(t, entry["time"])
}

func TestWithErrorField(t *testing.T) {
	require.NoError(t, Init(Config{Level: "info", Format: "json"}))

	var buf bytes.Buffer
	GetLogger().SetOutput(&buf)

	WithError(assert.AnError).Error("gateway call failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, assert.AnError.Error(), entry["error"])
}

func TestLevelFiltersLowerEntries(t *testing.T) {
	require.NoError(t, Init(Config{Level: "warn", Format: "text"}))

	var buf bytes.Buffer
	GetLogger().SetOutput(&buf)

	Debug("hidden")
	Info("hidden too")
	Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestFileOutputCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "nested", "milebot.log")

	require.NoError(t, Init(Config{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		Filename: filename,
	}))

	Info("written to file")

	_, err := os.Stat(filepath.Dir(filename))
	assert.NoError(t, err)
}

func TestGetLoggerWithoutInit(t *testing.T) {
	logger = nil
	assert.NotNil(t, GetLogger())
}
