package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gazepomdp/internal/config"
)

func TestInitializeJSONLogger(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "gaze"}, zapcore.AddSync(&buf))
	GetLogger().Debug("episode reset", zap.Int("n_step", 0))
	Sync()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "gaze", entry["logger"])
	assert.Equal(t, "episode reset", entry["msg"])
	assert.EqualValues(t, 0, entry["n_step"])
}

func TestInitializeConsoleLoggerRespectsLevel(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "warn", Format: "console", ServiceName: "gaze"}, zapcore.AddSync(&buf))
	logger := GetLogger()
	logger.Info("hidden")
	logger.Warn("visible")
	Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "gaze.")
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var first, second bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))
	GetLogger().Info("once")
	Sync()

	assert.Contains(t, first.String(), "once")
	assert.Empty(t, second.String())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))
	GetLogger().Debug("dropped")
	GetLogger().Info("kept")
	Sync()

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestFileCoreWritesJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	path := filepath.Join(t.TempDir(), "gaze.log")
	var console bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&console))
	GetLogger().Info("to file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "to file", entry["msg"])
	assert.Contains(t, console.String(), "to file")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	require.NotNil(t, GetLogger())
	assert.NotPanics(t, Sync)
}
