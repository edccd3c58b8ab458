package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestRunEvents(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := WithRunID(WithOperation(zerolog.New(&buf), "simulation"), "run-1")

	LogRunStarted(logger, 1000, 60, 180, 42, 4)
	LogProgress(logger, 500, 1000)
	LogRunCompleted(logger, 1000, 47000, -12000, 0.1, 2*time.Second)
	LogExport(logger, "json", "/tmp/out.json", errors.New("disk full"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "run_started", lines[0]["event"])
	assert.Equal(t, "simulation", lines[0]["operation"])
	assert.Equal(t, "run-1", lines[0]["run_id"])
	assert.Equal(t, float64(42), lines[0]["seed"])

	assert.Equal(t, "Completed 500/1000 simulations", lines[1]["message"])
	assert.Equal(t, float64(500), lines[1]["completed"])

	assert.Equal(t, "run_completed", lines[2]["event"])
	assert.Equal(t, 0.1, lines[2]["prob_loss"])

	assert.Equal(t, "error", lines[3]["level"])
	assert.Equal(t, "disk full", lines[3]["error"])
}

func TestWithSite(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSite(zerolog.New(&buf), 7, "Salmon")
	logger.Info().Msg("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(7), lines[0]["site_id"])
	assert.Equal(t, "Salmon", lines[0]["species"])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), logger)
	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")

	// A bare context yields a no-op logger rather than panicking.
	bareLogger := FromContext(context.Background())
	bareLogger.Info().Msg("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "aquarisk.log")
	var console bytes.Buffer

	logger := newLogger(LogConfig{Level: "info", Console: true, File: true, FilePath: path, MaxSize: 1}, &console)
	logger.Info().Msg("written")

	assert.Contains(t, console.String(), "written")
	assert.FileExists(t, path)
}
