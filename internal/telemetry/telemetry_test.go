package telemetry

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "koorda.log")
	logger, err := NewLogger(LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	bridgeLogger := Component(logger, "bridge")
	bridgeLogger.Info().Str("event", "poller_started").Msg("started")
	logger.Debug().Msg("filtered out")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "bridge", entry["component"])
	assert.Equal(t, "poller_started", entry["event"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewLogger_BadPath(t *testing.T) {
	_, err := NewLogger(LogConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics("")

	m.RecordPoll("ok")
	m.RecordPoll("ok")
	m.RecordPoll("error")
	m.RecordDelivered()
	m.RecordSkipped("no_key")
	m.RecordAwait("timeout")
	m.SetLiveQueues(3)
	m.RecordUtterance("CheckNotification", "question")
	m.RecordBackendError("notifications")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pollIterations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollIterations.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDelivered))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.liveQueues))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "koorda_feed_polls_total")
	assert.Contains(t, rec.Body.String(), "koorda_utterances_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPoll("ok")
		m.RecordDelivered()
		m.RecordSkipped("type")
		m.RecordAwait("reply")
		m.SetLiveQueues(1)
		m.RecordUtterance("x", "statement")
		m.RecordBackendError("x")
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
