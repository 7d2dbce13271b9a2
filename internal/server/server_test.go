package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/koorda/internal/dialogue"
	"github.com/dyluth/koorda/internal/intent"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/dyluth/koorda/pkg/snapshot"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	events   []intent.Event
	ended    []string
	endErr   error
	response dialogue.Response
}

func (h *recordingHandler) HandleUtterance(_ context.Context, ev intent.Event) dialogue.Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.response
}

func (h *recordingHandler) HandleSessionEnd(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ended = append(h.ended, id)
	return h.endErr
}

func newTestServer(h Handler, pinger Pinger) http.Handler {
	return New(":0", h, pinger, telemetry.NewMetrics(""), zerolog.Nop()).Routes()
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestUtterance(t *testing.T) {
	h := &recordingHandler{response: dialogue.Question("Quel scénario vous intéresse?")}
	srv := newTestServer(h, nil)

	w := do(t, srv, http.MethodPost, "/v1/utterances", `{
		"conversation_id": "conv-1",
		"intent": "WorkflowStatus",
		"slots": {"workflowName": "Payroll"},
		"locale": "fr-FR",
		"user_id": "alice",
		"request_id": "req-9"
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp dialogue.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, dialogue.Question("Quel scénario vous intéresse?"), resp)

	require.Len(t, h.events, 1)
	assert.Equal(t, intent.Event{
		ConversationID: "conv-1",
		Name:           "WorkflowStatus",
		Slots:          map[string]string{"workflowName": "Payroll"},
		Locale:         "fr-FR",
		UserID:         "alice",
		RequestID:      "req-9",
	}, h.events[0])
}

func TestUtterance_RequestIDFallbacks(t *testing.T) {
	h := &recordingHandler{}
	srv := newTestServer(h, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/utterances", strings.NewReader(`{"conversation_id":"c","intent":"X"}`))
	req.Header.Set("X-Request-ID", "from-header")
	srv.ServeHTTP(httptest.NewRecorder(), req)

	do(t, srv, http.MethodPost, "/v1/utterances", `{"conversation_id":"c","intent":"X"}`)

	require.Len(t, h.events, 2)
	assert.Equal(t, "from-header", h.events[0].RequestID)
	assert.Len(t, h.events[1].RequestID, 36)
}

func TestUtterance_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"conversation_id":`, "malformed utterance"},
		{"missing conversation", `{"intent":"CheckNotification"}`, "conversation_id is required"},
		{"missing intent", `{"conversation_id":"c"}`, "intent is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			w := do(t, newTestServer(h, nil), http.MethodPost, "/v1/utterances", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Contains(t, resp.Error, tt.wantErr)
			assert.Empty(t, h.events)
		})
	}
}

func TestSessionEnd(t *testing.T) {
	h := &recordingHandler{}
	srv := newTestServer(h, nil)

	w := do(t, srv, http.MethodPost, "/v1/sessions/amzn1.echo-api.session.1/end", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"amzn1.echo-api.session.1"}, h.ended)
}

func TestSessionEnd_Failure(t *testing.T) {
	h := &recordingHandler{endErr: errors.New("redis down")}

	w := do(t, newTestServer(h, nil), http.MethodPost, "/v1/sessions/c/end", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthCheckEndpoint_MethodNotAllowed(t *testing.T) {
	w := do(t, newTestServer(&recordingHandler{}, nil), http.MethodPost, "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthCheckResponse(t *testing.T) {
	t.Run("healthy without remote store", func(t *testing.T) {
		w := do(t, newTestServer(&recordingHandler{}, nil), http.MethodGet, "/healthz", "")

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Empty(t, response.Redis)
	})

	t.Run("healthy when Redis reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := snapshot.NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test", 0)
		require.NoError(t, err)
		defer store.Close()

		w := do(t, newTestServer(&recordingHandler{}, store), http.MethodGet, "/healthz", "")

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "connected", response.Redis)
	})

	t.Run("unhealthy when Redis unavailable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := snapshot.NewRedisStore(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}, "test", 0)
		require.NoError(t, err)
		defer store.Close()
		mr.Close()

		w := do(t, newTestServer(&recordingHandler{}, store), http.MethodGet, "/healthz", "")

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "disconnected", response.Redis)
		assert.NotEmpty(t, response.Error)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(t, newTestServer(&recordingHandler{}, nil), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "koorda_conversation_queues")
}
