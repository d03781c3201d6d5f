package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/router"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	reg := state.NewRegistry()
	for _, d := range []state.Declaration{
		{Name: "home"},
		{Name: "users", Resolve: []state.ResolveDecl{state.Value("title", "Users")}},
		{Name: "users.detail", Params: params.Schema{
			params.New("id", params.Int()),
			params.New("tab", params.String()).WithDefault("info").AsDynamic(),
		}},
		{Name: "locked"},
		{Name: "admin", Abstract: true},
	} {
		_, err := reg.Register(d)
		require.NoError(t, err)
	}

	r := router.New(reg, router.WithID("test-router"))
	r.Service().Hooks().OnBefore(transition.Criteria{To: transition.Glob("locked")}, inject.Fn(func(context.Context, inject.Values) (any, error) {
		return false, nil
	}))
	return r
}

func postTransition(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/transitions", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetStates(t *testing.T) {
	h := NewHandler(newTestRouter(t))

	req := httptest.NewRequest(http.MethodGet, "/states", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var states []StateView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&states))
	require.Len(t, states, 5)
	assert.Equal(t, "users.detail", states[2].Name)
	assert.Equal(t, "users", states[2].Parent)
	require.Len(t, states[2].Params, 2)
	assert.Equal(t, "int", states[2].Params[0].Type)
	assert.True(t, states[2].Params[1].Dynamic)
	assert.Equal(t, []string{"title"}, states[1].Resolves)
}

func TestGetState(t *testing.T) {
	h := NewHandler(newTestRouter(t))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/states/admin", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"abstract":true`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/states/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostTransition(t *testing.T) {
	h := NewHandler(newTestRouter(t))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/location", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "no location before the first transition")

	w = postTransition(t, h, `{"to":"users.detail","params":{"id":3}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view TransitionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, "success", view.Status)
	assert.Equal(t, "users.detail", view.To)
	assert.Equal(t, []string{"users", "users.detail"}, view.Entering)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/location", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"users.detail"`)

	w = postTransition(t, h, `{"to":"users.detail","params":{"id":3}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ignored"`)
}

func TestPostTransition_Errors(t *testing.T) {
	h := NewHandler(newTestRouter(t))

	tests := []struct {
		name      string
		body      string
		status    int
		rejection string
	}{
		{"bad json", `{`, http.StatusBadRequest, ""},
		{"missing target", `{}`, http.StatusBadRequest, ""},
		{"unknown state", `{"to":"nowhere"}`, http.StatusNotFound, ""},
		{"abstract state", `{"to":"admin"}`, http.StatusUnprocessableEntity, "error"},
		{"invalid params", `{"to":"users.detail","params":{"id":"x"}}`, http.StatusUnprocessableEntity, "error"},
		{"aborted", `{"to":"locked"}`, http.StatusConflict, "aborted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postTransition(t, h, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.rejection, resp.Rejection)
		})
	}
}

func TestSubscribeEvents(t *testing.T) {
	server := httptest.NewServer(NewHandler(newTestRouter(t)))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "event: ping")

	post, err := http.Post(server.URL+"/transitions", "application/json", bytes.NewBufferString(`{"to":"home"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	n, err = resp.Body.Read(buf)
	require.NoError(t, err)
	out := string(buf[:n])
	assert.Contains(t, out, "event: location")
	assert.Contains(t, out, `"state":"home"`)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	metrics.Transitions.WithLabelValues(observability.OutcomeSuccess).Inc()

	h := NewHandler(newTestRouter(t), WithMetrics(reg))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `arbor_transitions_total{outcome="success"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	h := NewHandler(newTestRouter(t))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInfoAndHealth(t *testing.T) {
	h := NewHandler(newTestRouter(t), WithVersion("1.2.3"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.JSONEq(t, `{"app":"arbor-http","version":"1.2.3","router":"test-router"}`, w.Body.String())
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("r")
	assert.Equal(t, 1, sm.Subscribers("r"))

	sm.Broadcast("r", "hello")
	sm.Broadcast("other", "ignored")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("r"))
	_, open := <-ch
	assert.False(t, open)
}
