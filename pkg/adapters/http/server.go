package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is the part of router.Router the API needs.
type Router interface {
	Go(ctx context.Context, to string, params map[string]any, opts state.Options) (*transition.Transition, error)
	Location() *domain.Location
	Key() string
	Registry() *state.Registry
}

// Server serves the HTTP API of one router.
type Server struct {
	Router  Router
	Streams *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
	version  string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics exposes the metrics of gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = gatherer }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewHandler creates the HTTP handler for r.
func NewHandler(r Router, opts ...Option) http.Handler {
	s := &Server{
		Router:  r,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(enableCORS)

	mux.Get("/health", s.GetHealth)
	mux.Get("/info", s.GetInfo)
	mux.Get("/states", s.GetStates)
	mux.Get("/states/{name}", s.GetState)
	mux.Get("/location", s.GetLocation)
	mux.Post("/transitions", s.PostTransition)
	mux.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "arbor-http",
		"version": s.version,
		"router":  s.Router.Key(),
	})
}

// GetStates handles the GET /states request.
func (s *Server) GetStates(w http.ResponseWriter, r *http.Request) {
	states := s.Router.Registry().List()
	resp := make([]StateView, len(states))
	for i, st := range states {
		resp[i] = newStateView(st)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetState handles the GET /states/{name} request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := s.Router.Registry().Get(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newStateView(st))
}

// GetLocation handles the GET /location request.
func (s *Server) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc := s.Router.Location()
	if loc == nil {
		s.writeError(w, http.StatusNotFound, domain.ErrLocationNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, loc)
}

// PostTransition handles the POST /transitions request.
func (s *Server) PostTransition(w http.ResponseWriter, r *http.Request) {
	var body TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("PostTransition: Invalid request body", "err", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.To == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing target state"))
		return
	}

	opts := state.Options{Reload: body.Reload, Inherit: body.Inherit, Custom: body.Custom}
	t, err := s.Router.Go(r.Context(), body.To, body.Params, opts)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Transition failed", "to", body.To, "err", err)
		}
		s.writeError(w, status, err)
		return
	}

	resp := newTransitionView(t)
	if t.Success() {
		if data, err := json.Marshal(s.Router.Location()); err == nil {
			s.Streams.Broadcast(s.Router.Key(), string(data))
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a transition error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTooManyRedirects):
		return http.StatusLoopDetected
	}
	var rej *transition.Rejection
	if errors.As(err, &rej) {
		switch rej.Type {
		case transition.RejectAborted, transition.RejectSuperseded:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// SubscribeEvents handles the GET /events request (SSE).
// Every location the router reaches through this API is pushed as a data frame.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(s.Router.Key())
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: location\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var rej *transition.Rejection
	if errors.As(err, &rej) {
		resp.Rejection = rej.Type.String()
	}
	s.writeJSON(w, status, resp)
}
