// Package httpapi exposes conversations over HTTP. Each session is
// rehydrated from its persisted snapshot per request, driven, and
// persisted again, so the server itself stays stateless and can run
// replicated behind a session manager with distributed locking.
//
// Delays never block a request: events are flushed synchronously and
// returned with their timing hints attached, leaving the pacing to the
// client.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/branchwork/bramble"
	"github.com/branchwork/bramble/internal/logging"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/ports"
	"github.com/branchwork/bramble/pkg/schedule"
	"github.com/branchwork/bramble/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// flushWindow collapses every scheduled phase of a request into the
// synchronous response. Flow documents use delays of seconds, not
// hours.
const flushWindow = 24 * time.Hour

// Server hosts multi-session conversations over a FlowSource.
type Server struct {
	source   ports.FlowSource
	sessions *session.Manager
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	registry *prometheus.Registry
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks attaches hooks to every session engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// WithMetricsRegistry sets the registry served at /metrics.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// NewServer creates a Server over the given source and session manager.
func NewServer(source ports.FlowSource, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		source:   source,
		sessions: sessions,
		logger:   logging.NewNop(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/flows", s.handleListFlows)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/messages", s.handleMessage)
			r.Post("/buttons", s.handleButton)
			r.Post("/navigate", s.handleNavigate)
			r.Post("/reset", s.handleReset)
		})
	})
	return r
}

type createRequest struct {
	Flow      string         `json:"flow"`
	SessionID string         `json:"session_id"`
	Variables map[string]any `json:"variables,omitempty"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type buttonRequest struct {
	Value string `json:"value"`
}

type navigateRequest struct {
	Branch string `json:"branch"`
}

// eventPayload is an emitted event plus the timing hints of the branch
// that produced it, so clients can pace rendering themselves.
type eventPayload struct {
	domain.Event
	Predelay domain.Duration `json:"predelay,omitempty"`
	Delay    domain.Duration `json:"delay,omitempty"`
}

type sessionResponse struct {
	SessionID     string              `json:"session_id"`
	Flow          string              `json:"flow"`
	Status        domain.Status       `json:"status"`
	CurrentBranch string              `json:"current_branch"`
	Events        []eventPayload      `json:"events,omitempty"`
	Diagnostics   []domain.Diagnostic `json:"diagnostics,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	names, err := s.source.Flows()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "failed to list flows", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flows": names})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Flow == "" || req.SessionID == "" {
		s.fail(w, http.StatusBadRequest, "flow and session_id are required", nil)
		return
	}

	flow, err := s.source.Flow(req.Flow)
	if err != nil {
		s.fail(w, http.StatusNotFound, "unknown flow", err)
		return
	}

	err = s.sessions.WithLock(r.Context(), req.SessionID, func(ctx context.Context) error {
		_, loadErr := s.sessions.Store().Load(ctx, req.SessionID)
		if loadErr == nil {
			return fmt.Errorf("%w: %q", domain.ErrSessionExists, req.SessionID)
		}
		if !errors.Is(loadErr, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", loadErr)
		}

		conv, events, drive, closeConv, buildErr := s.buildConversation(flow, req.Variables)
		if buildErr != nil {
			return buildErr
		}
		defer closeConv()

		if _, startErr := conv.Start(); startErr != nil {
			return startErr
		}
		drive()

		if saveErr := s.sessions.Store().Save(ctx, req.SessionID, conv.Snapshot()); saveErr != nil {
			return saveErr
		}
		writeJSON(w, http.StatusCreated, s.respond(req.SessionID, conv, *events))
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionExists) {
			s.fail(w, http.StatusConflict, "session already exists", err)
			return
		}
		s.fail(w, http.StatusInternalServerError, "failed to create session", err)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	state, err := s.sessions.Load(r.Context(), sessionID)
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, http.StatusInternalServerError, "failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	s.drive(w, r, func(conv *bramble.Conversation) error {
		return conv.SubmitText(req.Text)
	})
}

func (s *Server) handleButton(w http.ResponseWriter, r *http.Request) {
	var req buttonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	s.drive(w, r, func(conv *bramble.Conversation) error {
		return conv.SubmitButton(req.Value)
	})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	s.drive(w, r, func(conv *bramble.Conversation) error {
		_, err := conv.NavigateToBranch(req.Branch)
		return err
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.drive(w, r, func(conv *bramble.Conversation) error {
		conv.Reset()
		return nil
	})
}

// drive is the shared request cycle: load snapshot, rebuild the engine,
// apply the input, flush scheduled phases, persist, respond.
func (s *Server) drive(w http.ResponseWriter, r *http.Request, apply func(*bramble.Conversation) error) {
	sessionID := chi.URLParam(r, "sessionID")

	err := s.sessions.WithLock(r.Context(), sessionID, func(ctx context.Context) error {
		state, err := s.sessions.Store().Load(ctx, sessionID)
		if err != nil {
			s.notFoundOr500(w, err)
			return nil
		}

		flow, err := s.source.Flow(state.Flow)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, "session references unknown flow", err)
			return nil
		}

		conv, events, flush, closeConv, err := s.buildConversation(flow, nil)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, "failed to build engine", err)
			return nil
		}
		defer closeConv()

		if err := conv.Restore(state); err != nil {
			s.fail(w, http.StatusInternalServerError, "failed to restore session", err)
			return nil
		}

		if err := apply(conv); err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, domain.ErrNotStarted):
				status = http.StatusConflict
			case errors.Is(err, domain.ErrUnknownBranch):
				status = http.StatusNotFound
			}
			s.fail(w, status, "failed to apply input", err)
			return nil
		}
		flush()

		if err := s.sessions.Store().Save(ctx, sessionID, conv.Snapshot()); err != nil {
			s.fail(w, http.StatusInternalServerError, "failed to persist session", err)
			return nil
		}

		writeJSON(w, http.StatusOK, s.respond(sessionID, conv, *events))
		return nil
	})
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "session access failed", err)
	}
}

// buildConversation creates a session engine with a manual scheduler
// and an event collector. flush collapses pending delayed phases into
// the collected slice.
func (s *Server) buildConversation(flow *domain.Flow, vars map[string]any) (conv *bramble.Conversation, events *[]eventPayload, flush func(), closeConv func(), err error) {
	manual := schedule.NewManual()

	conv, err = bramble.New(flow,
		bramble.WithSubflows(s.source.Subflows()),
		bramble.WithVariables(vars),
		bramble.WithScheduler(manual),
		bramble.WithLifecycleHooks(s.hooks),
		bramble.WithLogger(s.logger))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	collected := &[]eventPayload{}
	conv.Subscribe(func(ev domain.Event) {
		payload := eventPayload{Event: ev}
		if b, ok := flow.Branches[ev.Branch]; ok && b != nil {
			payload.Predelay = b.Predelay
			payload.Delay = b.Delay
		}
		*collected = append(*collected, payload)
	})

	return conv, collected, func() { manual.Advance(flushWindow) }, conv.Close, nil
}

func (s *Server) respond(sessionID string, conv *bramble.Conversation, events []eventPayload) sessionResponse {
	return sessionResponse{
		SessionID:     sessionID,
		Flow:          conv.Name,
		Status:        conv.Status(),
		CurrentBranch: conv.CurrentBranch(),
		Events:        events,
		Diagnostics:   conv.Diagnostics(),
	}
}

func (s *Server) notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.fail(w, http.StatusNotFound, "session not found", err)
		return
	}
	s.fail(w, http.StatusInternalServerError, "failed to load session", err)
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		s.logger.Warn(msg, "err", err, "status", status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
