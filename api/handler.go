// Package api exposes the onboarding turn API over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/types"
)

var validate = validator.New()

// TurnLister returns the recorded turns of one session, oldest first.
type TurnLister interface {
	Turns(ctx context.Context, sessionID string) ([]types.TurnRecord, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service *agent.Service
	turns   TurnLister
	pinger  Pinger
}

type HandlerOption func(*Handler)

func WithTurnLister(turns TurnLister) HandlerOption {
	return func(h *Handler) { h.turns = turns }
}

func WithPinger(pinger Pinger) HandlerOption {
	return func(h *Handler) { h.pinger = pinger }
}

func NewHandler(service *agent.Service, opts ...HandlerOption) *Handler {
	h := &Handler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type messageRequest struct {
	// Text may be empty; only a missing field is a bad request.
	Text *string `json:"text" validate:"required,max=2000"`
}

type turnsResponse struct {
	SessionID string             `json:"session_id"`
	Turns     []types.TurnRecord `json:"turns"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// serviceError maps turn API errors to status codes.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		slog.Error("Turn API failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/{id}", h.GetSession)
		r.Post("/{id}/messages", h.PostMessage)
		if h.turns != nil {
			r.Get("/{id}/turns", h.ListTurns)
		}
	})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	reply, err := h.service.StartSession(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	JSON(w, http.StatusCreated, reply)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	reply, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	JSON(w, http.StatusOK, reply)
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		Error(w, http.StatusBadRequest, "text is required and must be at most 2000 characters")
		return
	}
	reply, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"), *req.Text)
	if err != nil {
		serviceError(w, err)
		return
	}
	JSON(w, http.StatusOK, reply)
}

func (h *Handler) ListTurns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.Session(r.Context(), id); err != nil {
		serviceError(w, err)
		return
	}
	turns, err := h.turns.Turns(r.Context(), id)
	if err != nil {
		serviceError(w, err)
		return
	}
	if turns == nil {
		turns = []types.TurnRecord{}
	}
	JSON(w, http.StatusOK, turnsResponse{SessionID: id, Turns: turns})
}

// Health reports the API and, when configured, the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"api": "ok"}
	status := map[string]any{"status": "healthy", "checks": checks}
	statusCode := http.StatusOK

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			status["status"] = "degraded"
			checks["database"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	JSON(w, statusCode, status)
}
