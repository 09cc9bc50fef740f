// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pu-events/portal/internal/auth"
	"github.com/pu-events/portal/internal/model"
	"github.com/pu-events/portal/internal/repository"
	"github.com/pu-events/portal/internal/service"
)

// EventHandler holds the public-facing handlers for event browsing and
// registration.
type EventHandler struct {
	events        *service.EventService
	registrations *service.RegistrationService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, registrations *service.RegistrationService) *EventHandler {
	return &EventHandler{events: events, registrations: registrations}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeErrorNotify(w http.ResponseWriter, status int, msg string, kind model.NotificationKind) {
	writeJSON(w, status, model.ErrorResponse{
		Error:        msg,
		Notification: model.NewNotification(kind, msg),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListEvents handles GET /events
// Returns all events, optionally filtered with ?category=.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
// Returns a single event by its UUID.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// registerResponse carries the created registration plus the toast the
// client should display.
type registerResponse struct {
	Registration *model.Registration `json:"registration"`
	Notification *model.Notification `json:"notification"`
}

// Register handles POST /events/{id}/register
// Creates the caller's registration for the event, rejecting duplicates
// atomically.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var form model.RegisterForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.registrations.Register(r.Context(), id, session.ID, form)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, repository.ErrAlreadyRegistered):
			writeErrorNotify(w, http.StatusConflict, "You are already registered for this event!", model.NotifyError)
		case errors.Is(err, context.DeadlineExceeded):
			writeErrorNotify(w, http.StatusGatewayTimeout, "Registration failed. Please try again.", model.NotifyError)
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Registration: reg,
		Notification: model.NewNotification(model.NotifySuccess, "Registration successful!"),
	})
}

// MyRegistration handles GET /events/{id}/registration
// Point read reporting whether the caller is registered for the event.
func (h *EventHandler) MyRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	reg, err := h.registrations.Lookup(r.Context(), id, session.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"registered": false})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to look up registration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"registered": true, "registration": reg})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
