package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pu-events/portal/internal/assets"
	"github.com/pu-events/portal/internal/auth"
	"github.com/pu-events/portal/internal/model"
	"github.com/pu-events/portal/internal/repository"
	"github.com/pu-events/portal/internal/service"
)

// AdminHandler holds the dashboard handlers: event CRUD, the aggregated
// registration table, CSV export, and banner uploads.
type AdminHandler struct {
	events        *service.EventService
	registrations *service.RegistrationService
	admin         *service.AdminService
	assets        assets.Store
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(
	events *service.EventService,
	registrations *service.RegistrationService,
	admin *service.AdminService,
	store assets.Store,
) *AdminHandler {
	return &AdminHandler{events: events, registrations: registrations, admin: admin, assets: store}
}

// eventResponse pairs an event mutation result with its toast.
type eventResponse struct {
	Event        *model.Event        `json:"event"`
	Notification *model.Notification `json:"notification"`
}

// CreateEvent handles POST /admin/events
func (h *AdminHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	var form model.EventForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), form, session.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, eventResponse{
		Event:        event,
		Notification: model.NewNotification(model.NotifySuccess, "Event created successfully!"),
	})
}

// UpdateEvent handles PUT /admin/events/{id}
func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, _ := auth.SessionFromContext(r.Context())

	var form model.EventForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), id, form, session.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Event:        event,
		Notification: model.NewNotification(model.NotifySuccess, "Event updated successfully!"),
	})
}

// DeleteEvent handles DELETE /admin/events/{id}
// Removes the event and its whole registration sub-tree in one shot.
func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeErrorNotify(w, http.StatusInternalServerError, "Failed to delete event. Please try again.", model.NotifyError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notification": model.NewNotification(model.NotifySuccess, "Event and all registrations deleted successfully!"),
	})
}

// Overview handles GET /admin/events
// Lists events with their registration counts.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.events.Overview(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// EventRegistrations handles GET /admin/events/{id}/registrations
func (h *AdminHandler) EventRegistrations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	regs, err := h.registrations.ListByEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Registrations handles GET /admin/registrations?search=&event=
// Returns the flattened, filtered registration table.
func (h *AdminHandler) Registrations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.admin.Registrations(r.Context(),
		r.URL.Query().Get("search"), r.URL.Query().Get("event"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}

	if rows == nil {
		rows = []model.RegistrationRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// ExportCSV handles GET /admin/registrations/export
// Streams the current filtered table as a CSV download.
func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.admin.Registrations(r.Context(),
		r.URL.Query().Get("search"), r.URL.Query().Get("event"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export registrations")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.admin.ExportFilename()+`"`)
	if err := h.admin.WriteCSV(w, rows); err != nil {
		// Headers are already gone; nothing useful left to send.
		return
	}
}

// uploadResponse carries the issued asset URL plus its toast.
type uploadResponse struct {
	URL          string              `json:"url"`
	Notification *model.Notification `json:"notification"`
}

// Upload handles POST /admin/uploads
// Accepts a multipart image under the "image" field and returns its
// retrieval URL.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Slack over the image ceiling covers multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, assets.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeErrorNotify(w, http.StatusBadRequest, "Image size should be less than 10MB.", model.NotifyError)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	url, err := h.assets.Upload(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrTooLarge):
			writeErrorNotify(w, http.StatusBadRequest, "Image size should be less than 10MB.", model.NotifyError)
		case errors.Is(err, assets.ErrNotImage):
			writeErrorNotify(w, http.StatusBadRequest, "Please select a valid image file.", model.NotifyError)
		default:
			writeErrorNotify(w, http.StatusInternalServerError, "Failed to upload image. Please try again.", model.NotifyError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		URL:          url,
		Notification: model.NewNotification(model.NotifySuccess, "Image uploaded successfully!"),
	})
}
