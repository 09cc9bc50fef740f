package handler_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pu-events/portal/internal/assets"
	"github.com/pu-events/portal/internal/auth"
	"github.com/pu-events/portal/internal/handler"
	"github.com/pu-events/portal/internal/model"
	"github.com/pu-events/portal/internal/service"
	"github.com/pu-events/portal/internal/testfixtures"
)

type fixture struct {
	router   chi.Router
	sessions *auth.Sessions
	events   *testfixtures.EventStore
	regs     *testfixtures.RegistrationStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events, regs := testfixtures.NewStores()
	eventSvc := service.NewEventService(events, regs)
	regSvc := service.NewRegistrationService(events, regs)
	adminSvc := service.NewAdminService(regs, time.UTC)
	sessions := auth.NewSessions("test-secret", time.Hour, "@poornima.edu.in")

	store, err := assets.NewDiskStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("asset store: %v", err)
	}

	eventHandler := handler.NewEventHandler(eventSvc, regSvc)
	adminHandler := handler.NewAdminHandler(eventSvc, regSvc, adminSvc, store)

	r := chi.NewRouter()
	r.Get("/health", handler.HealthCheck)
	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{id}", eventHandler.GetEvent)
		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireSession)
			r.Post("/{id}/register", eventHandler.Register)
			r.Get("/{id}/registration", eventHandler.MyRegistration)
		})
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(sessions.RequireSession)
		r.Use(sessions.RequireAdmin)
		r.Get("/events", adminHandler.Overview)
		r.Post("/events", adminHandler.CreateEvent)
		r.Put("/events/{id}", adminHandler.UpdateEvent)
		r.Delete("/events/{id}", adminHandler.DeleteEvent)
		r.Get("/events/{id}/registrations", adminHandler.EventRegistrations)
		r.Get("/registrations", adminHandler.Registrations)
		r.Get("/registrations/export", adminHandler.ExportCSV)
		r.Post("/uploads", adminHandler.Upload)
	})

	return &fixture{router: r, sessions: sessions, events: events, regs: regs}
}

func (f *fixture) token(t *testing.T, email string) string {
	t.Helper()
	token, err := f.sessions.Mint(auth.Identity{
		ID:          "uid-" + email,
		DisplayName: "Test User",
		Email:       email,
	})
	if err != nil {
		t.Fatalf("mint session: %v", err)
	}
	return token
}

func (f *fixture) createEvent(t *testing.T, title string) *model.Event {
	t.Helper()
	event, err := f.events.Create(context.Background(), model.EventForm{
		Title: title, Date: "2025-01-10", Time: "14:00", Venue: "Hall A",
		Eligibility: "All", Category: "academic", Cost: "Free",
	}, "admin@poornima.edu.in")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterRequiresSession(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, "Tech Talk")

	rec := f.do(t, http.MethodPost, "/events/"+event.ID+"/register", "",
		model.RegisterForm{Name: "Asha Rao", Email: "asha@x.edu", RegNo: "2024/001"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Notification == nil || resp.Notification.Kind != model.NotifyLogin {
		t.Errorf("notification = %+v, want login kind", resp.Notification)
	}
	if resp.Notification != nil && resp.Notification.DurationMs != 2000 {
		t.Errorf("login toast duration = %d, want 2000", resp.Notification.DurationMs)
	}
}

func TestRegisterFlow(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, "Tech Talk")
	token := f.token(t, "asha@x.edu")
	form := model.RegisterForm{Name: "Asha Rao", Email: "asha@x.edu", RegNo: "2024/001"}

	rec := f.do(t, http.MethodPost, "/events/"+event.ID+"/register", token, form)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Registration model.Registration  `json:"registration"`
		Notification *model.Notification `json:"notification"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Registration.EventTitle != "Tech Talk" || !created.Registration.Authenticated {
		t.Errorf("registration = %+v", created.Registration)
	}
	if created.Notification == nil || created.Notification.Kind != model.NotifySuccess {
		t.Errorf("notification = %+v, want success", created.Notification)
	}

	// Same user again: conflict, no second row.
	rec = f.do(t, http.MethodPost, "/events/"+event.ID+"/register", token, form)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}

	// Point read confirms the single registration.
	rec = f.do(t, http.MethodGet, "/events/"+event.ID+"/registration", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rec.Code)
	}
	var lookup struct {
		Registered bool `json:"registered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &lookup); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !lookup.Registered {
		t.Error("lookup should report registered")
	}
}

func TestRegisterUnknownEventReturns404(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "asha@x.edu")

	rec := f.do(t, http.MethodPost, "/events/missing/register", token,
		model.RegisterForm{Name: "Asha Rao", Email: "asha@x.edu", RegNo: "2024/001"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListEventsCategoryQuery(t *testing.T) {
	f := newFixture(t)
	f.createEvent(t, "Tech Talk")
	if _, err := f.events.Create(context.Background(), model.EventForm{
		Title: "Cricket Cup", Date: "2025-03-01", Time: "09:00", Venue: "Ground",
		Eligibility: "All", Category: "sports", Cost: "Free",
	}, "admin@poornima.edu.in"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/events/?category=sports", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var events []model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Cricket Cup" {
		t.Fatalf("events = %+v", events)
	}

	if rec := f.do(t, http.MethodGet, "/events/?category=parties", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown category status = %d, want 400", rec.Code)
	}
}

func TestAdminRequiresAdminClaim(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(t, http.MethodGet, "/admin/registrations", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	student := f.token(t, "student@gmail.com")
	if rec := f.do(t, http.MethodGet, "/admin/registrations", student, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("student status = %d, want 403", rec.Code)
	}

	staff := f.token(t, "staff@poornima.edu.in")
	if rec := f.do(t, http.MethodGet, "/admin/registrations", staff, nil); rec.Code != http.StatusOK {
		t.Fatalf("staff status = %d, want 200", rec.Code)
	}
}

func TestAdminEventLifecycle(t *testing.T) {
	f := newFixture(t)
	staff := f.token(t, "staff@poornima.edu.in")

	rec := f.do(t, http.MethodPost, "/admin/events", staff, model.EventForm{
		Title: "Test Talk", Date: "2025-01-10", Time: "14:00", Venue: "Hall A",
		Eligibility: "All", Category: "academic", Cost: "Free",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Event model.Event `json:"event"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Event.CreatedBy != "staff@poornima.edu.in" {
		t.Errorf("created by = %q", created.Event.CreatedBy)
	}

	// A student registers, then the event is deleted: the registration
	// sub-tree must go with it.
	student := f.token(t, "asha@x.edu")
	rec = f.do(t, http.MethodPost, "/events/"+created.Event.ID+"/register", student,
		model.RegisterForm{Name: "Asha Rao", Email: "asha@x.edu", RegNo: "2024/001"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/admin/events/"+created.Event.ID, staff, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/events/"+created.Event.ID, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("event after delete = %d, want 404", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/admin/registrations?event="+created.Event.ID, staff, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("registrations status = %d", rec.Code)
	}
	var rows []model.RegistrationRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows after cascade delete = %+v, want none", rows)
	}
}

func TestExportCSVDownload(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, "Test Talk")
	student := f.token(t, "asha@x.edu")
	staff := f.token(t, "staff@poornima.edu.in")

	rec := f.do(t, http.MethodPost, "/events/"+event.ID+"/register", student,
		model.RegisterForm{Name: "Asha Rao", Email: "asha@x.edu", RegNo: "2024/001"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/admin/registrations/export", staff, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "registrations_") || !strings.Contains(disposition, ".csv") {
		t.Errorf("content disposition = %q", disposition)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(records) != 2 || records[1][0] != "Asha Rao" || records[1][3] != "Test Talk" {
		t.Fatalf("records = %v", records)
	}
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	staff := f.token(t, "staff@poornima.edu.in")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	body, contentType := multipartBody(t, "banner.png", png)
	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", body)
	req.Header.Set("Authorization", "Bearer "+staff)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(uploaded.URL, "/uploads/events/") {
		t.Errorf("url = %q", uploaded.URL)
	}

	body, contentType = multipartBody(t, "notes.txt", []byte("plain text, not an image"))
	req = httptest.NewRequest(http.MethodPost, "/admin/uploads", body)
	req.Header.Set("Authorization", "Bearer "+staff)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-image status = %d, want 400", rec.Code)
	}
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}
