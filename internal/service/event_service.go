package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pu-events/portal/internal/model"
)

// EventService orchestrates event CRUD for the admin dashboard and the
// public listing.
type EventService struct {
	events        EventStore
	registrations RegistrationStore
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, registrations RegistrationStore) *EventService {
	return &EventService{events: events, registrations: registrations}
}

// EventOverview pairs an event with its registration count for the admin
// events listing.
type EventOverview struct {
	model.Event
	RegistrationCount int `json:"registration_count"`
}

// CreateEvent validates the form and delegates to the repository,
// stamping the creating admin's email.
func (s *EventService) CreateEvent(ctx context.Context, form model.EventForm, createdBy string) (*model.Event, error) {
	if err := validateEventForm(&form); err != nil {
		return nil, err
	}
	return s.events.Create(ctx, form, createdBy)
}

// ListEvents returns events, optionally restricted to one category.
func (s *EventService) ListEvents(ctx context.Context, category string) ([]model.Event, error) {
	var filter model.Category
	if category != "" {
		parsed, err := model.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}
	return s.events.List(ctx, filter)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	return s.events.GetByID(ctx, id)
}

// UpdateEvent merges form fields into an existing event, preserving the
// original creation stamp and recording who updated it.
func (s *EventService) UpdateEvent(ctx context.Context, id string, form model.EventForm, updatedBy string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if err := validateEventForm(&form); err != nil {
		return nil, err
	}
	return s.events.Update(ctx, id, form, updatedBy)
}

// DeleteEvent removes an event and cascades to its registrations.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("event id is required")
	}
	return s.events.Delete(ctx, id)
}

// Overview returns all events annotated with registration counts.
func (s *EventService) Overview(ctx context.Context) ([]EventOverview, error) {
	events, err := s.events.List(ctx, "")
	if err != nil {
		return nil, err
	}
	counts, err := s.registrations.CountsByEvent(ctx)
	if err != nil {
		return nil, err
	}

	overview := make([]EventOverview, 0, len(events))
	for _, event := range events {
		overview = append(overview, EventOverview{
			Event:             event,
			RegistrationCount: counts[event.ID],
		})
	}
	return overview, nil
}

// Seed inserts the showcase events when the portal starts with an empty
// store, so a fresh install is not a blank page.
func (s *EventService) Seed(ctx context.Context) error {
	existing, err := s.events.List(ctx, "")
	if err != nil {
		return fmt.Errorf("check existing events: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	samples := []model.EventForm{
		{
			Title:       "AI & Machine Learning Workshop",
			Description: "Dive deep into the world of AI and ML with hands-on projects and expert guidance from industry professionals.",
			Date:        "2024-12-15",
			Time:        "14:00",
			Venue:       "Computer Lab 101",
			Eligibility: "All students",
			Category:    string(model.CategoryAcademic),
			Cost:        "Free",
		},
		{
			Title:       "Career Guidance Seminar",
			Description: "Get insights on career paths, job market trends, and interview tips from successful alumni.",
			Date:        "2024-12-20",
			Time:        "10:00",
			Venue:       "Auditorium",
			Eligibility: "Final year students",
			Category:    string(model.CategoryCareer),
			Cost:        "Free",
		},
		{
			Title:       "Cultural Dance Competition",
			Description: "Showcase your talent in traditional and contemporary dance forms with exciting prizes.",
			Date:        "2024-12-25",
			Time:        "18:00",
			Venue:       "Main Stage",
			Eligibility: "All students",
			Category:    string(model.CategoryCultural),
			Cost:        "$5",
			Image:       "🎨",
		},
	}
	for _, form := range samples {
		if _, err := s.events.Create(ctx, form, "system"); err != nil {
			return fmt.Errorf("seed event %q: %w", form.Title, err)
		}
	}
	return nil
}

func validateEventForm(form *model.EventForm) error {
	form.Title = strings.TrimSpace(form.Title)
	form.Venue = strings.TrimSpace(form.Venue)
	form.Eligibility = strings.TrimSpace(form.Eligibility)
	form.Description = strings.TrimSpace(form.Description)

	if form.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if form.Date == "" {
		return fmt.Errorf("event date is required")
	}
	if form.Time == "" {
		return fmt.Errorf("event time is required")
	}
	if form.Venue == "" {
		return fmt.Errorf("event venue is required")
	}
	if form.Eligibility == "" {
		return fmt.Errorf("event eligibility is required")
	}
	if form.Cost == "" {
		form.Cost = "Free"
	}
	if _, err := model.ParseCategory(form.Category); err != nil {
		return err
	}
	return nil
}
