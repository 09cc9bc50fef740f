package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pu-events/portal/internal/model"
)

// RegistrationService registers a user for an event exactly once.
type RegistrationService struct {
	events        EventStore
	registrations RegistrationStore
	now           func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(events EventStore, registrations RegistrationStore) *RegistrationService {
	return &RegistrationService{
		events:        events,
		registrations: registrations,
		now:           time.Now,
	}
}

// Register validates the form and creates a registration keyed by
// (event id, user id). The duplicate check is not a read-before-write:
// the store insert itself is conditional, so two concurrent attempts for
// the same pair cannot both succeed. Registration requires an
// authenticated caller; there is no anonymous fallback identity.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID string, form model.RegisterForm) (*model.Registration, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(strings.ToLower(form.Email))
	form.RegNo = strings.TrimSpace(form.RegNo)

	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if form.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !isValidEmail(form.Email) {
		return nil, fmt.Errorf("email is not a valid email address")
	}
	if form.RegNo == "" {
		return nil, fmt.Errorf("registration number is required")
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	reg := &model.Registration{
		EventID:       event.ID,
		UserID:        userID,
		Name:          form.Name,
		Email:         form.Email,
		RegNo:         form.RegNo,
		EventTitle:    event.Title,
		Authenticated: true,
		RegisteredAt:  s.now().UTC(),
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Lookup performs the point read behind "am I registered for this
// event". It returns the repository's not-found sentinel when the user
// has no registration.
func (s *RegistrationService) Lookup(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	if eventID == "" || userID == "" {
		return nil, fmt.Errorf("event id and user id are required")
	}
	return s.registrations.Get(ctx, eventID, userID)
}

// ListByEvent returns every registration for one event, verifying the
// event exists first.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.registrations.ListByEvent(ctx, eventID)
}
