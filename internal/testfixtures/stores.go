// Package testfixtures provides in-memory store implementations used by
// service and handler tests.
package testfixtures

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pu-events/portal/internal/model"
	"github.com/pu-events/portal/internal/repository"
)

// NewStores builds a linked pair of in-memory stores mirroring the
// Postgres repositories, including the cascade on event delete and the
// atomic insert-if-absent on registrations.
func NewStores() (*EventStore, *RegistrationStore) {
	regs := &RegistrationStore{
		byEvent: make(map[string][]model.Registration),
	}
	events := &EventStore{
		byID:          make(map[string]model.Event),
		registrations: regs,
	}
	return events, regs
}

// EventStore is an in-memory stand-in for repository.EventRepository.
type EventStore struct {
	mu            sync.Mutex
	byID          map[string]model.Event
	order         []string // creation order
	registrations *RegistrationStore
}

func (s *EventStore) Create(ctx context.Context, form model.EventForm, createdBy string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	image := form.Image
	if image == "" {
		image = model.DefaultEventImage
	}
	event := model.Event{
		ID:          uuid.New().String(),
		Title:       form.Title,
		Date:        form.Date,
		Time:        form.Time,
		Venue:       form.Venue,
		Description: form.Description,
		Eligibility: form.Eligibility,
		Cost:        form.Cost,
		Category:    model.Category(form.Category),
		Image:       image,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
	}
	s.byID[event.ID] = event
	s.order = append(s.order, event.ID)
	return &event, nil
}

// List returns events newest-first, like the repository's
// ORDER BY created_at DESC.
func (s *EventStore) List(ctx context.Context, category model.Category) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []model.Event
	for i := len(s.order) - 1; i >= 0; i-- {
		event := s.byID[s.order[i]]
		if category != "" && event.Category != category {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *EventStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &event, nil
}

func (s *EventStore) Update(ctx context.Context, id string, form model.EventForm, updatedBy string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	event.Title = form.Title
	event.Date = form.Date
	event.Time = form.Time
	event.Venue = form.Venue
	event.Description = form.Description
	event.Eligibility = form.Eligibility
	event.Cost = form.Cost
	event.Category = model.Category(form.Category)
	if form.Image != "" {
		event.Image = form.Image
	}
	now := time.Now().UTC()
	event.UpdatedAt = &now
	event.UpdatedBy = updatedBy
	s.byID[id] = event
	return &event, nil
}

func (s *EventStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.registrations.removeByEvent(id)
	return nil
}

// RegistrationStore is an in-memory stand-in for
// repository.RegistrationRepository.
type RegistrationStore struct {
	mu         sync.Mutex
	byEvent    map[string][]model.Registration
	eventOrder []string // first-registration order per event
	failWrites bool
}

// FailWrites makes every subsequent Create return an error, simulating a
// store outage.
func (s *RegistrationStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

func (s *RegistrationStore) Create(ctx context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return ErrStoreUnavailable
	}
	for _, existing := range s.byEvent[reg.EventID] {
		if existing.UserID == reg.UserID {
			return repository.ErrAlreadyRegistered
		}
	}
	if len(s.byEvent[reg.EventID]) == 0 {
		s.eventOrder = append(s.eventOrder, reg.EventID)
	}
	s.byEvent[reg.EventID] = append(s.byEvent[reg.EventID], *reg)
	return nil
}

func (s *RegistrationStore) Get(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reg := range s.byEvent[eventID] {
		if reg.UserID == userID {
			out := reg
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *RegistrationStore) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs := make([]model.Registration, len(s.byEvent[eventID]))
	copy(regs, s.byEvent[eventID])
	return regs, nil
}

func (s *RegistrationStore) Rows(ctx context.Context, eventID string) ([]model.RegistrationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []model.RegistrationRow
	for _, id := range s.eventOrder {
		if eventID != "" && id != eventID {
			continue
		}
		for _, reg := range s.byEvent[id] {
			rows = append(rows, model.RegistrationRow{
				Name:         reg.Name,
				Email:        reg.Email,
				RegNo:        reg.RegNo,
				EventTitle:   reg.EventTitle,
				EventID:      reg.EventID,
				RegisteredAt: reg.RegisteredAt,
			})
		}
	}
	return rows, nil
}

func (s *RegistrationStore) CountsByEvent(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for id, regs := range s.byEvent {
		if len(regs) > 0 {
			counts[id] = len(regs)
		}
	}
	return counts, nil
}

func (s *RegistrationStore) removeByEvent(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byEvent, eventID)
	for i, id := range s.eventOrder {
		if id == eventID {
			s.eventOrder = append(s.eventOrder[:i], s.eventOrder[i+1:]...)
			break
		}
	}
}

// ErrStoreUnavailable is returned by Create after FailWrites(true).
var ErrStoreUnavailable = errors.New("store unavailable")
