// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"strings"

	"github.com/pu-events/portal/internal/model"
)

// EventStore is the persistence surface the event service depends on.
// *repository.EventRepository satisfies it; tests use in-memory fakes.
type EventStore interface {
	Create(ctx context.Context, form model.EventForm, createdBy string) (*model.Event, error)
	List(ctx context.Context, category model.Category) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, form model.EventForm, updatedBy string) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// RegistrationStore is the persistence surface for registrations. Its
// Create must be atomic insert-if-absent on (event id, user id).
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration) error
	Get(ctx context.Context, eventID, userID string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	Rows(ctx context.Context, eventID string) ([]model.RegistrationRow, error)
	CountsByEvent(ctx context.Context) (map[string]int, error)
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
