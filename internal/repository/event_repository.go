package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pu-events/portal/internal/model"
)

const eventColumns = `id, title, date, time, venue, description, eligibility,
	cost, category, image, created_at, created_by, updated_at, updated_by`

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, form model.EventForm, createdBy string) (*model.Event, error) {
	image := form.Image
	if image == "" {
		image = model.DefaultEventImage
	}
	event := &model.Event{
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

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, date, time, venue, description, eligibility,
		                     cost, category, image, created_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, event.Title, event.Date, event.Time, event.Venue, event.Description,
		event.Eligibility, event.Cost, event.Category, event.Image, event.CreatedAt, event.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns events ordered by creation time descending. An empty
// category means no filtering.
func (r *EventRepository) List(ctx context.Context, category model.Category) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		 FROM events
		 WHERE ($1 = '' OR category = $1)
		 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, string(category))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Update merges form fields into an existing event, preserving the
// original created_at/created_by and stamping updated_at/updated_by.
// An empty form image keeps the stored one.
func (r *EventRepository) Update(ctx context.Context, id string, form model.EventForm, updatedBy string) (*model.Event, error) {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET title = $2, date = $3, time = $4, venue = $5, description = $6,
		     eligibility = $7, cost = $8, category = $9,
		     image = COALESCE(NULLIF($10, ''), image),
		     updated_at = $11, updated_by = $12
		 WHERE id = $1`,
		id, form.Title, form.Date, form.Time, form.Venue, form.Description,
		form.Eligibility, form.Cost, form.Category, form.Image, now, updatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event together with its entire registration sub-tree.
// Both deletes run in one transaction so a failure leaves no orphaned
// registrations behind.
func (r *EventRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		`DELETE FROM registrations WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete registrations: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Venue, &e.Description,
		&e.Eligibility, &e.Cost, &e.Category, &e.Image,
		&e.CreatedAt, &e.CreatedBy, &e.UpdatedAt, &e.UpdatedBy)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
