package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pu-events/portal/internal/model"
)

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a registration if and only if none exists for the same
// (event id, user id) pair.
//
// The insert relies on the composite primary key rather than a
// check-then-write: two near-simultaneous attempts serialise on the key,
// the second insert affects zero rows, and ErrAlreadyRegistered is
// returned instead of a silent last-write-wins overwrite.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO registrations (event_id, user_id, name, email, reg_no,
		                            event_title, authenticated, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (event_id, user_id) DO NOTHING`,
		reg.EventID, reg.UserID, reg.Name, reg.Email, reg.RegNo,
		reg.EventTitle, reg.Authenticated, reg.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyRegistered
	}
	return nil
}

// Get performs a point read for one user's registration, returning
// ErrNotFound when the user has not registered.
func (r *RegistrationRepository) Get(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.QueryRow(ctx,
		`SELECT event_id, user_id, name, email, reg_no, event_title, authenticated, registered_at
		 FROM registrations
		 WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	).Scan(&reg.EventID, &reg.UserID, &reg.Name, &reg.Email, &reg.RegNo,
		&reg.EventTitle, &reg.Authenticated, &reg.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// ListByEvent returns all registrations for a given event.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, user_id, name, email, reg_no, event_title, authenticated, registered_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.EventID, &reg.UserID, &reg.Name, &reg.Email, &reg.RegNo,
			&reg.EventTitle, &reg.Authenticated, &reg.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// Rows returns the flattened admin view of registrations joined with
// their events, ordered by event creation then registration time so the
// table and its CSV export stay stable. An empty eventID includes every
// event.
func (r *RegistrationRepository) Rows(ctx context.Context, eventID string) ([]model.RegistrationRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.name, r.email, r.reg_no, e.title, r.event_id, r.registered_at
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE ($1 = '' OR r.event_id = $1)
		 ORDER BY e.created_at ASC, r.registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registration rows: %w", err)
	}
	defer rows.Close()

	var out []model.RegistrationRow
	for rows.Next() {
		var row model.RegistrationRow
		if err := rows.Scan(&row.Name, &row.Email, &row.RegNo,
			&row.EventTitle, &row.EventID, &row.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountsByEvent returns the number of registrations per event id.
func (r *RegistrationRepository) CountsByEvent(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, COUNT(*) FROM registrations GROUP BY event_id`)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan registration count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
