package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. The composite primary key on
// registrations is the store-level guarantee that a user registers for
// an event at most once; duplicate inserts conflict instead of racing.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    date        TEXT NOT NULL,
    time        TEXT NOT NULL,
    venue       TEXT NOT NULL,
    description TEXT NOT NULL,
    eligibility TEXT NOT NULL,
    cost        TEXT NOT NULL,
    category    TEXT NOT NULL,
    image       TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    created_by  TEXT NOT NULL,
    updated_at  TIMESTAMPTZ,
    updated_by  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS registrations (
    event_id      TEXT NOT NULL REFERENCES events(id),
    user_id       TEXT NOT NULL,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    reg_no        TEXT NOT NULL,
    event_title   TEXT NOT NULL,
    authenticated BOOLEAN NOT NULL,
    registered_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (event_id, user_id)
);
`

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
