// Package repository implements all database queries for the events portal.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyRegistered is returned when a user registers twice for the
// same event.
var ErrAlreadyRegistered = errors.New("already registered for this event")
