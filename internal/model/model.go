// Package model defines the core domain types for the university events portal.
package model

import (
	"fmt"
	"time"
)

// Category classifies an event into one of the fixed portal categories.
type Category string

const (
	CategoryAcademic Category = "academic"
	CategoryCareer   Category = "career"
	CategoryCultural Category = "cultural"
	CategorySports   Category = "sports"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryAcademic, CategoryCareer, CategoryCultural, CategorySports}

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// DefaultEventImage is the placeholder glyph used when no banner is uploaded.
const DefaultEventImage = "🎯"

// Event represents a scheduled university activity open for registration.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Venue       string     `json:"venue"`
	Description string     `json:"description"`
	Eligibility string     `json:"eligibility"`
	Cost        string     `json:"cost"`
	Category    Category   `json:"category"`
	Image       string     `json:"image"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
}

// Registration represents a single user's signed-up attendance record for
// one event. Exactly one may exist per (event id, user id) pair.
type Registration struct {
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	RegNo         string    `json:"reg_no"`
	EventTitle    string    `json:"event_title"`
	Authenticated bool      `json:"authenticated"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// RegistrationRow is a flattened admin view of one registration, joined
// with its event title for display and export.
type RegistrationRow struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegNo        string    `json:"reg_no"`
	EventTitle   string    `json:"event_title"`
	EventID      string    `json:"event_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EventForm is the payload for creating or updating an event.
type EventForm struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	Description string `json:"description"`
	Eligibility string `json:"eligibility"`
	Cost        string `json:"cost"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
}

// RegisterForm is the payload for registering for an event.
type RegisterForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	RegNo string `json:"reg_no"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error        string        `json:"error"`
	Notification *Notification `json:"notification,omitempty"`
}

// NotificationKind tags a user-facing transient notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
	NotifyLogin   NotificationKind = "login"
)

// Notification is the tagged toast variant surfaced alongside API
// responses. Login prompts dismiss faster than the rest.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	Message    string           `json:"message"`
	DurationMs int              `json:"duration_ms"`
}

// NewNotification builds a notification with the standard display duration
// for its kind.
func NewNotification(kind NotificationKind, message string) *Notification {
	duration := 3000
	if kind == NotifyLogin {
		duration = 2000
	}
	return &Notification{Kind: kind, Message: message, DurationMs: duration}
}
