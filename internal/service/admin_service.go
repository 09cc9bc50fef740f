package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pu-events/portal/internal/model"
)

// csvHeader is the fixed export header. Column order is part of the
// export contract.
var csvHeader = []string{"Name", "Email", "Registration Number", "Event", "Registration Date"}

// AdminService flattens per-event registrations into the searchable,
// exportable table shown on the admin dashboard.
type AdminService struct {
	registrations RegistrationStore
	location      *time.Location
	now           func() time.Time
}

// NewAdminService constructs an AdminService. Registration dates in CSV
// exports are rendered in the given location.
func NewAdminService(registrations RegistrationStore, location *time.Location) *AdminService {
	if location == nil {
		location = time.UTC
	}
	return &AdminService{
		registrations: registrations,
		location:      location,
		now:           time.Now,
	}
}

// Registrations returns the flattened registration table, restricted to
// one event when eventID is non-empty and filtered by the search term.
// A registration matches when the term is empty or appears
// case-insensitively in its name or registration number; emails are not
// searched.
func (s *AdminService) Registrations(ctx context.Context, search, eventID string) ([]model.RegistrationRow, error) {
	rows, err := s.registrations.Rows(ctx, eventID)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return rows, nil
	}

	filtered := rows[:0]
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Name), term) ||
			strings.Contains(strings.ToLower(row.RegNo), term) {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

// WriteCSV serialises rows as the fixed five-column export: every field
// double-quoted, LF newlines, dates rendered in the configured timezone.
func (s *AdminService) WriteCSV(w io.Writer, rows []model.RegistrationRow) error {
	if err := writeCSVRecord(w, csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Name,
			row.Email,
			row.RegNo,
			row.EventTitle,
			row.RegisteredAt.In(s.location).Format("2006-01-02"),
		}
		if err := writeCSVRecord(w, record); err != nil {
			return err
		}
	}
	return nil
}

// ExportFilename builds the download filename, stamped with today's
// ISO date.
func (s *AdminService) ExportFilename() string {
	return fmt.Sprintf("registrations_%s.csv", s.now().In(s.location).Format("2006-01-02"))
}

func writeCSVRecord(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	return nil
}
