package service_test

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/pu-events/portal/internal/model"
	"github.com/pu-events/portal/internal/service"
	"github.com/pu-events/portal/internal/testfixtures"
)

type adminFixture struct {
	admin  *service.AdminService
	events *testfixtures.EventStore
	regs   *testfixtures.RegistrationStore
	talk   *model.Event
	fair   *model.Event
}

func newAdminFixture(t *testing.T) adminFixture {
	t.Helper()
	events, regs := testfixtures.NewStores()
	regSvc := service.NewRegistrationService(events, regs)
	ctx := context.Background()

	talk, err := events.Create(ctx, model.EventForm{
		Title: "Tech Talk", Date: "2025-01-10", Time: "14:00", Venue: "Hall A",
		Eligibility: "All", Category: "academic", Cost: "Free",
	}, "admin@poornima.edu.in")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	fair, err := events.Create(ctx, model.EventForm{
		Title: "Job Fair", Date: "2025-02-01", Time: "10:00", Venue: "Auditorium",
		Eligibility: "Final year", Category: "career", Cost: "Free",
	}, "admin@poornima.edu.in")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	register := func(eventID, userID, name, email, regNo string) {
		t.Helper()
		if _, err := regSvc.Register(ctx, eventID, userID, model.RegisterForm{
			Name: name, Email: email, RegNo: regNo,
		}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	register(talk.ID, "u1", "Asha Rao", "asha@x.edu", "2024/001")
	register(talk.ID, "u2", "Bilal Khan", "bilal@x.edu", "2024/002")
	register(fair.ID, "u3", "Chitra Nair", "chitra@x.edu", "2023/117")

	return adminFixture{
		admin:  service.NewAdminService(regs, time.UTC),
		events: events,
		regs:   regs,
		talk:   talk,
		fair:   fair,
	}
}

func TestRegistrationsIncludesAllEvents(t *testing.T) {
	f := newAdminFixture(t)

	rows, err := f.admin.Registrations(context.Background(), "", "")
	if err != nil {
		t.Fatalf("registrations: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	// Event creation order, then registration order within the event.
	wantNames := []string{"Asha Rao", "Bilal Khan", "Chitra Nair"}
	for i, want := range wantNames {
		if rows[i].Name != want {
			t.Errorf("rows[%d].Name = %q, want %q", i, rows[i].Name, want)
		}
	}
}

func TestRegistrationsEventFilter(t *testing.T) {
	f := newAdminFixture(t)

	rows, err := f.admin.Registrations(context.Background(), "", f.fair.ID)
	if err != nil {
		t.Fatalf("registrations: %v", err)
	}
	if len(rows) != 1 || rows[0].EventTitle != "Job Fair" {
		t.Fatalf("rows = %+v, want the single Job Fair registration", rows)
	}
}

func TestRegistrationsSearch(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"no match", "zzz-not-there", nil},
		{"name exact", "Asha Rao", []string{"Asha Rao"}},
		{"name case-insensitive", "aShA", []string{"Asha Rao"}},
		{"reg number substring", "2024/", []string{"Asha Rao", "Bilal Khan"}},
		{"email not searched", "chitra@x.edu", nil},
		{"blank matches all", "  ", []string{"Asha Rao", "Bilal Khan", "Chitra Nair"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := f.admin.Registrations(ctx, tt.search, "")
			if err != nil {
				t.Fatalf("registrations: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("rows = %d, want %d", len(rows), len(tt.want))
			}
			for i, want := range tt.want {
				if rows[i].Name != want {
					t.Errorf("rows[%d].Name = %q, want %q", i, rows[i].Name, want)
				}
			}
		})
	}
}

// Exporting then parsing the CSV must reproduce the filtered rows.
func TestCSVRoundTrip(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	rows, err := f.admin.Registrations(ctx, "", "")
	if err != nil {
		t.Fatalf("registrations: %v", err)
	}

	var buf strings.Builder
	if err := f.admin.WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != len(rows)+1 {
		t.Fatalf("records = %d, want header + %d rows", len(records), len(rows))
	}

	wantHeader := []string{"Name", "Email", "Registration Number", "Event", "Registration Date"}
	for i, want := range wantHeader {
		if records[0][i] != want {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], want)
		}
	}

	for i, row := range rows {
		record := records[i+1]
		if record[0] != row.Name || record[1] != row.Email || record[2] != row.RegNo || record[3] != row.EventTitle {
			t.Errorf("record %d = %v, want %+v", i, record, row)
		}
		if record[4] != row.RegisteredAt.UTC().Format("2006-01-02") {
			t.Errorf("record %d date = %q, want %q", i, record[4], row.RegisteredAt.UTC().Format("2006-01-02"))
		}
	}
}

func TestCSVQuotesEveryField(t *testing.T) {
	f := newAdminFixture(t)

	var buf strings.Builder
	err := f.admin.WriteCSV(&buf, []model.RegistrationRow{{
		Name:         `Asha "AJ" Rao`,
		Email:        "asha@x.edu",
		RegNo:        "2024/001",
		EventTitle:   "Tech, Talk",
		RegisteredAt: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	for _, line := range lines {
		for _, field := range splitTopLevel(line) {
			if !strings.HasPrefix(field, `"`) || !strings.HasSuffix(field, `"`) {
				t.Errorf("field %q is not double-quoted", field)
			}
		}
	}
	if strings.Contains(buf.String(), "\r\n") {
		t.Error("export must not contain CRLF newlines")
	}

	// Embedded quotes and commas survive a parse.
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if records[1][0] != `Asha "AJ" Rao` || records[1][3] != "Tech, Talk" {
		t.Errorf("parsed record = %v", records[1])
	}
}

// splitTopLevel splits a CSV line on commas outside quoted fields.
func splitTopLevel(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func TestExportFilename(t *testing.T) {
	f := newAdminFixture(t)

	name := f.admin.ExportFilename()
	if !strings.HasPrefix(name, "registrations_") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("filename = %q", name)
	}
	datePart := strings.TrimSuffix(strings.TrimPrefix(name, "registrations_"), ".csv")
	if _, err := time.Parse("2006-01-02", datePart); err != nil {
		t.Errorf("filename date %q is not ISO: %v", datePart, err)
	}
}
