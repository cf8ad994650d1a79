package projections

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gymdesk/internal/adapters/storage/attendance"
	"gymdesk/internal/application/listutil"
	domainAttendance "gymdesk/internal/domain/attendance"
)

type mockAttendanceStore struct {
	listed  []attendance.Listed
	filters []attendance.ListFilter
}

// List returns the seeded records, honouring only the filter's window.
func (m *mockAttendanceStore) List(_ context.Context, f attendance.ListFilter) ([]attendance.Listed, error) {
	m.filters = append(m.filters, f)
	if f.Limit <= 0 || f.Limit >= len(m.listed) {
		return m.listed, nil
	}
	return m.listed[:f.Limit], nil
}

// Count returns the number of seeded records.
func (m *mockAttendanceStore) Count(_ context.Context, _ attendance.ListFilter) (int, error) {
	return len(m.listed), nil
}

func seededAttendance() *mockAttendanceStore {
	return &mockAttendanceStore{listed: []attendance.Listed{
		{Record: domainAttendance.Record{ID: 3, MemberID: 1, CheckInTime: testNow.Add(-time.Hour), Status: domainAttendance.StatusLate}, MemberName: "Ana"},
		{Record: domainAttendance.Record{ID: 2, MemberID: 2, CheckInTime: testNow.Add(-3 * time.Hour), CheckOutTime: testNow.Add(-2 * time.Hour), Status: domainAttendance.StatusLate, BookingID: 8}, MemberName: "Ben"},
		{Record: domainAttendance.Record{ID: 1, MemberID: 3, CheckInTime: testNow.AddDate(0, 0, -1), CheckOutTime: testNow.AddDate(0, 0, -1).Add(2 * time.Hour), Status: domainAttendance.StatusPresent}, MemberName: "Cy"},
	}}
}

// TestQueryGetAttendanceList_Rows verifies badges, durations and nullable fields.
func TestQueryGetAttendanceList_Rows(t *testing.T) {
	store := seededAttendance()
	page, err := QueryGetAttendanceList(context.Background(), GetAttendanceListQuery{
		PageParams: listutil.PageParams{Page: 1, PerPage: 20},
	}, GetAttendanceListDeps{AttendanceStore: store, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("got %d rows, want 3", len(page.Items))
	}

	open := page.Items[0]
	if open.Badge != domainAttendance.BadgeLate || open.CheckOutTime != nil || open.Duration != "1h 0m" {
		t.Errorf("open row = %+v", open)
	}
	if open.State != "OPEN_LATE" || open.User.Name != "Ana" {
		t.Errorf("open row state/user = %q/%+v", open.State, open.User)
	}

	closed := page.Items[1]
	if closed.Badge != domainAttendance.BadgeCheckedOut {
		t.Errorf("closed late row badge = %q, want %q", closed.Badge, domainAttendance.BadgeCheckedOut)
	}
	if closed.BookingID == nil || *closed.BookingID != 8 {
		t.Errorf("BookingID = %v, want 8", closed.BookingID)
	}

	body, err := json.Marshal(open)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"check_out_time":null`) || !strings.Contains(string(body), `"booking_id":null`) {
		t.Errorf("open row JSON = %s", body)
	}
}

// TestQueryGetAttendanceList_StatusFilter verifies accepted filters reach the store and others are rejected.
func TestQueryGetAttendanceList_StatusFilter(t *testing.T) {
	for _, status := range []string{"", "present", "late", "excused", "checked_out"} {
		store := seededAttendance()
		_, err := QueryGetAttendanceList(context.Background(), GetAttendanceListQuery{Status: status, Search: "an"},
			GetAttendanceListDeps{AttendanceStore: store, Now: fixedNow})
		if err != nil {
			t.Errorf("status %q: %v", status, err)
			continue
		}
		if f := store.filters[0]; f.Status != status || f.Search != "an" {
			t.Errorf("status %q: filter = %+v", status, f)
		}
	}

	_, err := QueryGetAttendanceList(context.Background(), GetAttendanceListQuery{Status: "absent"},
		GetAttendanceListDeps{AttendanceStore: seededAttendance()})
	if !errors.Is(err, ErrInvalidStatusFilter) {
		t.Errorf("err = %v, want ErrInvalidStatusFilter", err)
	}
}

// TestQueryGetAttendanceStats verifies stats are computed over every record in the facility zone.
func TestQueryGetAttendanceStats(t *testing.T) {
	store := seededAttendance()
	stats, err := QueryGetAttendanceStats(context.Background(), GetAttendanceStatsDeps{AttendanceStore: store, Location: time.UTC, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domainAttendance.Stats{TotalCheckIns: 3, CurrentlyCheckedIn: 1, TodaysCheckIns: 2, AvgDuration: "1h 30m"}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if store.filters[0].Limit != 0 {
		t.Error("stats should read every record")
	}
}

// TestQueryGetAttendanceStats_Empty verifies an empty facility reports zeroes.
func TestQueryGetAttendanceStats_Empty(t *testing.T) {
	stats, err := QueryGetAttendanceStats(context.Background(), GetAttendanceStatsDeps{AttendanceStore: &mockAttendanceStore{}, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != (domainAttendance.Stats{AvgDuration: "0h 0m"}) {
		t.Errorf("stats = %+v", stats)
	}
}
