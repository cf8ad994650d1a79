package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	attendanceStore "gymdesk/internal/adapters/storage/attendance"
	"gymdesk/internal/adapters/storage/storagetest"
	domain "gymdesk/internal/domain/attendance"
)

var morning = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *attendanceStore.SQLiteStore {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.MustExec(t, db, `INSERT INTO member (id, name, email, status, joined_at) VALUES
		(1, 'Ana Silva', 'ana@gymdesk.test', 'active', '2025-01-01T00:00:00Z'),
		(2, 'Ben Ito', 'ben@gymdesk.test', 'active', '2025-01-01T00:00:00Z')`)
	return attendanceStore.NewSQLiteStore(db)
}

func checkIn(t *testing.T, store *attendanceStore.SQLiteStore, memberID int64, opts domain.CheckInOptions, at time.Time) domain.Record {
	t.Helper()
	r, err := domain.NewCheckIn(memberID, opts, at)
	if err != nil {
		t.Fatalf("NewCheckIn: %v", err)
	}
	if err := store.Create(context.Background(), &r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r
}

// TestSQLiteStore_CreateAndClose walks a record through its lifecycle.
func TestSQLiteStore_CreateAndClose(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	r := checkIn(t, store, 1, domain.CheckInOptions{BookingID: 12, VerificationMethod: domain.VerifyQRCode, Location: "Main"}, morning)

	open, err := store.GetOpenByMemberID(ctx, 1)
	if err != nil {
		t.Fatalf("GetOpenByMemberID: %v", err)
	}
	if open.ID != r.ID || open.BookingID != 12 || open.VerificationMethod != domain.VerifyQRCode {
		t.Errorf("open = %+v", open)
	}

	if err := r.CheckOut(morning.Add(time.Hour)); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if err := store.Close(ctx, r); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := store.GetOpenByMemberID(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("after close err = %v, want ErrNotFound", err)
	}
}

// TestSQLiteStore_DuplicateOpenSession rejects a second open record for a member.
func TestSQLiteStore_DuplicateOpenSession(t *testing.T) {
	store := newStore(t)
	checkIn(t, store, 1, domain.CheckInOptions{}, morning)

	dup, _ := domain.NewCheckIn(1, domain.CheckInOptions{}, morning.Add(time.Minute))
	if err := store.Create(context.Background(), &dup); !errors.Is(err, domain.ErrDuplicateOpenSession) {
		t.Errorf("err = %v, want ErrDuplicateOpenSession", err)
	}
}

// TestSQLiteStore_CloseTwice keeps the first check-out time.
func TestSQLiteStore_CloseTwice(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	r := checkIn(t, store, 1, domain.CheckInOptions{}, morning)

	first := r
	first.CheckOut(morning.Add(time.Hour))
	if err := store.Close(ctx, first); err != nil {
		t.Fatalf("first Close: %v", err)
	}

	second := r
	second.CheckOut(morning.Add(3 * time.Hour))
	if err := store.Close(ctx, second); !errors.Is(err, domain.ErrAlreadyCheckedOut) {
		t.Fatalf("second Close err = %v, want ErrAlreadyCheckedOut", err)
	}

	got, _ := store.GetByID(ctx, r.ID)
	if !got.CheckOutTime.Equal(morning.Add(time.Hour)) {
		t.Errorf("CheckOutTime = %v, want first value", got.CheckOutTime)
	}

	missing := domain.Record{ID: 999, MemberID: 1, CheckInTime: morning, CheckOutTime: morning}
	if err := store.Close(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing Close err = %v, want ErrNotFound", err)
	}
}

// TestSQLiteStore_ListFilters covers status, checked_out, search and ordering.
func TestSQLiteStore_ListFilters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	closed := checkIn(t, store, 1, domain.CheckInOptions{Status: domain.StatusLate}, morning)
	closed.CheckOut(morning.Add(time.Hour))
	if err := store.Close(ctx, closed); err != nil {
		t.Fatalf("Close: %v", err)
	}
	checkIn(t, store, 1, domain.CheckInOptions{Status: domain.StatusLate}, morning.Add(2*time.Hour))
	checkIn(t, store, 2, domain.CheckInOptions{}, morning.Add(3*time.Hour))

	tests := []struct {
		name   string
		filter attendanceStore.ListFilter
		want   int
	}{
		{"all", attendanceStore.ListFilter{}, 3},
		{"late open only", attendanceStore.ListFilter{Status: "late"}, 1},
		{"checked out", attendanceStore.ListFilter{Status: attendanceStore.StatusCheckedOut}, 1},
		{"search", attendanceStore.ListFilter{Search: "ben"}, 1},
		{"member", attendanceStore.ListFilter{MemberID: 1}, 2},
		{"window", attendanceStore.ListFilter{From: morning.Add(time.Hour), To: morning.Add(3 * time.Hour)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
			n, _ := store.Count(ctx, tt.filter)
			if n != tt.want {
				t.Errorf("Count = %d, want %d", n, tt.want)
			}
		})
	}

	all, _ := store.List(ctx, attendanceStore.ListFilter{Limit: 1})
	if len(all) != 1 || all[0].MemberName != "Ben Ito" {
		t.Errorf("newest first = %+v", all)
	}
	if n, _ := store.CountOpen(ctx); n != 2 {
		t.Errorf("CountOpen = %d, want 2", n)
	}
}
