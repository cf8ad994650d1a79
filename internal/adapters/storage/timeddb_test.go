package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"gymdesk/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	return db
}

// TestTimedDB_RecordsEachCall verifies every wrapper method feeds the collector.
func TestTimedDB_RecordsEachCall(t *testing.T) {
	collector := perf.NewCollector()
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT id, val FROM test")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()

	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if val != "hello" {
		t.Errorf("val = %q, want hello", val)
	}

	tx, err := tdb.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	tx.Rollback()

	if collector.TotalRecorded() != 4 {
		t.Errorf("TotalRecorded = %d, want 4", collector.TotalRecorded())
	}
}

// TestTimedDB_ErrorPassthrough verifies SQL errors are returned unchanged
// and timing is still recorded.
func TestTimedDB_ErrorPassthrough(t *testing.T) {
	collector := perf.NewCollector()
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO nonexistent_table VALUES (?)", 1); err == nil {
		t.Fatal("expected error from invalid SQL")
	}
	var val string
	err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "missing").Scan(&val)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
	if collector.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", collector.TotalRecorded())
	}
}

// TestTimedDB_CancelledContext verifies a cancelled context surfaces an error.
func TestTimedDB_CancelledContext(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// TestTimedDB_RawDB verifies RawDB returns the original *sql.DB.
func TestTimedDB_RawDB(t *testing.T) {
	db := openTimedTestDB(t)
	if NewTimedDB(db, nil, 0).RawDB() != db {
		t.Error("RawDB() should return the original *sql.DB")
	}
}

// TestVerb extracts the leading SQL keyword.
func TestVerb(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  select 1", "SELECT"},
		{"\n\tINSERT INTO x", "INSERT"},
		{"", "EMPTY"},
	}
	for _, c := range cases {
		if got := verb(c.in); got != c.want {
			t.Errorf("verb(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
