package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	up      func(tx *sql.Tx) error
}

// migrations is the ordered schema history. Append only; never edit a
// step that has shipped.
var migrations = []migration{
	{version: 1, name: "baseline", up: migrateBaseline},
	{version: 2, name: "attendance_open_session_index", up: migrateOpenSessionIndex},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, 0 for a fresh database.
// PRE: db is a valid database connection
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect schema_version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB enables WAL and foreign keys, then applies pending migrations,
// each in its own transaction. A file-backed database that already holds
// data is snapshotted with VACUUM INTO before the first pending step.
// PRE: db is a valid database connection; dbPath is the file behind it or ":memory:"
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if current > 0 && dbPath != "" && !strings.Contains(dbPath, ":memory:") {
		backup := fmt.Sprintf("%s.v%d-%s.bak", dbPath, current, time.Now().UTC().Format("20060102T150405"))
		if _, err := db.Exec("VACUUM INTO ?", backup); err != nil {
			return fmt.Errorf("failed to snapshot database before migration: %w", err)
		}
		slog.Info("migration_backup", "path", backup, "from_version", current)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		slog.Info("migration_applied", "version", m.version, "name", m.name)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.up(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("migration %d: record version: %w", m.version, err)
	}
	return tx.Commit()
}

// migrateBaseline creates the core tables. IF NOT EXISTS lets it adopt a
// database created before versioning.
func migrateBaseline(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS member (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		joined_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS account (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		member_id INTEGER,
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE TABLE IF NOT EXISTS membership_plan (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		duration_days INTEGER NOT NULL,
		features TEXT NOT NULL DEFAULT '[]',
		is_active INTEGER NOT NULL DEFAULT 1,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subscription (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		membership_plan_id INTEGER NOT NULL,
		plan_name TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL DEFAULT 0,
		features TEXT NOT NULL DEFAULT '[]',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		FOREIGN KEY (user_id) REFERENCES member(id),
		FOREIGN KEY (membership_plan_id) REFERENCES membership_plan(id)
	);
	CREATE INDEX IF NOT EXISTS idx_subscription_user ON subscription(user_id);

	CREATE TABLE IF NOT EXISTS payment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		membership_plan_id INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		payment_method TEXT NOT NULL,
		reference TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES member(id),
		FOREIGN KEY (membership_plan_id) REFERENCES membership_plan(id)
	);
	CREATE INDEX IF NOT EXISTS idx_payment_user ON payment(user_id);

	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL,
		booking_id INTEGER,
		check_in_time TEXT NOT NULL,
		check_out_time TEXT,
		status TEXT NOT NULL DEFAULT 'present',
		verification_method TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (member_id) REFERENCES member(id)
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_check_in ON attendance(check_in_time);
	`)
	return err
}

// migrateOpenSessionIndex allows at most one open attendance row per member.
func migrateOpenSessionIndex(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_open_member
		ON attendance(member_id) WHERE check_out_time IS NULL`)
	return err
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint or
// unique index.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
