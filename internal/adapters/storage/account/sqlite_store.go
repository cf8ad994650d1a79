package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/account"
)

const accountColumns = "id, email, password_hash, role, member_id, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// scanAccount scans a row into an Account using the provided scan function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var a domain.Account
	var memberID sql.NullInt64
	var created string
	var locked sql.NullString
	if err := scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &memberID, &created, &a.FailedLogins, &locked); err != nil {
		return domain.Account{}, err
	}
	a.MemberID = memberID.Int64
	var err error
	if a.CreatedAt, err = storage.ParseTime(created); err != nil {
		return domain.Account{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if a.LockedUntil, err = storage.ParseNullTime(locked); err != nil {
		return domain.Account{}, fmt.Errorf("failed to parse locked_until: %w", err)
	}
	return a, nil
}

// GetByID retrieves an Account by its ID.
// POST: Returns the entity or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE id = ?", id)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return a, err
}

// GetByEmail retrieves an Account by login email, case-insensitively.
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE email = ? COLLATE NOCASE", email)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %q: %w", email, domain.ErrNotFound)
	}
	return a, err
}

// Save inserts value when its ID is zero, otherwise updates it.
// PRE: value has been validated
// POST: value.ID is set; a duplicate email yields domain.ErrEmailTaken
func (s *SQLiteStore) Save(ctx context.Context, value *domain.Account) error {
	var memberID any
	if value.MemberID > 0 {
		memberID = value.MemberID
	}
	if value.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO account (email, password_hash, role, member_id, created_at, failed_logins, locked_until)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			value.Email, value.PasswordHash, value.Role, memberID,
			storage.FormatTime(value.CreatedAt), value.FailedLogins, storage.NullableTime(value.LockedUntil))
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		value.ID, err = res.LastInsertId()
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE account SET email = ?, password_hash = ?, role = ?, member_id = ?,
		 failed_logins = ?, locked_until = ? WHERE id = ?`,
		value.Email, value.PasswordHash, value.Role, memberID,
		value.FailedLogins, storage.NullableTime(value.LockedUntil), value.ID)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", value.ID, domain.ErrNotFound)
	}
	return nil
}

// CountByRole returns how many accounts hold role.
func (s *SQLiteStore) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account WHERE role = ?", role).Scan(&n)
	return n, err
}
