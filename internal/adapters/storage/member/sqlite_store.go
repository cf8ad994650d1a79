package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/member"
)

const memberColumns = "id, name, email, phone, status, joined_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (domain.Member, error) {
	var m domain.Member
	var joined string
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Status, &joined); err != nil {
		return domain.Member{}, err
	}
	t, err := storage.ParseTime(joined)
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to parse joined_at: %w", err)
	}
	m.JoinedAt = t
	return m, nil
}

// GetByID retrieves a Member by its ID.
// POST: Returns the entity or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member %d: %w", id, domain.ErrNotFound)
	}
	return m, err
}

// GetByEmail retrieves a Member by email, case-insensitively.
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE email = ? COLLATE NOCASE", email))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member %q: %w", email, domain.ErrNotFound)
	}
	return m, err
}

// Save inserts value when its ID is zero, otherwise updates it.
// PRE: value has been validated
// POST: value.ID is set; a duplicate email yields domain.ErrEmailTaken
func (s *SQLiteStore) Save(ctx context.Context, value *domain.Member) error {
	if value.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO member (name, email, phone, status, joined_at) VALUES (?, ?, ?, ?, ?)",
			value.Name, value.Email, value.Phone, value.Status, storage.FormatTime(value.JoinedAt))
		if err != nil {
			return mapWriteErr(err)
		}
		value.ID, err = res.LastInsertId()
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE member SET name = ?, email = ?, phone = ?, status = ?, joined_at = ? WHERE id = ?",
		value.Name, value.Email, value.Phone, value.Status, storage.FormatTime(value.JoinedAt), value.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %d: %w", value.ID, domain.ErrNotFound)
	}
	return nil
}

func mapWriteErr(err error) error {
	if storage.IsUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += ` AND (name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`
		term := storage.LikePattern(filter.Search)
		args = append(args, term, term)
	}
	return where, args
}

// sortClause returns a safe ORDER BY clause. Only allowed columns are accepted.
func sortClause(filter ListFilter) string {
	allowed := map[string]string{
		"name": "name", "email": "email",
		"status": "status", "joined_at": "joined_at",
	}
	col, ok := allowed[filter.Sort]
	if !ok {
		return " ORDER BY name ASC, id ASC"
	}
	dir := "ASC"
	if filter.Dir == "desc" {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", id ASC"
}

// Count returns the total number of members matching the filter.
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member"+where, args...).Scan(&count)
	return count, err
}

// List retrieves Members matching the filter. A non-positive Limit returns every match.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + memberColumns + " FROM member" + where + sortClause(filter)
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
