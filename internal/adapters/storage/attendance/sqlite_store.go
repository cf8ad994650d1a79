package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/attendance"
)

const recordColumns = "a.id, a.member_id, a.booking_id, a.check_in_time, a.check_out_time, a.status, a.verification_method, a.location, a.notes"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func scanRecord(scan func(dest ...any) error, extra ...any) (domain.Record, error) {
	var r domain.Record
	var booking sql.NullInt64
	var checkIn string
	var checkOut sql.NullString
	var status, method string
	dest := append([]any{&r.ID, &r.MemberID, &booking, &checkIn, &checkOut, &status, &method, &r.Location, &r.Notes}, extra...)
	if err := scan(dest...); err != nil {
		return domain.Record{}, err
	}
	r.BookingID = booking.Int64
	r.Status = domain.Status(status)
	r.VerificationMethod = domain.VerificationMethod(method)

	var err error
	if r.CheckInTime, err = storage.ParseTime(checkIn); err != nil {
		return domain.Record{}, fmt.Errorf("failed to parse check_in_time: %w", err)
	}
	if r.CheckOutTime, err = storage.ParseNullTime(checkOut); err != nil {
		return domain.Record{}, fmt.Errorf("failed to parse check_out_time: %w", err)
	}
	return r, nil
}

// GetByID retrieves a record by its ID.
// POST: Returns the record or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM attendance a WHERE a.id = ?", id)
	r, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("attendance %d: %w", id, domain.ErrNotFound)
	}
	return r, err
}

// GetOpenByMemberID returns the member's open record.
// POST: Returns an error wrapping domain.ErrNotFound when the member is not checked in
func (s *SQLiteStore) GetOpenByMemberID(ctx context.Context, memberID int64) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM attendance a WHERE a.member_id = ? AND a.check_out_time IS NULL", memberID)
	r, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("open attendance for member %d: %w", memberID, domain.ErrNotFound)
	}
	return r, err
}

// Create inserts an open record.
// PRE: value is open and validated
// POST: value.ID is set; a second open record for the member yields domain.ErrDuplicateOpenSession
func (s *SQLiteStore) Create(ctx context.Context, value *domain.Record) error {
	var booking any
	if value.BookingID > 0 {
		booking = value.BookingID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (member_id, booking_id, check_in_time, check_out_time, status, verification_method, location, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		value.MemberID, booking, storage.FormatTime(value.CheckInTime), storage.NullableTime(value.CheckOutTime),
		string(value.Status), string(value.VerificationMethod), value.Location, value.Notes)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return domain.ErrDuplicateOpenSession
		}
		return err
	}
	value.ID, err = res.LastInsertId()
	return err
}

// Close stores value's check-out time, provided the stored row is still open.
// PRE: value.CheckOutTime is set
// POST: the row is closed; a row closed concurrently yields domain.ErrAlreadyCheckedOut
// and keeps its original check_out_time
func (s *SQLiteStore) Close(ctx context.Context, value domain.Record) error {
	if value.IsOpen() {
		return errors.New("close requires a check-out time")
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE attendance SET check_out_time = ? WHERE id = ? AND check_out_time IS NULL",
		storage.FormatTime(value.CheckOutTime), value.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, value.ID); err != nil {
		return err
	}
	return domain.ErrAlreadyCheckedOut
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.MemberID > 0 {
		where += " AND a.member_id = ?"
		args = append(args, filter.MemberID)
	}
	switch filter.Status {
	case "":
	case StatusCheckedOut:
		where += " AND a.check_out_time IS NOT NULL"
	default:
		where += " AND a.check_out_time IS NULL AND a.status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += ` AND m.name LIKE ? ESCAPE '\'`
		args = append(args, storage.LikePattern(filter.Search))
	}
	if !filter.From.IsZero() {
		where += " AND a.check_in_time >= ?"
		args = append(args, storage.FormatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where += " AND a.check_in_time < ?"
		args = append(args, storage.FormatTime(filter.To))
	}
	return where, args
}

const listFrom = " FROM attendance a JOIN member m ON m.id = a.member_id"

// Count returns the number of records matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+listFrom+where, args...).Scan(&n)
	return n, err
}

// CountOpen returns how many members are currently checked in.
func (s *SQLiteStore) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance WHERE check_out_time IS NULL").Scan(&n)
	return n, err
}

// List returns records matching the filter, newest check-in first.
// A non-positive Limit returns every match.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Listed, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + recordColumns + ", m.name" + listFrom + where + " ORDER BY a.check_in_time DESC, a.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Listed
	for rows.Next() {
		var name string
		r, err := scanRecord(rows.Scan, &name)
		if err != nil {
			return nil, err
		}
		results = append(results, Listed{Record: r, MemberName: name})
	}
	return results, rows.Err()
}
