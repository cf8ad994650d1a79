package payment

import (
	"context"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domainMembership "gymdesk/internal/domain/membership"
	domain "gymdesk/internal/domain/payment"
)

const insertPayment = `INSERT INTO payment (user_id, membership_plan_id, amount, payment_method, reference, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

func paymentArgs(p *domain.Payment) []any {
	return []any{p.MemberID, p.PlanID, int64(p.Amount), string(p.Method), p.Reference,
		string(p.Status), storage.FormatTime(p.CreatedAt)}
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new payment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save records a payment. Payments are immutable once written.
// PRE: value has been validated and value.ID is zero
// POST: value.ID is set
func (s *SQLiteStore) Save(ctx context.Context, value *domain.Payment) error {
	if value.ID != 0 {
		return fmt.Errorf("payment %d is already recorded", value.ID)
	}
	res, err := s.db.ExecContext(ctx, insertPayment, paymentArgs(value)...)
	if err != nil {
		return err
	}
	value.ID, err = res.LastInsertId()
	return err
}

// SavePurchase records a successful payment and the subscription it bought
// in one transaction, so neither row exists without the other.
// PRE: both values have been validated and have zero IDs
// POST: on success both IDs are set; on error nothing is stored
func (s *SQLiteStore) SavePurchase(ctx context.Context, value *domain.Payment, sub *domainMembership.Subscription) error {
	if value.ID != 0 || sub.ID != 0 {
		return fmt.Errorf("purchase is already recorded")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertPayment, paymentArgs(value)...)
	if err != nil {
		return err
	}
	paymentID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO subscription (user_id, membership_plan_id, plan_name, price, features, start_date, end_date, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.PlanID, sub.PlanName, int64(sub.Price), sub.Features.Encode(),
		storage.FormatTime(sub.StartDate), storage.FormatTime(sub.EndDate), sub.IsActive)
	if err != nil {
		return err
	}
	subID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	value.ID, sub.ID = paymentID, subID
	return nil
}

// ListByMember returns a member's payments, newest first.
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID int64) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, membership_plan_id, amount, payment_method, reference, status, created_at
		 FROM payment WHERE user_id = ? ORDER BY created_at DESC, id DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var method, status, created string
		if err := rows.Scan(&p.ID, &p.MemberID, &p.PlanID, &p.Amount, &method, &p.Reference, &status, &created); err != nil {
			return nil, err
		}
		p.Method = domain.Method(method)
		p.Status = domain.Status(status)
		if p.CreatedAt, err = storage.ParseTime(created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
