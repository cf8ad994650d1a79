package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/membership"
)

const (
	planColumns         = "id, name, price, duration_days, features, is_active, category, description, created_at"
	subscriptionColumns = "id, user_id, membership_plan_id, plan_name, price, features, start_date, end_date, is_active"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new membership store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func scanPlan(scan func(dest ...any) error) (domain.Plan, error) {
	var p domain.Plan
	var features, created string
	if err := scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &features, &p.IsActive, &p.Category, &p.Description, &created); err != nil {
		return domain.Plan{}, err
	}
	p.Features = domain.ParseFeatures(features)
	var err error
	if p.CreatedAt, err = storage.ParseTime(created); err != nil {
		return domain.Plan{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return p, nil
}

// GetPlan retrieves a plan by its ID.
// POST: Returns the plan or an error wrapping domain.ErrPlanNotFound
func (s *SQLiteStore) GetPlan(ctx context.Context, id int64) (domain.Plan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM membership_plan WHERE id = ?", id)
	p, err := scanPlan(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Plan{}, fmt.Errorf("plan %d: %w", id, domain.ErrPlanNotFound)
	}
	return p, err
}

func planWhereClause(filter PlanFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.IsActive != nil {
		where += " AND is_active = ?"
		args = append(args, *filter.IsActive)
	}
	if filter.Search != "" {
		where += ` AND (name LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\')`
		term := storage.LikePattern(filter.Search)
		args = append(args, term, term)
	}
	return where, args
}

// ListPlans returns plans matching the filter, cheapest first.
// A non-positive Limit returns every match.
func (s *SQLiteStore) ListPlans(ctx context.Context, filter PlanFilter) ([]domain.Plan, error) {
	where, args := planWhereClause(filter)
	query := "SELECT " + planColumns + " FROM membership_plan" + where + " ORDER BY price ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// CountPlans returns the number of plans matching the filter.
func (s *SQLiteStore) CountPlans(ctx context.Context, filter PlanFilter) (int, error) {
	where, args := planWhereClause(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM membership_plan"+where, args...).Scan(&n)
	return n, err
}

// SavePlan inserts value when its ID is zero, otherwise updates it.
// PRE: value has been validated
// POST: value.ID is set
func (s *SQLiteStore) SavePlan(ctx context.Context, value *domain.Plan) error {
	if value.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO membership_plan (name, price, duration_days, features, is_active, category, description, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			value.Name, int64(value.Price), value.DurationDays, value.Features.Encode(), value.IsActive,
			value.Category, value.Description, storage.FormatTime(value.CreatedAt))
		if err != nil {
			return err
		}
		value.ID, err = res.LastInsertId()
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE membership_plan SET name = ?, price = ?, duration_days = ?, features = ?, is_active = ?,
		 category = ?, description = ? WHERE id = ?`,
		value.Name, int64(value.Price), value.DurationDays, value.Features.Encode(), value.IsActive,
		value.Category, value.Description, value.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %d: %w", value.ID, domain.ErrPlanNotFound)
	}
	return nil
}

// DeletePlan removes a plan nobody has paid for or subscribed to.
// POST: domain.ErrPlanInUse when payments or subscriptions reference the plan;
// domain.ErrPlanNotFound when it does not exist
func (s *SQLiteStore) DeletePlan(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM payment WHERE membership_plan_id = ?)
		      + (SELECT COUNT(*) FROM subscription WHERE membership_plan_id = ?)`, id, id).Scan(&refs)
	if err != nil {
		return err
	}
	if refs > 0 {
		return domain.ErrPlanInUse
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM membership_plan WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %d: %w", id, domain.ErrPlanNotFound)
	}
	return tx.Commit()
}

func scanSubscription(scan func(dest ...any) error) (domain.Subscription, error) {
	var sub domain.Subscription
	var features, start, end string
	if err := scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.PlanName, &sub.Price, &features, &start, &end, &sub.IsActive); err != nil {
		return domain.Subscription{}, err
	}
	sub.Features = domain.ParseFeatures(features)
	var err error
	if sub.StartDate, err = storage.ParseTime(start); err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if sub.EndDate, err = storage.ParseTime(end); err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to parse end_date: %w", err)
	}
	return sub, nil
}

// GetSubscription retrieves a subscription by its ID.
// POST: Returns the subscription or an error wrapping domain.ErrSubscriptionNotFound
func (s *SQLiteStore) GetSubscription(ctx context.Context, id int64) (domain.Subscription, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscription WHERE id = ?", id)
	sub, err := scanSubscription(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subscription{}, fmt.Errorf("subscription %d: %w", id, domain.ErrSubscriptionNotFound)
	}
	return sub, err
}

// SaveSubscription inserts value when its ID is zero, otherwise updates it.
// PRE: value has been validated
func (s *SQLiteStore) SaveSubscription(ctx context.Context, value *domain.Subscription) error {
	if value.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO subscription (user_id, membership_plan_id, plan_name, price, features, start_date, end_date, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			value.UserID, value.PlanID, value.PlanName, int64(value.Price), value.Features.Encode(),
			storage.FormatTime(value.StartDate), storage.FormatTime(value.EndDate), value.IsActive)
		if err != nil {
			return err
		}
		value.ID, err = res.LastInsertId()
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscription SET plan_name = ?, price = ?, features = ?, start_date = ?, end_date = ?, is_active = ?
		 WHERE id = ?`,
		value.PlanName, int64(value.Price), value.Features.Encode(),
		storage.FormatTime(value.StartDate), storage.FormatTime(value.EndDate), value.IsActive, value.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscription %d: %w", value.ID, domain.ErrSubscriptionNotFound)
	}
	return nil
}

// ListSubscriptionsByUser returns a member's subscriptions ordered by id.
func (s *SQLiteStore) ListSubscriptionsByUser(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	byUser, err := s.ListSubscriptionsByUsers(ctx, []int64{userID})
	if err != nil {
		return nil, err
	}
	return byUser[userID], nil
}

// ListSubscriptionsByUsers returns subscriptions for several members in one
// query, keyed by member id. Members without subscriptions are absent.
func (s *SQLiteStore) ListSubscriptionsByUsers(ctx context.Context, userIDs []int64) (map[int64][]domain.Subscription, error) {
	result := make(map[int64][]domain.Subscription, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscription WHERE user_id IN ("+placeholders+") ORDER BY id ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, err
		}
		result[sub.UserID] = append(result[sub.UserID], sub)
	}
	return result, rows.Err()
}
