package membership

import (
	"context"

	domain "gymdesk/internal/domain/membership"
)

// Store persists membership plans and the subscriptions bought against them.
type Store interface {
	GetPlan(ctx context.Context, id int64) (domain.Plan, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]domain.Plan, error)
	CountPlans(ctx context.Context, filter PlanFilter) (int, error)
	SavePlan(ctx context.Context, value *domain.Plan) error
	DeletePlan(ctx context.Context, id int64) error

	GetSubscription(ctx context.Context, id int64) (domain.Subscription, error)
	SaveSubscription(ctx context.Context, value *domain.Subscription) error
	ListSubscriptionsByUser(ctx context.Context, userID int64) ([]domain.Subscription, error)
	ListSubscriptionsByUsers(ctx context.Context, userIDs []int64) (map[int64][]domain.Subscription, error)
}

// PlanFilter carries filtering parameters for plan listings.
type PlanFilter struct {
	Limit    int
	Offset   int
	Search   string // name or category
	IsActive *bool
}
