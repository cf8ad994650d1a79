package projections

import (
	"context"

	"gymdesk/internal/adapters/storage/attendance"
	"gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/adapters/storage/membership"
	domainMember "gymdesk/internal/domain/member"
	domainMembership "gymdesk/internal/domain/membership"
	domainPayment "gymdesk/internal/domain/payment"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id int64) (domainMember.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
	Count(ctx context.Context, filter member.ListFilter) (int, error)
}

// SubscriptionStore interface for subscription queries.
type SubscriptionStore interface {
	ListSubscriptionsByUser(ctx context.Context, userID int64) ([]domainMembership.Subscription, error)
	ListSubscriptionsByUsers(ctx context.Context, userIDs []int64) (map[int64][]domainMembership.Subscription, error)
}

// PlanStore interface for plan catalogue queries.
type PlanStore interface {
	GetPlan(ctx context.Context, id int64) (domainMembership.Plan, error)
	ListPlans(ctx context.Context, filter membership.PlanFilter) ([]domainMembership.Plan, error)
	CountPlans(ctx context.Context, filter membership.PlanFilter) (int, error)
}

// AttendanceStore interface for attendance queries.
type AttendanceStore interface {
	List(ctx context.Context, filter attendance.ListFilter) ([]attendance.Listed, error)
	Count(ctx context.Context, filter attendance.ListFilter) (int, error)
}

// PaymentStore interface for payment history queries.
type PaymentStore interface {
	ListByMember(ctx context.Context, memberID int64) ([]domainPayment.Payment, error)
}
