package payment

import (
	"context"

	domainMembership "gymdesk/internal/domain/membership"
	domain "gymdesk/internal/domain/payment"
)

// Store persists payments.
type Store interface {
	Save(ctx context.Context, value *domain.Payment) error
	SavePurchase(ctx context.Context, value *domain.Payment, sub *domainMembership.Subscription) error
	ListByMember(ctx context.Context, memberID int64) ([]domain.Payment, error)
}
