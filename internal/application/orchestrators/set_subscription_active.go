package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"gymdesk/internal/domain/membership"
)

// ErrSubscriptionRequired is returned when no subscription id is given.
var ErrSubscriptionRequired = errors.New("subscription id is required")

// SubscriptionStore defines the membership store interface needed to edit subscriptions.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, id int64) (membership.Subscription, error)
	SaveSubscription(ctx context.Context, value *membership.Subscription) error
}

// SetSubscriptionActiveInput carries input for the subscription toggle.
type SetSubscriptionActiveInput struct {
	SubscriptionID int64
	IsActive       bool
}

// SetSubscriptionActiveDeps holds dependencies for SetSubscriptionActive.
type SetSubscriptionActiveDeps struct {
	Subscriptions SubscriptionStore
}

// ExecuteSetSubscriptionActive suspends or reinstates a subscription. The
// window and the copied plan fields are left alone, so an inactive
// subscription stops granting entitlement until it is switched back on.
// PRE: the subscription exists
// POST: IsActive equals input.IsActive
func ExecuteSetSubscriptionActive(ctx context.Context, input SetSubscriptionActiveInput, deps SetSubscriptionActiveDeps) (membership.Subscription, error) {
	if input.SubscriptionID <= 0 {
		return membership.Subscription{}, ErrSubscriptionRequired
	}
	sub, err := deps.Subscriptions.GetSubscription(ctx, input.SubscriptionID)
	if err != nil {
		return membership.Subscription{}, err
	}
	if sub.IsActive == input.IsActive {
		return sub, nil
	}
	sub.IsActive = input.IsActive
	if err := deps.Subscriptions.SaveSubscription(ctx, &sub); err != nil {
		return membership.Subscription{}, err
	}

	slog.Info("membership_event", "event", "subscription_toggled", "subscription_id", sub.ID,
		"member_id", sub.UserID, "is_active", sub.IsActive)
	return sub, nil
}
