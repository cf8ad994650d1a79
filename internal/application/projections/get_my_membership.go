package projections

import (
	"context"
	"time"

	domainMembership "gymdesk/internal/domain/membership"
)

// GetMyMembershipDeps holds dependencies for GetMyMembership.
type GetMyMembershipDeps struct {
	Subscriptions SubscriptionStore
	Now           func() time.Time
}

// QueryGetMyMembership builds the membership summary shown to a logged-in member.
// POST: the summary decodes back through DecodePayload as the summary shape
func QueryGetMyMembership(ctx context.Context, memberID int64, deps GetMyMembershipDeps) (domainMembership.Summary, error) {
	subs, err := deps.Subscriptions.ListSubscriptionsByUser(ctx, memberID)
	if err != nil {
		return domainMembership.Summary{}, err
	}
	return domainMembership.SummaryOf(subs, nowFrom(deps.Now)), nil
}

// MemberSubscriptions is a member's subscription history with the entitlement it grants.
type MemberSubscriptions struct {
	Data        []domainMembership.Subscription `json:"data"`
	Entitlement domainMembership.Entitlement    `json:"entitlement"`
}

// GetMemberSubscriptionsDeps holds dependencies for GetMemberSubscriptions.
type GetMemberSubscriptionsDeps struct {
	MemberStore   MemberStore
	Subscriptions SubscriptionStore
	Now           func() time.Time
}

// QueryGetMemberSubscriptions lists every subscription of a member, inactive
// ones included, for staff who suspend or reinstate them.
// POST: Data is ordered by id and never nil; an unknown member is member.ErrNotFound
func QueryGetMemberSubscriptions(ctx context.Context, memberID int64, deps GetMemberSubscriptionsDeps) (MemberSubscriptions, error) {
	if _, err := deps.MemberStore.GetByID(ctx, memberID); err != nil {
		return MemberSubscriptions{}, err
	}
	subs, err := deps.Subscriptions.ListSubscriptionsByUser(ctx, memberID)
	if err != nil {
		return MemberSubscriptions{}, err
	}
	if subs == nil {
		subs = []domainMembership.Subscription{}
	}
	return MemberSubscriptions{Data: subs, Entitlement: domainMembership.Resolve(subs, nowFrom(deps.Now))}, nil
}

// ResolvedEntitlement is the answer to a raw entitlement resolution request.
type ResolvedEntitlement struct {
	Shape         string                          `json:"shape"`
	Subscriptions []domainMembership.Subscription `json:"subscriptions"`
	Entitlement   domainMembership.Entitlement    `json:"entitlement"`
}

// QueryResolveEntitlement normalizes a raw membership payload in any of the
// accepted shapes and resolves it at now.
// POST: never fails; unrecognized input resolves to "No membership"
func QueryResolveEntitlement(data []byte, now time.Time) ResolvedEntitlement {
	p := domainMembership.DecodePayload(data)
	subs := domainMembership.Normalize(p)
	return ResolvedEntitlement{
		Shape:         p.Shape.String(),
		Subscriptions: subs,
		Entitlement:   domainMembership.Resolve(subs, now),
	}
}
