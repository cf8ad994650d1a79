package projections

import (
	"context"

	"gymdesk/internal/adapters/storage/membership"
	"gymdesk/internal/application/listutil"
	domainMembership "gymdesk/internal/domain/membership"
	domainPayment "gymdesk/internal/domain/payment"
)

// PlanView is a catalogue entry. IsCurrent marks the plan the viewing member
// already holds an active subscription to.
type PlanView struct {
	domainMembership.Plan
	IsCurrent bool `json:"is_current"`
}

// GetPlansQuery carries query parameters.
type GetPlansQuery struct {
	listutil.PageParams
	Search   string
	IsActive *bool
	ViewerID int64 // member viewing the catalogue; zero for staff
}

// GetPlansDeps holds dependencies for GetPlans.
type GetPlansDeps struct {
	PlanStore     PlanStore
	Subscriptions SubscriptionStore // required when ViewerID is set
}

// QueryGetPlans retrieves one page of membership plans, cheapest first.
// POST: IsCurrent is false for every plan when ViewerID is zero
func QueryGetPlans(ctx context.Context, query GetPlansQuery, deps GetPlansDeps) (listutil.Page[PlanView], error) {
	filter := membership.PlanFilter{Search: query.Search, IsActive: query.IsActive}
	total, err := deps.PlanStore.CountPlans(ctx, filter)
	if err != nil {
		return listutil.Page[PlanView]{}, err
	}
	info := listutil.NewPageInfo(query.Page, query.PerPage, total)
	filter.Limit = info.PerPage
	filter.Offset = info.Offset()

	plans, err := deps.PlanStore.ListPlans(ctx, filter)
	if err != nil {
		return listutil.Page[PlanView]{}, err
	}

	var subs []domainMembership.Subscription
	if query.ViewerID > 0 {
		if subs, err = deps.Subscriptions.ListSubscriptionsByUser(ctx, query.ViewerID); err != nil {
			return listutil.Page[PlanView]{}, err
		}
	}

	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, PlanView{Plan: p, IsCurrent: domainMembership.HasPlan(subs, p.ID)})
	}
	return listutil.NewPage(views, info), nil
}

// GetMemberPaymentsDeps holds dependencies for GetMemberPayments.
type GetMemberPaymentsDeps struct {
	PaymentStore PaymentStore
}

// QueryGetMemberPayments lists a member's payments, newest first.
// POST: never returns nil
func QueryGetMemberPayments(ctx context.Context, memberID int64, deps GetMemberPaymentsDeps) ([]domainPayment.Payment, error) {
	payments, err := deps.PaymentStore.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []domainPayment.Payment{}
	}
	return payments, nil
}

// PaymentTotal sums succeeded payments.
func PaymentTotal(payments []domainPayment.Payment) domainMembership.Amount {
	var total domainMembership.Amount
	for _, p := range payments {
		if p.Status == domainPayment.StatusSucceeded {
			total += p.Amount
		}
	}
	return total
}
