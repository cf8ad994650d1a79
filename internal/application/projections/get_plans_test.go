package projections

import (
	"context"
	"testing"

	"gymdesk/internal/adapters/storage/membership"
	"gymdesk/internal/application/listutil"
	domainMembership "gymdesk/internal/domain/membership"
	domainPayment "gymdesk/internal/domain/payment"
)

type mockPlanStore struct {
	plans   []domainMembership.Plan
	filters []membership.PlanFilter
}

func (m *mockPlanStore) GetPlan(_ context.Context, id int64) (domainMembership.Plan, error) {
	for _, p := range m.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return domainMembership.Plan{}, domainMembership.ErrPlanNotFound
}

func (m *mockPlanStore) ListPlans(_ context.Context, f membership.PlanFilter) ([]domainMembership.Plan, error) {
	m.filters = append(m.filters, f)
	return m.plans, nil
}

func (m *mockPlanStore) CountPlans(_ context.Context, _ membership.PlanFilter) (int, error) {
	return len(m.plans), nil
}

type mockPaymentStore struct {
	payments []domainPayment.Payment
}

func (m *mockPaymentStore) ListByMember(_ context.Context, memberID int64) ([]domainPayment.Payment, error) {
	var out []domainPayment.Payment
	for _, p := range m.payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	return out, nil
}

// TestQueryGetPlans_CurrentFlag verifies only plans with an active subscription are marked current.
func TestQueryGetPlans_CurrentFlag(t *testing.T) {
	plans := &mockPlanStore{plans: []domainMembership.Plan{
		{ID: 2, Name: "Silver", Price: 2999, DurationDays: 30, IsActive: true},
		{ID: 3, Name: "Gold", Price: 4999, DurationDays: 30, IsActive: true},
	}}
	subs := &mockSubscriptionStore{subs: []domainMembership.Subscription{
		{ID: 1, UserID: 1, PlanID: 3, IsActive: true},
		{ID: 2, UserID: 1, PlanID: 2, IsActive: false},
	}}
	active := true

	page, err := QueryGetPlans(context.Background(), GetPlansQuery{
		PageParams: listutil.PageParams{Page: 1, PerPage: 20},
		IsActive:   &active,
		ViewerID:   1,
	}, GetPlansDeps{PlanStore: plans, Subscriptions: subs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("got %d plans, want 2", len(page.Items))
	}
	if page.Items[0].IsCurrent || !page.Items[1].IsCurrent {
		t.Errorf("current flags = %v, %v; want false, true", page.Items[0].IsCurrent, page.Items[1].IsCurrent)
	}
	if f := plans.filters[0]; f.IsActive == nil || !*f.IsActive || f.Limit != 20 {
		t.Errorf("filter = %+v", f)
	}
}

// TestQueryGetPlans_StaffView verifies no subscription lookup happens without a viewer.
func TestQueryGetPlans_StaffView(t *testing.T) {
	plans := &mockPlanStore{plans: []domainMembership.Plan{{ID: 3, Name: "Gold", DurationDays: 30}}}
	page, err := QueryGetPlans(context.Background(), GetPlansQuery{}, GetPlansDeps{PlanStore: plans})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].IsCurrent {
		t.Errorf("items = %+v", page.Items)
	}
}

// TestQueryGetMemberPayments verifies history is scoped to the member and totals succeeded payments only.
func TestQueryGetMemberPayments(t *testing.T) {
	store := &mockPaymentStore{payments: []domainPayment.Payment{
		{ID: 3, MemberID: 1, Amount: 4999, Status: domainPayment.StatusSucceeded},
		{ID: 2, MemberID: 1, Amount: 4999, Status: domainPayment.StatusFailed},
		{ID: 1, MemberID: 2, Amount: 2999, Status: domainPayment.StatusSucceeded},
	}}
	got, err := QueryGetMemberPayments(context.Background(), 1, GetMemberPaymentsDeps{PaymentStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d payments, want 2", len(got))
	}
	if total := PaymentTotal(got); total != 4999 {
		t.Errorf("PaymentTotal = %v, want 49.99", total)
	}

	none, err := QueryGetMemberPayments(context.Background(), 9, GetMemberPaymentsDeps{PaymentStore: store})
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("no history: got %#v, %v", none, err)
	}
}
