package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "gymdesk/internal/adapters/email"
	"gymdesk/internal/adapters/payments"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/membership"
	"gymdesk/internal/domain/payment"

	"github.com/google/uuid"
)

// SubscribePlanStore defines the membership store interface needed to subscribe.
type SubscribePlanStore interface {
	GetPlan(ctx context.Context, id int64) (membership.Plan, error)
}

// PaymentSaver persists payment attempts. SavePurchase stores a succeeded
// payment together with its subscription, or neither.
type PaymentSaver interface {
	Save(ctx context.Context, value *payment.Payment) error
	SavePurchase(ctx context.Context, value *payment.Payment, sub *membership.Subscription) error
}

// PaymentMetrics receives payment outcomes.
type PaymentMetrics interface {
	PaymentRecorded(status string)
}

// SubscribeInput carries input for the subscribe orchestrator.
type SubscribeInput struct {
	MemberID int64
	PlanID   int64
	Method   string
	Amount   membership.Amount
}

// SubscribeResult carries the payment and the subscription it bought.
type SubscribeResult struct {
	Payment      payment.Payment         `json:"payment"`
	Subscription membership.Subscription `json:"subscription"`
}

// SubscribeDeps holds dependencies for Subscribe.
type SubscribeDeps struct {
	MemberStore  MemberLookup
	PlanStore    SubscribePlanStore
	PaymentStore PaymentSaver
	Gateway      payments.Gateway
	Sender       emailAdapter.Sender // optional: receipts are skipped when nil
	Metrics      PaymentMetrics      // optional
	Now          func() time.Time
}

// ExecuteSubscribe charges a member for a plan and starts the subscription.
// PRE: plan is active; Amount equals the plan price
// POST: a payment row is stored for every gateway attempt; on success a
// subscription from now to now+duration_days is stored with it. A charge
// whose purchase cannot be stored is refunded and recorded as refunded
// (or refund_pending when the gateway refuses the refund).
// INVARIANT: a succeeded payment and its subscription are stored together or not at all
func ExecuteSubscribe(ctx context.Context, input SubscribeInput, deps SubscribeDeps) (SubscribeResult, error) {
	if input.MemberID <= 0 {
		return SubscribeResult{}, ErrMemberRequired
	}
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return SubscribeResult{}, err
	}
	if m.IsArchived() {
		return SubscribeResult{}, member.ErrArchived
	}

	plan, err := deps.PlanStore.GetPlan(ctx, input.PlanID)
	if err != nil {
		return SubscribeResult{}, err
	}
	if !plan.IsActive {
		return SubscribeResult{}, membership.ErrPlanInactive
	}
	method, err := payment.ParseMethod(input.Method)
	if err != nil {
		return SubscribeResult{}, err
	}
	if err := payment.CheckAmount(plan, input.Amount); err != nil {
		return SubscribeResult{}, err
	}

	now := nowFrom(deps.Now)
	p := payment.Payment{
		MemberID:  m.ID,
		PlanID:    plan.ID,
		Amount:    input.Amount,
		Method:    method,
		Status:    payment.StatusSucceeded,
		CreatedAt: now,
	}

	charge, err := deps.Gateway.Charge(ctx, payments.ChargeRequest{
		MemberID:    m.ID,
		AmountCents: int64(input.Amount),
		Method:      string(method),
		Description: plan.Label() + " membership",
	})
	switch {
	case errors.Is(err, payments.ErrDeclined):
		p.Status = payment.StatusFailed
		p.Reference = "declined_" + uuid.NewString()
		if err := deps.PaymentStore.Save(ctx, &p); err != nil {
			return SubscribeResult{}, err
		}
		recordPayment(deps.Metrics, p.Status)
		return SubscribeResult{Payment: p}, payment.ErrDeclined
	case err != nil:
		return SubscribeResult{}, fmt.Errorf("charge member %d: %w", m.ID, err)
	}

	p.Reference = charge.Reference
	sub := membership.NewSubscription(m.ID, plan, now)
	err = sub.Validate()
	if err == nil {
		err = deps.PaymentStore.SavePurchase(ctx, &p, &sub)
	}
	if err != nil {
		refundCharge(ctx, deps, &p, err)
		return SubscribeResult{Payment: p}, fmt.Errorf("store purchase for member %d: %w", m.ID, err)
	}
	recordPayment(deps.Metrics, p.Status)

	slog.Info("payment_event", "event", "membership_purchased", "member_id", m.ID, "plan_id", plan.ID,
		"subscription_id", sub.ID, "reference", p.Reference, "amount", p.Amount.String())

	sendReceipt(ctx, deps.Sender, m, plan, p, sub)
	return SubscribeResult{Payment: p, Subscription: sub}, nil
}

// refundCharge returns a charge whose purchase could not be stored and keeps
// a trail of it. Storing the trail is best effort.
func refundCharge(ctx context.Context, deps SubscribeDeps, p *payment.Payment, cause error) {
	p.ID = 0
	p.Status = payment.StatusRefunded
	if err := deps.Gateway.Refund(ctx, p.Reference); err != nil {
		p.Status = payment.StatusRefundPending
		slog.Error("payment_event", "event", "refund_failed", "member_id", p.MemberID,
			"reference", p.Reference, "cause", cause.Error(), "error", err.Error())
	} else {
		slog.Warn("payment_event", "event", "purchase_refunded", "member_id", p.MemberID,
			"reference", p.Reference, "cause", cause.Error())
	}
	if err := deps.PaymentStore.Save(ctx, p); err != nil {
		slog.Error("payment_event", "event", "refund_unrecorded", "member_id", p.MemberID,
			"reference", p.Reference, "status", string(p.Status), "error", err.Error())
	}
	recordPayment(deps.Metrics, p.Status)
}

func recordPayment(metrics PaymentMetrics, status payment.Status) {
	if metrics != nil {
		metrics.PaymentRecorded(string(status))
	}
}

// sendReceipt emails the receipt. Failures are logged and never undo the purchase.
func sendReceipt(ctx context.Context, sender emailAdapter.Sender, m member.Member, plan membership.Plan, p payment.Payment, sub membership.Subscription) {
	if sender == nil {
		return
	}
	req, err := emailAdapter.ReceiptRequest(m.Email, emailAdapter.Receipt{
		MemberName: m.Name,
		PlanName:   plan.Label(),
		Amount:     p.Amount.String(),
		Method:     string(p.Method),
		Reference:  p.Reference,
		PaidAt:     p.CreatedAt,
		StartDate:  sub.StartDate,
		EndDate:    sub.EndDate,
	})
	if err == nil {
		_, err = sender.Send(ctx, req)
	}
	if err != nil {
		slog.Warn("email_event", "event", "receipt_failed", "member_id", m.ID, "reference", p.Reference, "error", err)
		return
	}
	slog.Info("email_event", "event", "receipt_sent", "member_id", m.ID, "reference", p.Reference)
}
