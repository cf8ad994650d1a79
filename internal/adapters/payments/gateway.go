// Package payments adapts the card gateway used to charge for memberships.
package payments

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrDeclined is returned when the gateway refuses a charge.
var ErrDeclined = errors.New("charge declined by gateway")

// ChargeRequest describes one card charge.
type ChargeRequest struct {
	MemberID    int64
	AmountCents int64
	Method      string // credit or debit
	Description string
}

// ChargeResult is the gateway's acknowledgement of a successful charge.
type ChargeResult struct {
	Reference string
}

// Gateway charges a member. Implementations return ErrDeclined for a
// refused charge and any other error for transport failures.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	// Refund returns a completed charge in full.
	Refund(ctx context.Context, reference string) error
}

// ErrRefundFailed is returned when the gateway cannot return a charge.
var ErrRefundFailed = errors.New("refund rejected by gateway")

// StubGateway approves every charge with a fresh reference until told to
// decline. It stands in for a real processor.
type StubGateway struct {
	decline    atomic.Bool
	failRefund atomic.Bool

	mu       sync.Mutex
	refunded []string
}

// NewStubGateway creates an approving stub gateway.
func NewStubGateway() *StubGateway {
	return &StubGateway{}
}

// SetDecline switches the stub between approving and declining.
func (g *StubGateway) SetDecline(decline bool) {
	g.decline.Store(decline)
}

// Charge approves or declines req.
// POST: a successful result carries a unique reference
func (g *StubGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if g.decline.Load() {
		slog.WarnContext(ctx, "payment_event", "action", "declined", "member_id", req.MemberID, "amount_cents", req.AmountCents)
		return ChargeResult{}, ErrDeclined
	}
	ref := "pay_" + uuid.NewString()
	slog.InfoContext(ctx, "payment_event", "action", "charged", "member_id", req.MemberID, "amount_cents", req.AmountCents, "reference", ref)
	return ChargeResult{Reference: ref}, nil
}

// SetRefundFailure makes subsequent refunds fail.
func (g *StubGateway) SetRefundFailure(fail bool) {
	g.failRefund.Store(fail)
}

// Refund records reference as returned.
func (g *StubGateway) Refund(ctx context.Context, reference string) error {
	if g.failRefund.Load() {
		slog.WarnContext(ctx, "payment_event", "action", "refund_failed", "reference", reference)
		return ErrRefundFailed
	}
	g.mu.Lock()
	g.refunded = append(g.refunded, reference)
	g.mu.Unlock()
	slog.InfoContext(ctx, "payment_event", "action", "refunded", "reference", reference)
	return nil
}

// Refunded returns the references refunded so far.
func (g *StubGateway) Refunded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.refunded...)
}
