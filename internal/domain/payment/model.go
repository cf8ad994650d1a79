package payment

import (
	"errors"
	"time"

	"gymdesk/internal/domain/membership"
)

// Method is how the member paid.
type Method string

const (
	MethodCredit Method = "credit"
	MethodDebit  Method = "debit"
)

// Status is the gateway outcome recorded against a payment.
type Status string

const (
	StatusSucceeded     Status = "succeeded"
	StatusFailed        Status = "failed"
	StatusRefunded      Status = "refunded"       // charged, then returned because the purchase could not be stored
	StatusRefundPending Status = "refund_pending" // as refunded, but the gateway refused the refund
)

// Domain errors
var (
	ErrInvalidMethod  = errors.New("payment method must be 'credit' or 'debit'")
	ErrAmountMismatch = errors.New("amount does not match the plan price")
	ErrDeclined       = errors.New("payment was declined")
	ErrNotFound       = errors.New("payment not found")
)

// Payment is one charge for a membership plan.
type Payment struct {
	ID        int64             `json:"id"`
	MemberID  int64             `json:"user_id"`
	PlanID    int64             `json:"membership_plan_id"`
	Amount    membership.Amount `json:"amount"`
	Method    Method            `json:"payment_method"`
	Reference string            `json:"reference"`
	Status    Status            `json:"status"`
	CreatedAt time.Time         `json:"payment_date"`
}

// ParseMethod validates a payment method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodCredit, MethodDebit:
		return Method(s), nil
	}
	return "", ErrInvalidMethod
}

// Validate checks if the Payment has valid data.
// PRE: Payment struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (p *Payment) Validate() error {
	if p.MemberID <= 0 {
		return errors.New("payment must be associated with a member")
	}
	if p.PlanID <= 0 {
		return errors.New("payment must reference a plan")
	}
	if p.Amount < 0 {
		return membership.ErrInvalidAmount
	}
	if _, err := ParseMethod(string(p.Method)); err != nil {
		return err
	}
	if p.Reference == "" {
		return errors.New("payment reference must be set")
	}
	return nil
}

// CheckAmount verifies the tendered amount against the plan being bought.
// PRE: plan is active
func CheckAmount(plan membership.Plan, tendered membership.Amount) error {
	if tendered != plan.Price {
		return ErrAmountMismatch
	}
	return nil
}
