package membership

import (
	"errors"
	"fmt"
	"time"
)

// Subscription is one member's instance of a plan for a date range.
// Plan name, price and features are copied at purchase time so later plan
// edits do not rewrite history.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	PlanID    int64     `json:"membership_plan_id"`
	PlanName  string    `json:"plan_name,omitempty"`
	Price     Amount    `json:"price"`
	Features  Features  `json:"features"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
}

// NewSubscription starts a subscription to plan for userID at start.
// PRE: plan has been validated
// POST: EndDate = start + plan.DurationDays, IsActive = true
func NewSubscription(userID int64, plan Plan, start time.Time) Subscription {
	return Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Price:     plan.Price,
		Features:  append(Features{}, plan.Features...),
		StartDate: start,
		EndDate:   start.AddDate(0, 0, plan.DurationDays),
		IsActive:  true,
	}
}

// Validate checks if the Subscription has valid data.
// PRE: Subscription struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: EndDate >= StartDate
func (s *Subscription) Validate() error {
	if s.UserID <= 0 {
		return errors.New("subscription must be associated with a member")
	}
	if s.PlanID <= 0 {
		return errors.New("subscription must reference a plan")
	}
	if s.EndDate.Before(s.StartDate) {
		return ErrSubscriptionDate
	}
	return nil
}

// Label returns the plan name, or "Plan #<plan_id>" when the name is unknown.
// When the plan id is unknown too (zero), the label is "Plan #<id>" using the
// subscription's own id, matching how list views name legacy records.
func (s *Subscription) Label() string {
	switch {
	case s.PlanName != "":
		return s.PlanName
	case s.PlanID > 0:
		return fmt.Sprintf("Plan #%d", s.PlanID)
	default:
		return fmt.Sprintf("Plan #%d", s.ID)
	}
}

// outranks reports whether s should be preferred over other:
// later end date first, then higher id.
func (s *Subscription) outranks(other *Subscription) bool {
	if !s.EndDate.Equal(other.EndDate) {
		return s.EndDate.After(other.EndDate)
	}
	return s.ID > other.ID
}
