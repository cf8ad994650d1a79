package membership

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// NoMembershipLabel is the display name of a member without subscriptions.
const NoMembershipLabel = "No membership"

const day = 24 * time.Hour

// Entitlement is the derived access state of one member.
type Entitlement struct {
	IsActive      bool
	Current       *Subscription // best active subscription, nil if none
	DisplayName   string
	ExpiresInDays int

	display   *Subscription
	remaining time.Duration
}

// Resolve derives the entitlement for a member's subscriptions at now.
// Current is the active subscription with the latest end date; ties go to the
// highest id, so the result does not depend on input order.
// POST: total over all inputs including nil; never panics
func Resolve(subs []Subscription, now time.Time) Entitlement {
	e := Entitlement{DisplayName: NoMembershipLabel}
	if len(subs) == 0 {
		return e
	}

	var current, latest *Subscription
	for i := range subs {
		s := &subs[i]
		if latest == nil || s.outranks(latest) {
			latest = s
		}
		if !s.IsActive {
			continue
		}
		e.IsActive = true
		if current == nil || s.outranks(current) {
			current = s
		}
	}

	l := *latest
	e.display = &l
	if current != nil {
		c := *current
		e.Current = &c
		e.display = &c
		e.remaining = current.EndDate.Sub(now)
		if e.remaining > 0 {
			e.ExpiresInDays = int(math.Ceil(float64(e.remaining) / float64(day)))
		}
	}
	e.DisplayName = e.display.Label()
	return e
}

// EndDate returns the end date of the subscription shown to the user,
// or the zero time when the member has none.
func (e Entitlement) EndDate() time.Time {
	if e.display == nil {
		return time.Time{}
	}
	return e.display.EndDate
}

// Phrase returns the expiry text for the current subscription, counting whole
// days left. Members without a current subscription get an empty string.
func (e Entitlement) Phrase() string {
	if e.Current == nil {
		return ""
	}
	whole := 0
	if e.remaining > 0 {
		whole = int(e.remaining / day)
	}
	return ExpiryPhrase(whole)
}

// ExpiryPhrase renders a day count as user-facing text.
func ExpiryPhrase(days int) string {
	switch {
	case days > 1:
		return fmt.Sprintf("Expires in %d days", days)
	case days == 1:
		return "Expires tomorrow"
	default:
		return "Expires today"
	}
}

// MarshalJSON encodes the entitlement for API responses.
func (e Entitlement) MarshalJSON() ([]byte, error) {
	var endDate *time.Time
	if end := e.EndDate(); !end.IsZero() {
		endDate = &end
	}
	return json.Marshal(struct {
		IsActive      bool          `json:"is_active"`
		Current       *Subscription `json:"current"`
		DisplayName   string        `json:"display_name"`
		EndDate       *time.Time    `json:"end_date"`
		ExpiresInDays int           `json:"expires_in_days"`
		ExpiryPhrase  string        `json:"expiry_phrase"`
	}{
		IsActive:      e.IsActive,
		Current:       e.Current,
		DisplayName:   e.DisplayName,
		EndDate:       endDate,
		ExpiresInDays: e.ExpiresInDays,
		ExpiryPhrase:  e.Phrase(),
	})
}

// HasPlan reports whether an active subscription references planID.
func HasPlan(subs []Subscription, planID int64) bool {
	for _, s := range subs {
		if s.IsActive && s.PlanID == planID {
			return true
		}
	}
	return false
}

// ActiveOnly returns the active subscriptions in input order.
func ActiveOnly(subs []Subscription) []Subscription {
	out := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

// SummaryOf builds the summary payload served to members, the same shape
// DecodePayload accepts as ShapeSummary.
func SummaryOf(subs []Subscription, now time.Time) Summary {
	e := Resolve(subs, now)
	active := ActiveOnly(subs)
	s := Summary{
		AllActive:        make([]Record, 0, len(active)),
		HasCurrentActive: Flag(e.Current != nil),
		ExpiresInDays:    Days(e.ExpiresInDays),
		ExpiryPhrase:     e.Phrase(),
	}
	for _, a := range active {
		s.AllActive = append(s.AllActive, RecordOf(a))
	}
	if e.Current != nil {
		r := RecordOf(*e.Current)
		s.CurrentActive = &r
	}
	return s
}
