package membership

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxPlanNameLength = 100
)

// Domain errors
var (
	ErrEmptyPlanName        = errors.New("plan name cannot be empty")
	ErrPlanNameTooLong      = errors.New("plan name cannot exceed 100 characters")
	ErrNegativePrice        = errors.New("plan price cannot be negative")
	ErrInvalidDuration      = errors.New("plan duration must be at least one day")
	ErrPlanNotFound         = errors.New("membership plan not found")
	ErrPlanInactive         = errors.New("membership plan is not available for purchase")
	ErrPlanInUse            = errors.New("membership plan is referenced by payment history")
	ErrInvalidAmount        = errors.New("amount must be a decimal with at most two fractional digits")
	ErrSubscriptionDate     = errors.New("subscription end date cannot be before its start date")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Amount is a non-negative money value in cents.
// It decodes from a JSON number or a decimal string ("49.99") and encodes as a number.
type Amount int64

// ParseAmount parses a decimal string into cents.
// PRE: s is a decimal number, optionally quoted by the caller already
// POST: Returns the value rounded to the nearest cent
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return Amount(math.Round(f * 100)), nil
}

// String formats the amount as a decimal with two fractional digits.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a number, a numeric string or null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Features is the ordered list of selling points attached to a plan.
// Upstream payloads sometimes carry it as a JSON-encoded string; see ParseFeatures.
type Features []string

// ParseFeatures decodes a feature payload stored as text.
// Text that is a JSON array is read the way Features.UnmarshalJSON reads one:
// strings are kept, other scalars are stringified and nulls are dropped.
// Any other text, "null" included, is kept verbatim as a single feature so
// that no content is lost.
// POST: never returns nil
func ParseFeatures(raw string) Features {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Features{}
	}
	if trimmed[0] == '[' {
		if list, ok := featureList([]byte(trimmed)); ok {
			return list
		}
	}
	return Features{raw}
}

// featureList decodes a JSON array of feature items. ok is false when b is
// not a valid array.
func featureList(b []byte) (Features, bool) {
	var items []any
	if err := json.Unmarshal(b, &items); err != nil || items == nil {
		return nil, false
	}
	out := make(Features, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case string:
			out = append(out, v)
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out, true
}

// UnmarshalJSON never fails: arrays, encoded strings and scalars all map to a list.
func (f *Features) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = Features{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*f = Features{string(trimmed)}
			return nil
		}
		*f = ParseFeatures(s)
	case '[':
		list, ok := featureList(trimmed)
		if !ok {
			list = Features{string(trimmed)}
		}
		*f = list
	default:
		*f = Features{string(trimmed)}
	}
	return nil
}

// MarshalJSON always emits an array, never null.
func (f Features) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// Encode returns the JSON text form used for storage.
func (f Features) Encode() string {
	b, _ := f.MarshalJSON()
	return string(b)
}

// Plan is a purchasable membership plan.
type Plan struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Price        Amount    `json:"price"`
	DurationDays int       `json:"duration_days"`
	Features     Features  `json:"features"`
	IsActive     bool      `json:"is_active"`
	Category     string    `json:"category,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks if the Plan has valid data.
// PRE: Plan struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Price >= 0, DurationDays > 0
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyPlanName
	}
	if len(p.Name) > MaxPlanNameLength {
		return ErrPlanNameTooLong
	}
	if p.Price < 0 {
		return ErrNegativePrice
	}
	if p.DurationDays <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Label returns the plan's display name.
func (p *Plan) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Plan #%d", p.ID)
}
