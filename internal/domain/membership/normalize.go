package membership

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Shape identifies which of the upstream membership payload forms was received.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeSingle        // {"membership": {...} | null}
	ShapeList          // {"memberships": [...]} or a bare array
	ShapeSummary       // {"current_active_membership": ..., "all_active_memberships": [...], ...}
)

// String returns the shape name used in logs.
func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeList:
		return "list"
	case ShapeSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// summaryKeys are the fields that mark a summary payload.
var summaryKeys = []string{
	"current_active_membership",
	"all_active_memberships",
	"has_current_active",
	"expires_in_days",
}

// Date is a calendar timestamp that tolerates the formats the API emits.
// Unparseable values decode to the zero time instead of failing the payload.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses s using the accepted layouts. The second result is false
// when no layout matched.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		d.Time = time.Time{}
		return nil
	}
	d.Time, _ = ParseDate(s)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.RFC3339))
}

// Flag is a boolean that also accepts 0/1 and their string forms.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.TrimSpace(string(b)), `"`) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Price is an Amount that decodes unusable values ("N/A", "", objects) as zero
// so a bad price never discards the record around it.
type Price Amount

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(b []byte) error {
	var a Amount
	if err := a.UnmarshalJSON(b); err != nil {
		a = 0
	}
	*p = Price(a)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Price) MarshalJSON() ([]byte, error) {
	return Amount(p).MarshalJSON()
}

// Days is a day count that also accepts numeric strings. Anything else decodes to 0.
type Days float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Days) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	*d = Days(f)
	return nil
}

// PlanRef is the plan object nested inside an upstream membership record.
type PlanRef struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Price        Price    `json:"price"`
	DurationDays Days     `json:"duration_days,omitempty"`
	Features     Features `json:"features"`
}

// Record is one membership as the upstream API serializes it.
type Record struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	PlanID    int64    `json:"membership_plan_id"`
	Plan      *PlanRef `json:"membership_plan,omitempty"`
	Features  Features `json:"features,omitempty"`
	StartDate Date     `json:"start_date"`
	EndDate   Date     `json:"end_date"`
	IsActive  Flag     `json:"is_active"`
}

// Summary is the wrapper returned by the member's own membership endpoint.
type Summary struct {
	CurrentActive    *Record  `json:"current_active_membership"`
	AllActive        []Record `json:"all_active_memberships"`
	HasCurrentActive Flag     `json:"has_current_active"`
	ExpiresInDays    Days     `json:"expires_in_days"`
	ExpiryPhrase     string   `json:"expiry_phrase,omitempty"`
}

// Payload is a tagged union over the accepted membership payload shapes.
// Only the field matching Shape is read.
type Payload struct {
	Shape   Shape
	Single  *Record
	List    []Record
	Summary *Summary
}

// DecodePayload classifies raw JSON into a Payload.
// Keys whose value is null do not count towards a shape unless they are the
// only shape key present. Mixed or unrecognized input yields ShapeUnknown.
// POST: never panics; invalid JSON yields ShapeUnknown
func DecodePayload(data []byte) Payload {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{}
	}
	if trimmed[0] == '[' {
		var list []Record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return Payload{}
		}
		return Payload{Shape: ShapeList, List: list}
	}
	if trimmed[0] != '{' {
		return Payload{}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Payload{}
	}

	present := map[Shape]bool{}
	populated := map[Shape]bool{}
	mark := func(shape Shape, key string) {
		raw, ok := fields[key]
		if !ok {
			return
		}
		present[shape] = true
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			populated[shape] = true
		}
	}
	mark(ShapeSingle, "membership")
	mark(ShapeList, "memberships")
	for _, key := range summaryKeys {
		mark(ShapeSummary, key)
	}

	shape := ShapeUnknown
	switch {
	case len(populated) == 1:
		for s := range populated {
			shape = s
		}
	case len(populated) == 0 && len(present) == 1:
		for s := range present {
			shape = s
		}
	default:
		return Payload{}
	}

	switch shape {
	case ShapeSingle:
		var r *Record
		if err := json.Unmarshal(fields["membership"], &r); err != nil {
			return Payload{}
		}
		return Payload{Shape: ShapeSingle, Single: r}
	case ShapeList:
		var list []Record
		if err := json.Unmarshal(fields["memberships"], &list); err != nil {
			return Payload{}
		}
		return Payload{Shape: ShapeList, List: list}
	case ShapeSummary:
		var s Summary
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Payload{}
		}
		return Payload{Shape: ShapeSummary, Summary: &s}
	}
	return Payload{}
}

// Normalize reduces any payload shape to canonical subscriptions ordered by id.
// Records repeated across the summary's current and active lists appear once.
// POST: never returns nil; ShapeUnknown yields an empty slice
func Normalize(p Payload) []Subscription {
	var records []Record
	switch p.Shape {
	case ShapeSingle:
		if p.Single != nil {
			records = append(records, *p.Single)
		}
	case ShapeList:
		records = p.List
	case ShapeSummary:
		if p.Summary != nil {
			if p.Summary.CurrentActive != nil {
				records = append(records, *p.Summary.CurrentActive)
			}
			records = append(records, p.Summary.AllActive...)
		}
	}

	out := make([]Subscription, 0, len(records))
	seen := make(map[int64]bool, len(records))
	for _, r := range records {
		if r.ID != 0 {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
		}
		out = append(out, r.subscription())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NormalizeJSON is DecodePayload followed by Normalize.
func NormalizeJSON(data []byte) []Subscription {
	return Normalize(DecodePayload(data))
}

// subscription inlines plan-derived fields into a canonical Subscription.
func (r Record) subscription() Subscription {
	s := Subscription{
		ID:        r.ID,
		UserID:    r.UserID,
		PlanID:    r.PlanID,
		Features:  r.Features,
		StartDate: r.StartDate.Time,
		EndDate:   r.EndDate.Time,
		IsActive:  bool(r.IsActive),
	}
	durationDays := 0
	if r.Plan != nil {
		if s.PlanID == 0 {
			s.PlanID = r.Plan.ID
		}
		s.PlanName = r.Plan.Name
		s.Price = Amount(r.Plan.Price)
		if len(r.Plan.Features) > 0 {
			s.Features = r.Plan.Features
		}
		durationDays = int(r.Plan.DurationDays)
	}
	if s.Features == nil {
		s.Features = Features{}
	}
	if s.EndDate.IsZero() && !s.StartDate.IsZero() && durationDays > 0 {
		s.EndDate = s.StartDate.AddDate(0, 0, durationDays)
	}
	if !s.StartDate.IsZero() && s.EndDate.Before(s.StartDate) {
		s.EndDate = s.StartDate
	}
	return s
}

// RecordOf converts a stored subscription into its upstream wire form.
// It is the inverse of Normalize for a single record.
func RecordOf(s Subscription) Record {
	return Record{
		ID:     s.ID,
		UserID: s.UserID,
		PlanID: s.PlanID,
		Plan: &PlanRef{
			ID:       s.PlanID,
			Name:     s.PlanName,
			Price:    Price(s.Price),
			Features: s.Features,
		},
		StartDate: Date{s.StartDate},
		EndDate:   Date{s.EndDate},
		IsActive:  Flag(s.IsActive),
	}
}
