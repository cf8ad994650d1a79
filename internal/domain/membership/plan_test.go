package membership_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"gymdesk/internal/domain/membership"
)

// TestFeatures_UnmarshalJSON covers the lenient feature decoding rules.
func TestFeatures_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want membership.Features
	}{
		{name: "array", raw: `["a","b"]`, want: membership.Features{"a", "b"}},
		{name: "encoded array string", raw: `"[\"a\",\"b\"]"`, want: membership.Features{"a", "b"}},
		{name: "plain string kept whole", raw: `"Pool access, 24/7 access"`, want: membership.Features{"Pool access, 24/7 access"}},
		{name: "encoded non-array kept whole", raw: `"42"`, want: membership.Features{"42"}},
		{name: "encoded mixed array", raw: `"[1,2]"`, want: membership.Features{"1", "2"}},
		{name: "encoded null text kept whole", raw: `"null"`, want: membership.Features{"null"}},
		{name: "null", raw: `null`, want: membership.Features{}},
		{name: "empty string", raw: `""`, want: membership.Features{}},
		{name: "mixed array", raw: `["Sauna", 3, null]`, want: membership.Features{"Sauna", "3"}},
		{name: "bare number", raw: `7`, want: membership.Features{"7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got membership.Features
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestParseFeatures_FallbackPreservesText verifies unparseable text becomes one feature.
func TestParseFeatures_FallbackPreservesText(t *testing.T) {
	got := membership.ParseFeatures("Pool access, 24/7 access")
	if len(got) != 1 || got[0] != "Pool access, 24/7 access" {
		t.Fatalf("got %#v", got)
	}
	if got := membership.ParseFeatures(`["a","b"]`); !reflect.DeepEqual(got, membership.Features{"a", "b"}) {
		t.Fatalf("got %#v", got)
	}
}

// TestParseFeatures_MatchesArrayDecoding verifies stored text and JSON arrays
// follow the same item rules.
func TestParseFeatures_MatchesArrayDecoding(t *testing.T) {
	tests := []struct {
		raw  string
		want membership.Features
	}{
		{raw: `[1,2]`, want: membership.Features{"1", "2"}},
		{raw: `["Sauna", true, null]`, want: membership.Features{"Sauna", "true"}},
		{raw: ` [] `, want: membership.Features{}},
		{raw: `null`, want: membership.Features{"null"}},
		{raw: `[broken`, want: membership.Features{"[broken"}},
	}
	for _, tt := range tests {
		got := membership.ParseFeatures(tt.raw)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseFeatures(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
		if tt.raw[0] != '[' && tt.raw[0] != ' ' {
			continue
		}
		var decoded membership.Features
		if err := json.Unmarshal([]byte(tt.raw), &decoded); err == nil && !reflect.DeepEqual(decoded, got) {
			t.Errorf("UnmarshalJSON(%q) = %#v, ParseFeatures = %#v", tt.raw, decoded, got)
		}
	}
}

// TestFeatures_MarshalNil verifies nil features encode as an empty array.
func TestFeatures_MarshalNil(t *testing.T) {
	var f membership.Features
	if got := f.Encode(); got != "[]" {
		t.Errorf("Encode() = %q, want []", got)
	}
}

// TestAmount_JSON covers number and string decoding.
func TestAmount_JSON(t *testing.T) {
	tests := []struct {
		raw     string
		want    membership.Amount
		wantErr bool
	}{
		{raw: `49.99`, want: 4999},
		{raw: `"49.99"`, want: 4999},
		{raw: `"10"`, want: 1000},
		{raw: `0`, want: 0},
		{raw: `null`, want: 0},
		{raw: `"ten"`, wantErr: true},
	}
	for _, tt := range tests {
		var got membership.Amount
		err := json.Unmarshal([]byte(tt.raw), &got)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.raw, got, tt.want)
		}
	}

	b, err := json.Marshal(membership.Amount(1505))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "15.05" {
		t.Errorf("marshal = %s, want 15.05", b)
	}
}

// TestPlanValidation tests validation of Plan.
func TestPlanValidation(t *testing.T) {
	tests := []struct {
		name    string
		plan    membership.Plan
		wantErr error
	}{
		{name: "valid", plan: membership.Plan{Name: "Gold", Price: 4999, DurationDays: 30}},
		{name: "free plan", plan: membership.Plan{Name: "Trial", Price: 0, DurationDays: 7}},
		{name: "empty name", plan: membership.Plan{Name: " ", DurationDays: 30}, wantErr: membership.ErrEmptyPlanName},
		{name: "negative price", plan: membership.Plan{Name: "Gold", Price: -1, DurationDays: 30}, wantErr: membership.ErrNegativePrice},
		{name: "zero duration", plan: membership.Plan{Name: "Gold", DurationDays: 0}, wantErr: membership.ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.plan.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
