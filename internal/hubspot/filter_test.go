package hubspot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		raw  string
		want Filter
	}{
		{"dealstage:EQ:closedwon", Filter{PropertyName: "dealstage", Operator: OpEQ, Value: "closedwon"}},
		{"amount:gte:5000", Filter{PropertyName: "amount", Operator: OpGTE, Value: "5000"}},
		{"closedate:BETWEEN:2026-01-01, 2026-02-01", Filter{PropertyName: "closedate", Operator: OpBetween, Value: "2026-01-01", HighValue: "2026-02-01"}},
		{"dealstage:IN:a,b,,c", Filter{PropertyName: "dealstage", Operator: OpIn, Values: []string{"a", "b", "c"}}},
		{"hubspot_owner_id:NOT_HAS_PROPERTY", Filter{PropertyName: "hubspot_owner_id", Operator: OpNotHasProperty}},
		{"website:EQ:https://example.com", Filter{PropertyName: "website", Operator: OpEQ, Value: "https://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFilter(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilterErrors(t *testing.T) {
	for _, raw := range []string{
		"",
		"dealstage",
		":EQ:x",
		"dealstage:LIKE:x",
		"dealstage:EQ",
		"dealstage:IN:,",
		"amount:BETWEEN:5",
		"email:HAS_PROPERTY:x",
	} {
		_, err := ParseFilter(raw)
		require.ErrorIsf(t, err, ErrInvalidInput, "filter %q", raw)
	}
}

func TestParseSort(t *testing.T) {
	got, err := ParseSort("amount")
	require.NoError(t, err)
	require.Equal(t, Sort{PropertyName: "amount", Direction: "ASCENDING"}, got)

	got, err = ParseSort("closedate:DESC")
	require.NoError(t, err)
	require.Equal(t, Sort{PropertyName: "closedate", Direction: "DESCENDING"}, got)

	_, err = ParseSort("closedate:sideways")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseSort(":desc")
	require.ErrorIs(t, err, ErrInvalidInput)
}
