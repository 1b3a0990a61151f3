package hubspot

import (
	"fmt"
	"slices"
	"strings"
)

// Search operators accepted by the CRM search API.
const (
	OpEQ               = "EQ"
	OpNEQ              = "NEQ"
	OpLT               = "LT"
	OpLTE              = "LTE"
	OpGT               = "GT"
	OpGTE              = "GTE"
	OpBetween          = "BETWEEN"
	OpIn               = "IN"
	OpNotIn            = "NOT_IN"
	OpHasProperty      = "HAS_PROPERTY"
	OpNotHasProperty   = "NOT_HAS_PROPERTY"
	OpContainsToken    = "CONTAINS_TOKEN"
	OpNotContainsToken = "NOT_CONTAINS_TOKEN"
)

var operators = []string{
	OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE, OpBetween, OpIn, OpNotIn,
	OpHasProperty, OpNotHasProperty, OpContainsToken, OpNotContainsToken,
}

// Filter is one search condition.
type Filter struct {
	PropertyName string   `json:"propertyName"`
	Operator     string   `json:"operator"`
	Value        string   `json:"value,omitempty"`
	HighValue    string   `json:"highValue,omitempty"`
	Values       []string `json:"values,omitempty"`
}

// Sort orders search results.
type Sort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

// ParseFilter parses "property:OPERATOR:value". IN and NOT_IN take a comma-separated list, BETWEEN
// takes "low,high", and HAS_PROPERTY / NOT_HAS_PROPERTY take no value.
func ParseFilter(raw string) (Filter, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return Filter{}, fmt.Errorf("%w: filter %q must look like property:OPERATOR[:value]", ErrInvalidInput, raw)
	}

	filter := Filter{
		PropertyName: strings.TrimSpace(parts[0]),
		Operator:     strings.ToUpper(strings.TrimSpace(parts[1])),
	}
	if !slices.Contains(operators, filter.Operator) {
		return Filter{}, fmt.Errorf("%w: unknown filter operator %q", ErrInvalidInput, parts[1])
	}

	value := ""
	if len(parts) == 3 {
		value = strings.TrimSpace(parts[2])
	}

	switch filter.Operator {
	case OpHasProperty, OpNotHasProperty:
		if value != "" {
			return Filter{}, fmt.Errorf("%w: %s takes no value", ErrInvalidInput, filter.Operator)
		}
	case OpIn, OpNotIn:
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				filter.Values = append(filter.Values, item)
			}
		}
		if len(filter.Values) == 0 {
			return Filter{}, fmt.Errorf("%w: %s needs at least one value", ErrInvalidInput, filter.Operator)
		}
	case OpBetween:
		low, high, ok := strings.Cut(value, ",")
		if !ok || strings.TrimSpace(low) == "" || strings.TrimSpace(high) == "" {
			return Filter{}, fmt.Errorf("%w: BETWEEN needs low,high", ErrInvalidInput)
		}
		filter.Value = strings.TrimSpace(low)
		filter.HighValue = strings.TrimSpace(high)
	default:
		if value == "" {
			return Filter{}, fmt.Errorf("%w: %s needs a value", ErrInvalidInput, filter.Operator)
		}
		filter.Value = value
	}
	return filter, nil
}

// ParseSort parses "property" or "property:asc|desc".
func ParseSort(raw string) (Sort, error) {
	name, dir, _ := strings.Cut(strings.TrimSpace(raw), ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Sort{}, fmt.Errorf("%w: sort property is required", ErrInvalidInput)
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc", "ascending":
		return Sort{PropertyName: name, Direction: "ASCENDING"}, nil
	case "desc", "descending":
		return Sort{PropertyName: name, Direction: "DESCENDING"}, nil
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort direction %q", ErrInvalidInput, dir)
	}
}
