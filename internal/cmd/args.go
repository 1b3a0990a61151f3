package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parcelops/hubsync/internal/hubspot"
)

// parseAssignments turns repeated key=value flags into a property map. Values may contain "=";
// an empty value clears the property in HubSpot.
func parseAssignments(values []string) (map[string]string, error) {
	properties := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", hubspot.ErrInvalidInput, raw)
		}
		if _, dup := properties[key]; dup {
			return nil, fmt.Errorf("%w: property %q set more than once", hubspot.ErrInvalidInput, key)
		}
		properties[key] = value
	}
	return properties, nil
}

// searchOptions reads the shared search flags.
func searchOptions(cmd *cobra.Command) (hubspot.SearchOptions, error) {
	var opts hubspot.SearchOptions

	query, err := cmd.Flags().GetString("query")
	if err != nil {
		return opts, err
	}
	rawFilters, err := cmd.Flags().GetStringArray("filter")
	if err != nil {
		return opts, err
	}
	rawSorts, err := cmd.Flags().GetStringArray("sort")
	if err != nil {
		return opts, err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return opts, err
	}
	if limit < 0 {
		return opts, fmt.Errorf("%w: --limit must not be negative", hubspot.ErrInvalidInput)
	}
	properties, err := propertyFlag(cmd)
	if err != nil {
		return opts, err
	}

	opts.Query = query
	opts.Limit = limit
	opts.Properties = properties
	for _, raw := range rawFilters {
		filter, err := hubspot.ParseFilter(raw)
		if err != nil {
			return opts, err
		}
		opts.Filters = append(opts.Filters, filter)
	}
	for _, raw := range rawSorts {
		sort, err := hubspot.ParseSort(raw)
		if err != nil {
			return opts, err
		}
		opts.Sorts = append(opts.Sorts, sort)
	}
	return opts, nil
}

// propertyFlag returns the --property values, trimmed and without blanks.
func propertyFlag(cmd *cobra.Command) ([]string, error) {
	values, err := cmd.Flags().GetStringSlice("property")
	if err != nil {
		return nil, err
	}
	properties := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			properties = append(properties, value)
		}
	}
	return properties, nil
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "Free-text query across default searchable properties")
	cmd.Flags().StringArray("filter", nil, "Filter as property:OPERATOR[:value] (repeatable, AND-ed)")
	cmd.Flags().StringArray("sort", nil, "Sort as property[:asc|desc] (repeatable)")
	cmd.Flags().Int("limit", hubspot.DefaultSearchLimit, "Maximum number of records to return")
	addPropertyFlag(cmd)
}

func addPropertyFlag(cmd *cobra.Command) {
	cmd.Flags().StringSlice("property", nil, "Properties to fetch (repeatable or comma-separated)")
}

func addSetFlag(cmd *cobra.Command) {
	cmd.Flags().StringArray("set", nil, "Property assignment as key=value (repeatable)")
}
