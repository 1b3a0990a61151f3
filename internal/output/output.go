// Package output renders CRM records, owners, pipelines and limiter state for the CLI.
package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/ratelimit"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formatter renders command results.
type Formatter interface {
	FormatObjects(objects []hubspot.Object, properties []string) (string, error)
	FormatObject(object *hubspot.Object) (string, error)
	FormatStatus(status *Status) (string, error)
	FormatOwners(owners []hubspot.Owner) (string, error)
	FormatPipelines(pipelines []hubspot.Pipeline) (string, error)
}

// Status is what `hubsync status` reports: the limits HubSpot echoed on a probe request next to
// the local limiter's view.
type Status struct {
	BaseURL  string                  `json:"base_url" yaml:"base_url"`
	Provider *hubspot.ProviderLimits `json:"provider_limits,omitempty" yaml:"provider_limits,omitempty"`
	Limiter  ratelimit.Stats         `json:"limiter" yaml:"limiter"`
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// objectColumns picks the property columns for a list of records. Requested properties keep
// their order; otherwise every property seen is shown, sorted by name.
func objectColumns(objects []hubspot.Object, properties []string) []string {
	if len(properties) > 0 {
		return properties
	}

	seen := make(map[string]struct{})
	for _, object := range objects {
		for key := range object.Properties {
			if isSystemProperty(key) {
				continue
			}
			seen[key] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

// isSystemProperty hides the bookkeeping properties HubSpot returns on every record.
func isSystemProperty(name string) bool {
	switch name {
	case "hs_object_id", "createdate", "hs_createdate", "lastmodifieddate", "hs_lastmodifieddate":
		return true
	}
	return false
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatCell(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > 60 {
		return value[:57] + "..."
	}
	return value
}

func timestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
