package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/parcelops/hubsync/internal/hubspot"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// FormatObjects renders one row per record, one column per property.
func (f *TableFormatter) FormatObjects(objects []hubspot.Object, properties []string) (string, error) {
	columns := objectColumns(objects, properties)

	t := newTable()
	header := table.Row{"ID"}
	for _, column := range columns {
		header = append(header, column)
	}
	header = append(header, "Updated")
	t.AppendHeader(header)

	for _, object := range objects {
		row := table.Row{object.ID}
		for _, column := range columns {
			row = append(row, formatCell(object.Property(column)))
		}
		row = append(row, timestamp(object.UpdatedAt))
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d record(s)", len(objects))})
	return t.Render(), nil
}

// FormatObject renders a single record as property/value pairs.
func (f *TableFormatter) FormatObject(object *hubspot.Object) (string, error) {
	if object == nil {
		return "", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"id", object.ID})
	for _, key := range sortedKeys(object.Properties) {
		t.AppendRow(table.Row{key, formatCell(object.Properties[key])})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"created", timestamp(object.CreatedAt)})
	t.AppendRow(table.Row{"updated", timestamp(object.UpdatedAt)})
	if object.Archived {
		t.AppendRow(table.Row{"archived", "true"})
	}
	return t.Render(), nil
}

// FormatStatus renders local limiter tiers and, when HubSpot sent them, the provider's limits.
func (f *TableFormatter) FormatStatus(status *Status) (string, error) {
	if status == nil {
		return "", nil
	}

	stats := status.Limiter
	t := newTable()
	t.SetTitle("Rate limits (%s)", status.BaseURL)
	t.AppendHeader(table.Row{"Tier", "Available", "Capacity", "Used"})
	t.AppendRow(table.Row{"burst", fmt.Sprintf("%.1f", stats.BurstTokensAvailable), stats.BurstCapacity, percent(stats.BurstUtilization)})
	t.AppendRow(table.Row{"daily", fmt.Sprintf("%.1f", stats.DailyTokensAvailable), stats.DailyCapacity, percent(stats.DailyUtilization)})

	if p := status.Provider; p != nil && p.Present {
		t.AppendSeparator()
		if p.Max > 0 {
			t.AppendRow(table.Row{"hubspot " + p.Interval.String(), p.Remaining, p.Max, usedPercent(p.Remaining, p.Max)})
		}
		if p.Daily > 0 {
			t.AppendRow(table.Row{"hubspot daily", p.DailyRemaining, p.Daily, usedPercent(p.DailyRemaining, p.Daily)})
		}
	}

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Requests: %d total, %d in the last minute (%.2f/s)\n",
		stats.TotalRequests, stats.RequestsLastMinute, stats.RecentRequestRate)
	fmt.Fprintf(&sb, "Waits: %d totalling %s", stats.TotalWaits, stats.TotalWaitTime)
	return sb.String(), nil
}

func (f *TableFormatter) FormatOwners(owners []hubspot.Owner) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Email", "Name", "Archived"})
	for _, owner := range owners {
		name := strings.TrimSpace(owner.FirstName + " " + owner.LastName)
		t.AppendRow(table.Row{owner.ID, owner.Email, name, owner.Archived})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatPipelines(pipelines []hubspot.Pipeline) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Pipeline", "Label", "Stage", "Stage Label"})
	for _, pipeline := range pipelines {
		if len(pipeline.Stages) == 0 {
			t.AppendRow(table.Row{pipeline.ID, pipeline.Label, "", ""})
			continue
		}
		for i, stage := range pipeline.Stages {
			id, label := "", ""
			if i == 0 {
				id, label = pipeline.ID, pipeline.Label
			}
			t.AppendRow(table.Row{id, label, stage.ID, stage.Label})
		}
		t.AppendSeparator()
	}
	return t.Render(), nil
}

func usedPercent(remaining, limit int) string {
	if limit <= 0 {
		return ""
	}
	return percent(float64(limit-remaining) / float64(limit) * 100)
}
