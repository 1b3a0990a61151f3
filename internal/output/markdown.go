package output

import (
	"fmt"
	"strings"

	"github.com/parcelops/hubsync/internal/hubspot"
)

// MarkdownFormatter renders results as markdown tables, for pasting into tickets.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatObjects(objects []hubspot.Object, properties []string) (string, error) {
	columns := objectColumns(objects, properties)

	var sb strings.Builder
	header := append([]string{"ID"}, columns...)
	writeMarkdownRow(&sb, header)
	writeMarkdownDivider(&sb, len(header))

	for _, object := range objects {
		row := []string{object.ID}
		for _, column := range columns {
			row = append(row, formatCell(object.Property(column)))
		}
		writeMarkdownRow(&sb, row)
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatObject(object *hubspot.Object) (string, error) {
	if object == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(object.ID)))
	writeMarkdownRow(&sb, []string{"Property", "Value"})
	writeMarkdownDivider(&sb, 2)
	for _, key := range sortedKeys(object.Properties) {
		writeMarkdownRow(&sb, []string{key, object.Properties[key]})
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatStatus(status *Status) (string, error) {
	if status == nil {
		return "", nil
	}

	stats := status.Limiter
	var sb strings.Builder
	writeMarkdownRow(&sb, []string{"Tier", "Available", "Capacity", "Used"})
	writeMarkdownDivider(&sb, 4)
	writeMarkdownRow(&sb, []string{"burst", fmt.Sprintf("%.1f", stats.BurstTokensAvailable), fmt.Sprint(stats.BurstCapacity), percent(stats.BurstUtilization)})
	writeMarkdownRow(&sb, []string{"daily", fmt.Sprintf("%.1f", stats.DailyTokensAvailable), fmt.Sprint(stats.DailyCapacity), percent(stats.DailyUtilization)})
	if p := status.Provider; p != nil && p.Present && p.Daily > 0 {
		writeMarkdownRow(&sb, []string{"hubspot daily", fmt.Sprint(p.DailyRemaining), fmt.Sprint(p.Daily), usedPercent(p.DailyRemaining, p.Daily)})
	}
	sb.WriteString(fmt.Sprintf("\n**Requests**: %d total, %d in the last minute\n", stats.TotalRequests, stats.RequestsLastMinute))
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatOwners(owners []hubspot.Owner) (string, error) {
	var sb strings.Builder
	writeMarkdownRow(&sb, []string{"ID", "Email", "Name"})
	writeMarkdownDivider(&sb, 3)
	for _, owner := range owners {
		writeMarkdownRow(&sb, []string{owner.ID, owner.Email, strings.TrimSpace(owner.FirstName + " " + owner.LastName)})
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatPipelines(pipelines []hubspot.Pipeline) (string, error) {
	var sb strings.Builder
	for _, pipeline := range pipelines {
		sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", escapeMarkdownCell(pipeline.Label), escapeMarkdownCell(pipeline.ID)))
		for _, stage := range pipeline.Stages {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", stage.ID, stage.Label))
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func writeMarkdownRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, cell := range cells {
		sb.WriteString(" " + escapeMarkdownCell(cell) + " |")
	}
	sb.WriteString("\n")
}

func writeMarkdownDivider(sb *strings.Builder, columns int) {
	sb.WriteString("|" + strings.Repeat("---|", columns) + "\n")
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
