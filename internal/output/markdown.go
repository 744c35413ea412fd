package output

import (
	"fmt"
	"strings"

	"github.com/pacerhq/pacer/internal/delivery"
)

// MarkdownFormatter renders a summary as a markdown table.
type MarkdownFormatter struct{}

// FormatSummary renders a run summary as Markdown.
func (f *MarkdownFormatter) FormatSummary(summary *delivery.Summary) (string, error) {
	if summary == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Delivery summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	for _, row := range summaryRows(summary) {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeMarkdownCell(row[0]), escapeMarkdownCell(row[1])))
	}
	sb.WriteString(fmt.Sprintf("\n**Success rate**: %s\n", successRate(summary)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
