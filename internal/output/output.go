package output

import (
	"fmt"
	"strings"

	"github.com/pacerhq/pacer/internal/delivery"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formatter renders a run summary.
type Formatter interface {
	FormatSummary(summary *delivery.Summary) (string, error)
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

// FormatSummary renders summary using the requested format.
func FormatSummary(format Format, summary *delivery.Summary) (string, error) {
	return NewFormatter(format).FormatSummary(summary)
}

func summaryRows(summary *delivery.Summary) [][2]string {
	return [][2]string{
		{"Run", summary.RunID},
		{"Endpoint", summary.Endpoint},
		{"Total", fmt.Sprintf("%d of %d", summary.Total, summary.Planned)},
		{"Delivered", fmt.Sprintf("%d", summary.Delivered)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Rejected", fmt.Sprintf("%d", summary.Rejected)},
		{"No result", fmt.Sprintf("%d", summary.Exhausted)},
		{"Undecodable", fmt.Sprintf("%d", summary.DecodeErrors)},
		{"Attempts", fmt.Sprintf("%d", summary.Attempts)},
		{"Final delay", summary.FinalDelay.String()},
		{"Stopped", summary.StopReason},
		{"Duration", summary.Duration.Round(1e6).String()},
	}
}

func successRate(summary *delivery.Summary) string {
	return fmt.Sprintf("%.1f%%", summary.SuccessRate())
}
