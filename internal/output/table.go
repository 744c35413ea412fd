package output

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pacerhq/pacer/internal/delivery"
)

// TableFormatter renders a summary as an ASCII table.
type TableFormatter struct{}

// FormatSummary renders a run summary as a table.
func (f *TableFormatter) FormatSummary(summary *delivery.Summary) (string, error) {
	if summary == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})
	for _, row := range summaryRows(summary) {
		t.AppendRow(table.Row{row[0], row[1]})
	}
	t.AppendFooter(table.Row{"Success rate", successRate(summary)})

	return t.Render(), nil
}
