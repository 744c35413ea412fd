package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pacerhq/pacer/internal/delivery"
)

func sampleSummary() *delivery.Summary {
	return &delivery.Summary{
		RunID:      "run-1",
		Endpoint:   "https://hooks.example.com/in",
		Planned:    4,
		Total:      4,
		Delivered:  3,
		Failed:     1,
		Exhausted:  1,
		Attempts:   6,
		FinalDelay: 6 * time.Second,
		StopReason: delivery.StopCompleted,
		Duration:   12 * time.Second,
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("yml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatSummaryTable(t *testing.T) {
	rendered, err := FormatSummary(FormatTable, sampleSummary())
	require.NoError(t, err)
	require.Contains(t, rendered, "Delivered")
	require.Contains(t, rendered, "75.0%")
	require.Contains(t, rendered, "4 of 4")
}

func TestFormatSummaryJSON(t *testing.T) {
	rendered, err := FormatSummary(FormatJSON, sampleSummary())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "run-1", decoded["run_id"])
	require.Equal(t, float64(3), decoded["delivered"])
	require.Equal(t, 75.0, decoded["success_rate"])
}

func TestFormatSummaryYAML(t *testing.T) {
	rendered, err := FormatSummary(FormatYAML, sampleSummary())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "run-1", decoded["run_id"])
	require.Equal(t, 3, decoded["delivered"])
	require.Contains(t, rendered, "success_rate: 75")
}

func TestFormatSummaryMarkdown(t *testing.T) {
	rendered, err := FormatSummary(FormatMarkdown, sampleSummary())
	require.NoError(t, err)
	require.Contains(t, rendered, "| Delivered | 3 |")
	require.Contains(t, rendered, "**Success rate**: 75.0%")
}

func TestFormatSummaryNil(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatJSON, FormatYAML, FormatMarkdown} {
		rendered, err := FormatSummary(format, nil)
		require.NoError(t, err)
		require.Empty(t, rendered)
	}
}
