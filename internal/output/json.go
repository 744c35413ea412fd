package output

import (
	"encoding/json"

	"github.com/pacerhq/pacer/internal/delivery"
)

// JSONFormatter renders a summary as JSON.
type JSONFormatter struct {
	Indent bool
}

type jsonSummary struct {
	*delivery.Summary
	SuccessRate float64 `json:"success_rate"`
}

// FormatSummary renders a run summary as JSON.
func (f *JSONFormatter) FormatSummary(summary *delivery.Summary) (string, error) {
	if summary == nil {
		return "", nil
	}

	payload := jsonSummary{Summary: summary, SuccessRate: summary.SuccessRate()}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
