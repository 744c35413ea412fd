package output

import (
	"gopkg.in/yaml.v3"

	"github.com/pacerhq/pacer/internal/delivery"
)

// YAMLFormatter renders a summary as YAML.
type YAMLFormatter struct{}

type yamlSummary struct {
	Summary     delivery.Summary `yaml:",inline"`
	SuccessRate float64          `yaml:"success_rate"`
}

// FormatSummary renders a run summary as YAML.
func (f *YAMLFormatter) FormatSummary(summary *delivery.Summary) (string, error) {
	if summary == nil {
		return "", nil
	}

	data, err := yaml.Marshal(yamlSummary{Summary: *summary, SuccessRate: summary.SuccessRate()})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
