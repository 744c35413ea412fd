package delivery

import "time"

// Stop reasons recorded on a Summary.
const (
	StopCompleted   = "completed"
	StopFatal       = "fatal"
	StopInterrupted = "interrupted"
)

// Summary counts the outcomes of one run.
type Summary struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Endpoint     string        `json:"endpoint" yaml:"endpoint"`
	Planned      int           `json:"planned" yaml:"planned"`
	Total        int           `json:"total" yaml:"total"`
	Delivered    int           `json:"delivered" yaml:"delivered"`
	Failed       int           `json:"failed" yaml:"failed"`
	Rejected     int           `json:"rejected" yaml:"rejected"`
	Exhausted    int           `json:"exhausted" yaml:"exhausted"`
	DecodeErrors int           `json:"decode_errors" yaml:"decode_errors"`
	Attempts     int           `json:"attempts" yaml:"attempts"`
	FinalDelay   time.Duration `json:"final_delay" yaml:"final_delay"`
	StopReason   string        `json:"stop_reason" yaml:"stop_reason"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// SuccessRate is the delivered share of completed sends, in percent.
func (s *Summary) SuccessRate() float64 {
	if s == nil || s.Total == 0 {
		return 0
	}
	return float64(s.Delivered) / float64(s.Total) * 100
}
