// Package delivery runs a sequence of logical sends against one endpoint,
// pacing them with the adaptive delay controller and counting outcomes.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pacerhq/pacer/internal/errors"
	"github.com/pacerhq/pacer/internal/metrics"
	"github.com/pacerhq/pacer/internal/retry"
	"github.com/pacerhq/pacer/internal/transport"
)

// DefaultAdjustEvery is how many sends make up one delay observation window.
const DefaultAdjustEvery = 5

// Transport turns a payload into something the retry policy can call.
type Transport interface {
	Request(payload []byte) retry.Caller
}

// Runner delivers payloads one at a time.
type Runner struct {
	Policy      *retry.Policy
	Transport   Transport
	Logger      *logging.Logger
	Endpoint    string
	AdjustEvery int
	Clock       func() time.Time
}

// Run sends every payload in order. It stops early on a 404 from the
// endpoint, returning a FATAL_TARGET envelope, or when ctx is done,
// returning ctx.Err(). The summary is always returned.
func (r *Runner) Run(ctx context.Context, payloads []Payload) (*Summary, error) {
	if r == nil || r.Policy == nil || r.Transport == nil {
		return nil, errors.New("delivery runner is not configured")
	}

	startedAt := r.now()
	summary := &Summary{
		RunID:      uuid.New().String(),
		Endpoint:   r.Endpoint,
		Planned:    len(payloads),
		StopReason: StopCompleted,
		StartedAt:  startedAt,
	}
	controller := r.Policy.Controller()
	defer func() {
		summary.FinalDelay = controller.Current()
		summary.Duration = r.now().Sub(startedAt)
	}()

	adjustEvery := r.AdjustEvery
	if adjustEvery <= 0 {
		adjustEvery = DefaultAdjustEvery
	}

	for i, payload := range payloads {
		if err := ctx.Err(); err != nil {
			summary.StopReason = StopInterrupted
			return summary, err
		}

		result, err := r.Policy.Send(ctx, r.Transport.Request(payload.Body))
		if result != nil {
			summary.Attempts += result.Attempts
		}
		if err != nil {
			summary.StopReason = StopInterrupted
			return summary, err
		}

		summary.Total++
		progress := []zap.Field{
			zap.Int("send", i+1),
			zap.Int("of", len(payloads)),
			zap.Int("line", payload.Line),
			zap.Int("attempts", result.Attempts),
		}

		switch result.Outcome {
		case retry.OutcomeDelivered:
			receipt, decodeErr := transport.DecodeReceipt(result.Response.Body)
			if decodeErr != nil {
				summary.Failed++
				summary.DecodeErrors++
				metrics.RecordSend("decode_error")
				r.logError("Delivered but response could not be decoded", append(progress, zap.Error(decodeErr))...)
				break
			}
			summary.Delivered++
			metrics.RecordSend(string(result.Outcome))
			r.logInfo("Delivered", append(progress,
				zap.Int("status", result.Response.StatusCode),
				zap.String("receipt_id", receipt.ID),
				zap.String("region", receipt.Region))...)

		case retry.OutcomeRejected:
			summary.Failed++
			summary.Rejected++
			metrics.RecordSend(string(result.Outcome))
			r.logError("Rejected by endpoint", append(progress,
				zap.Int("status", result.Response.StatusCode),
				zap.String("reason", result.Response.Status))...)

		case retry.OutcomeExhausted:
			summary.Failed++
			summary.Exhausted++
			metrics.RecordSend(string(result.Outcome))
			r.logError("No result after all attempts", progress...)

		case retry.OutcomeFatal:
			summary.Failed++
			summary.StopReason = StopFatal
			metrics.RecordSend(string(result.Outcome))
			r.logError("Endpoint not found; stopping run", append(progress, zap.String("endpoint", r.Endpoint))...)
			return summary, apperrors.NewFatalTargetError(summary.RunID, r.Endpoint)
		}

		if (i+1)%adjustEvery == 0 {
			r.adjust(controller.Current(), controller.NextDelay(), summary)
			controller.ResetCounters()
		}

		if i < len(payloads)-1 {
			slept, err := controller.Wait(ctx)
			metrics.RecordWait("pacing", slept)
			metrics.SetCurrentDelay(controller.Current())
			if err != nil {
				summary.StopReason = StopInterrupted
				return summary, err
			}
			r.logDebug("Waited before next send", zap.Duration("wait", slept))
		}
	}

	return summary, nil
}

func (r *Runner) adjust(before, after time.Duration, summary *Summary) {
	if before == after {
		return
	}
	r.logInfo("Adjusted delay",
		zap.Duration("from", before),
		zap.Duration("to", after),
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", summary.Failed))
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *Runner) logInfo(msg string, fields ...zap.Field) {
	if r.Logger != nil {
		r.Logger.Info(msg, fields...)
	}
}

func (r *Runner) logError(msg string, fields ...zap.Field) {
	if r.Logger != nil {
		r.Logger.Error(msg, fields...)
	}
}

func (r *Runner) logDebug(msg string, fields ...zap.Field) {
	if r.Logger != nil {
		r.Logger.Debug(msg, fields...)
	}
}
