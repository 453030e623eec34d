// Package progress tracks coarse run milestones and pushes them to reporters.
package progress

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// State is a snapshot pushed to reporters after each milestone
type State struct {
	PercentComplete               float64   `json:"percent_complete"`
	CurrentStep                   string    `json:"current_step"`
	StepsCompleted                int       `json:"steps_completed"`
	TotalSteps                    int       `json:"total_steps"`
	EstimatedTimeRemainingSeconds float64   `json:"estimated_time_remaining_seconds"`
	StartedAt                     time.Time `json:"started_at"`
	ProcessingSpeed               float64   `json:"processing_speed"` // steps per second
}

// Reporter receives progress snapshots. Errors are advisory and never fail a run.
type Reporter interface {
	Report(ctx context.Context, s State) error
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(ctx context.Context, s State) error

func (f ReporterFunc) Report(ctx context.Context, s State) error {
	return f(ctx, s)
}

// LogReporter writes each snapshot as a structured log line.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a reporter that logs at Info
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(_ context.Context, s State) error {
	r.logger.Info("progress",
		zap.String("step", s.CurrentStep),
		zap.Int("completed", s.StepsCompleted),
		zap.Int("total", s.TotalSteps),
		zap.Float64("percent", s.PercentComplete),
		zap.Float64("eta_seconds", s.EstimatedTimeRemainingSeconds),
	)
	return nil
}

// Multi fans a snapshot out to every reporter and joins their errors.
func Multi(reporters ...Reporter) Reporter {
	return ReporterFunc(func(ctx context.Context, s State) error {
		var errs []error
		for _, r := range reporters {
			if r == nil {
				continue
			}
			if err := r.Report(ctx, s); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
