package progress

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Tracker owns the progress state of one run. It is not safe for concurrent use.
type Tracker struct {
	state    State
	reporter Reporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewTracker starts tracking a run of totalSteps milestones. A nil reporter is allowed.
func NewTracker(totalSteps int, reporter Reporter, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{reporter: reporter, logger: logger, now: time.Now}
	t.state = State{TotalSteps: totalSteps, StartedAt: t.now()}
	return t
}

// Step marks one milestone complete with the given label and notifies the reporter.
func (t *Tracker) Step(ctx context.Context, label string) {
	t.state.StepsCompleted = min(t.state.StepsCompleted+1, t.state.TotalSteps)
	t.state.CurrentStep = label
	t.refresh()
	t.emit(ctx)
}

// Complete jumps to 100% with the given label.
func (t *Tracker) Complete(ctx context.Context, label string) {
	t.state.StepsCompleted = t.state.TotalSteps
	t.state.CurrentStep = label
	t.refresh()
	t.emit(ctx)
}

// State returns the current snapshot
func (t *Tracker) State() State {
	return t.state
}

func (t *Tracker) refresh() {
	s := &t.state
	if s.TotalSteps > 0 {
		s.PercentComplete = float64(s.StepsCompleted) / float64(s.TotalSteps) * 100
	}

	elapsed := t.now().Sub(s.StartedAt).Seconds()
	if elapsed <= 0 || s.StepsCompleted == 0 {
		s.ProcessingSpeed = 0
		s.EstimatedTimeRemainingSeconds = 0
		return
	}
	s.ProcessingSpeed = float64(s.StepsCompleted) / elapsed
	s.EstimatedTimeRemainingSeconds = float64(s.TotalSteps-s.StepsCompleted) / s.ProcessingSpeed
}

func (t *Tracker) emit(ctx context.Context) {
	if t.reporter == nil {
		return
	}
	if err := t.reporter.Report(ctx, t.state); err != nil {
		t.logger.Warn("progress reporter failed",
			zap.String("step", t.state.CurrentStep),
			zap.Error(err),
		)
	}
}
