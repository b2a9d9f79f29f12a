// Package saga runs a cross-store write as an ordered list of steps, each
// with a compensating action. When a step fails the completed steps are
// undone in reverse order; an undo that fails is handed to a
// RepairRecorder so it is retried in the background.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/StormyOasis/linsta-sub001/internal/metrics"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
)

// Repair describes a compensation to retry later. Kind selects the handler,
// Target is the key of the thing to fix.
type Repair struct {
	Kind    string
	Target  string
	Payload any
}

// RepairRecorder persists repairs. The outbox store implements it.
type RepairRecorder interface {
	AddRepair(ctx context.Context, r Repair) error
}

// Observer is notified of saga outcomes.
type Observer interface {
	SagaFinished(saga, outcome string)
	UndoFailed(saga, step string)
}

// Step is one unit of a saga. Undo and Repair are optional; a step without
// Undo needs no compensation. Repair, when set, describes what to retry if
// Undo fails.
type Step struct {
	Name   string
	Do     func(ctx context.Context) error
	Undo   func(ctx context.Context) error
	Repair func() Repair
}

// Saga executes steps as they are added and remembers what to undo.
// A Saga is used by one goroutine.
type Saga struct {
	name     string
	recorder RepairRecorder
	observer Observer
	done     []Step
	finished bool
}

// Coordinator creates sagas sharing a recorder and observer.
type Coordinator struct {
	recorder RepairRecorder
	observer Observer
}

func NewCoordinator(recorder RepairRecorder, observer Observer) *Coordinator {
	return &Coordinator{recorder: recorder, observer: observer}
}

// Start begins a new saga.
func (c *Coordinator) Start(name string) *Saga {
	return &Saga{name: name, recorder: c.recorder, observer: c.observer}
}

// Run executes step.Do. On failure every completed step is compensated and
// the step error is returned.
func (s *Saga) Run(ctx context.Context, step Step) error {
	if s.finished {
		return fmt.Errorf("saga %s: already finished", s.name)
	}
	if err := step.Do(ctx); err != nil {
		s.Abort(ctx)
		return fmt.Errorf("%s: %w", step.Name, err)
	}
	s.done = append(s.done, step)
	return nil
}

// Complete marks the saga as committed. Later Abort calls are no-ops.
func (s *Saga) Complete() {
	if s.finished {
		return
	}
	s.finished = true
	s.observe(metrics.OutcomeCommitted)
}

// Abort compensates the completed steps in reverse order. It is safe to
// defer Abort right after Start: once the saga completed it does nothing.
func (s *Saga) Abort(ctx context.Context) {
	if s.finished {
		return
	}
	s.finished = true

	// Compensations must run even if the request context is gone.
	ctx = context.WithoutCancel(ctx)
	l := log.Ctx(ctx).With().Str(log.FieldSaga, s.name).Logger()

	outcome := metrics.OutcomeCompensated
	for i := len(s.done) - 1; i >= 0; i-- {
		step := s.done[i]
		if step.Undo == nil {
			continue
		}
		err := step.Undo(ctx)
		if err == nil {
			continue
		}

		l.Error().Err(err).Str(log.FieldStep, step.Name).Msg("saga: compensation failed")
		if s.observer != nil {
			s.observer.UndoFailed(s.name, step.Name)
		}
		if step.Repair == nil || s.recorder == nil {
			continue
		}
		repair := step.Repair()
		if rerr := s.recorder.AddRepair(ctx, repair); rerr != nil {
			l.Error().Err(errors.Join(err, rerr)).
				Str(log.FieldStep, step.Name).
				Str(log.FieldTaskKind, repair.Kind).
				Str(log.FieldTargetID, repair.Target).
				Msg("saga: failed to queue repair")
			continue
		}
		outcome = metrics.OutcomeRepairQueued
	}
	s.done = nil
	s.observe(outcome)
}

func (s *Saga) observe(outcome string) {
	if s.observer != nil {
		s.observer.SagaFinished(s.name, outcome)
	}
}
