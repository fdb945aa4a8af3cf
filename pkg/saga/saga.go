// Package saga runs multi-step writes that span stores without a shared transaction.
package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step is one forward action with an optional compensating action.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// CompensationHook observes every compensation attempt.
type CompensationHook func(saga, step string, err error)

// StepError reports which step failed.
type StepError struct {
	Saga string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga is an ordered list of steps.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
	hook   CompensationHook
}

// New starts an empty saga.
func New(name string, logger *zap.Logger) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saga{name: name, logger: logger}
}

// Then appends a step.
func (s *Saga) Then(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// OnCompensate registers a hook called after each compensation.
func (s *Saga) OnCompensate(hook CompensationHook) *Saga {
	s.hook = hook
	return s
}

// Run executes steps in order. When a step fails, the steps that already
// completed are compensated in reverse order and the step's error is returned
// as a *StepError. Compensation failures are logged and do not replace it.
// Compensations run even if ctx was cancelled.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Do(ctx); err != nil {
			s.rollback(context.WithoutCancel(ctx), s.steps[:i])
			return &StepError{Saga: s.name, Step: step.Name, Err: err}
		}
	}
	return nil
}

func (s *Saga) rollback(ctx context.Context, done []Step) {
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		err := step.Compensate(ctx)
		if err != nil {
			s.logger.Warn("saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
		if s.hook != nil {
			s.hook(s.name, step.Name, err)
		}
	}
}
