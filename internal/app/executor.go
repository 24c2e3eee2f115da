package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

// Stage names one step of a bulk operation. Bulk operations run their
// stages in order over shared state and write to the store only in
// StageCommit, so a failure in an earlier stage leaves the records untouched.
type Stage string

const (
	StageValidate Stage = "validate"
	StageDecode   Stage = "decode"
	StageCommit   Stage = "commit"
)

// StageError reports the stage a bulk operation stopped at.
type StageError struct {
	Op    string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage err stopped at, if it came from a bulk operation.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}

	return "", false
}

// Step is one stage of a bulk operation over state S.
type Step[S any] struct {
	Stage Stage
	Run   func(ctx context.Context, state *S) error
}

// Executor runs bulk operations step by step with a logger scoped to the
// operation name.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an Executor; a nil logger falls back to slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Run executes steps in order against state and stops at the first failure.
// The request-scoped logger from ctx wins over the executor's own.
func Run[S any](ctx context.Context, exec *Executor, op string, state *S, steps ...Step[S]) error {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = exec.logger
	}

	logger = logger.With(slog.String("operation", op))
	start := time.Now()

	for _, step := range steps {
		if err := step.Run(ctx, state); err != nil {
			logger.WarnContext(ctx, "operation stopped",
				slog.String("stage", string(step.Stage)),
				slog.Any("error", err))

			return &StageError{Op: op, Stage: step.Stage, Err: err}
		}

		logger.Log(ctx, logging.LevelTrace, "stage done", slog.String("stage", string(step.Stage)))
	}

	logger.InfoContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return nil
}
