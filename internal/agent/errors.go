// This file contains the error taxonomy and classification used by the
// pipeline: model errors (recoverable per stage) and fatal failure
// reasons (terminal for the task).
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ModelErrorKind classifies a failed model call.
type ModelErrorKind string

const (
	ModelUnreachable ModelErrorKind = "unreachable"
	ModelTimeout     ModelErrorKind = "timeout"
	ModelMalformed   ModelErrorKind = "malformed_response"
)

// ModelError wraps a failure from the model endpoint. Stages treat it as
// recoverable: one retry with the same prompt, then it surfaces as a
// stage failure.
type ModelError struct {
	Kind ModelErrorKind
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("model error (%s)", e.Kind)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError with the given kind.
func NewModelError(kind ModelErrorKind, err error) *ModelError {
	return &ModelError{Kind: kind, Err: err}
}

// WrapModelError classifies an arbitrary completion error into a
// ModelError. Errors that already carry a kind pass through unchanged.
func WrapModelError(err error) *ModelError {
	if err == nil {
		return nil
	}

	var me *ModelError
	if errors.As(err, &me) {
		return me
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ModelError{Kind: ModelTimeout, Err: err}
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return &ModelError{Kind: ModelTimeout, Err: err}
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "eof") {
		return &ModelError{Kind: ModelUnreachable, Err: err}
	}

	return &ModelError{Kind: ModelMalformed, Err: err}
}

// TaskStatus is the terminal state of a task.
type TaskStatus string

const (
	StatusDone   TaskStatus = "done"
	StatusFailed TaskStatus = "failed"
	// StatusDeclined and StatusAborted are terminal but not errors: the
	// user said no, or stopped the task between stages.
	StatusDeclined TaskStatus = "declined"
	StatusAborted  TaskStatus = "aborted"
)

// FailReason names the first unrecoverable error of a failed task.
type FailReason string

const (
	ReasonBudgetExceeded  FailReason = "budget_exceeded"
	ReasonIntentUnclear   FailReason = "intent_unclear"
	ReasonContextMissing  FailReason = "context_missing"
	ReasonModelFailure    FailReason = "model_failure"
	ReasonExecutionFailed FailReason = "execution_failed"
	ReasonWriteFailed     FailReason = "write_failed"
)

// ExecutionError reports a command that ran and failed. It does not
// abort the pipeline unless the command was the task's sole deliverable.
type ExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	excerpt := e.Stderr
	if len(excerpt) > 400 {
		excerpt = excerpt[:400] + "..."
	}
	return fmt.Sprintf("command failed (exit %d): %s", e.ExitCode, excerpt)
}

// StageError wraps an error with the stage at which it occurred.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("[stage=%s] %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
