// This file contains the model call adapter: a synchronous wrapper
// around the completer collaborator that applies a per-call timeout and
// a single retry with the same prompt.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"
)

const defaultCallTimeout = 2 * time.Minute

// Adapter mediates every model call made by the pipeline. The budget is
// consulted by the controller before Invoke; the internal retry belongs
// to the same reserved call.
type Adapter struct {
	completer Completer
	timeout   time.Duration
	onRetry   func(stage Stage, attempt int, err error)
}

// NewAdapter creates an adapter over the given completer. A non-positive
// timeout selects the default.
func NewAdapter(completer Completer, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Adapter{completer: completer, timeout: timeout}
}

// SetRetryHook installs an observer for retry attempts.
func (a *Adapter) SetRetryHook(fn func(stage Stage, attempt int, err error)) {
	a.onRetry = fn
}

// Invoke performs one model call for the given stage. On any model error
// it retries once with the same prompt, then propagates the error so the
// stage fails loudly rather than continuing silently.
func (a *Adapter) Invoke(ctx context.Context, stage Stage, prompt, taskContext string) (string, error) {
	return a.InvokeChecked(ctx, stage, prompt, taskContext, nil)
}

// InvokeChecked is Invoke with a reply check. A reply the check rejects
// is a malformed model response and goes through the same single retry
// as a transport failure; the check runs again on the retried reply.
func (a *Adapter) InvokeChecked(ctx context.Context, stage Stage, prompt, taskContext string, check func(string) error) (string, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 && a.onRetry != nil {
			a.onRetry(stage, attempt, lastErr)
		}

		select {
		case <-ctx.Done():
			return "", &StageError{Stage: stage, Err: ctx.Err()}
		default:
		}

		text, err := a.complete(ctx, prompt, taskContext)
		if err == nil && check != nil {
			if cerr := check(text); cerr != nil {
				err = NewModelError(ModelMalformed, cerr)
			}
		}
		if err == nil {
			return text, nil
		}
		lastErr = WrapModelError(err)
	}

	return "", &StageError{Stage: stage, Err: lastErr}
}

func (a *Adapter) complete(ctx context.Context, prompt, taskContext string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.completer.Complete(cctx, prompt, taskContext)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", NewModelError(ModelMalformed, errEmptyResponse)
	}
	return text, nil
}

var errEmptyResponse = errors.New("empty response from model")
