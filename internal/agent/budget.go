// This file contains the call budget guard. Every pipeline stage must
// reserve a call before touching the model; once the ceiling is reached
// the task terminates.
package agent

import "errors"

const (
	// DefaultCallLimit is the ceiling used when none is configured.
	DefaultCallLimit = 20
	// MaxCallLimit is the hard upper bound on any configured ceiling.
	MaxCallLimit = 100
)

// ErrBudgetExceeded is returned by Reserve once the ceiling is reached.
var ErrBudgetExceeded = errors.New("call budget exceeded")

// Budget tracks model calls consumed against a fixed ceiling. It is
// owned by a single task and is not safe for concurrent use; the
// pipeline is sequential by design.
type Budget struct {
	consumed int
	ceiling  int
}

// NewBudget creates a budget with the given ceiling, clamped to
// [1, MaxCallLimit]. A non-positive ceiling selects the default.
func NewBudget(ceiling int) *Budget {
	if ceiling <= 0 {
		ceiling = DefaultCallLimit
	}
	if ceiling > MaxCallLimit {
		ceiling = MaxCallLimit
	}
	return &Budget{ceiling: ceiling}
}

// Reserve claims one model call. It increments the consumed counter only
// when the call is allowed.
func (b *Budget) Reserve() error {
	if b.consumed >= b.ceiling {
		return ErrBudgetExceeded
	}
	b.consumed++
	return nil
}

// Consumed returns the number of calls reserved so far.
func (b *Budget) Consumed() int { return b.consumed }

// Ceiling returns the fixed call ceiling for this task.
func (b *Budget) Ceiling() int { return b.ceiling }
