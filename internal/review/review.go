// Package review summarizes uncommitted changes: it collects the git
// diff of the workspace and asks the model for a short critique.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shellm/internal/prompts"
	"shellm/internal/sandbox"
)

// ErrNoChanges is returned when the working tree is clean.
var ErrNoChanges = errors.New("no uncommitted changes to review")

// maxDiffBytes keeps the diff within what a local model handles.
const maxDiffBytes = 48 * 1024

// Completer is the single model call the review needs.
type Completer interface {
	Complete(ctx context.Context, prompt, taskContext string) (string, error)
}

// Reviewer produces reviews of the workspace's pending changes.
type Reviewer struct {
	runner    sandbox.Runner
	completer Completer
	workDir   string
}

// New creates a reviewer for the given directory.
func New(runner sandbox.Runner, completer Completer, workDir string) *Reviewer {
	return &Reviewer{runner: runner, completer: completer, workDir: workDir}
}

// Review collects the diff and returns the model's critique.
func (r *Reviewer) Review(ctx context.Context) (string, error) {
	diff, err := r.collectDiff(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(diff) == "" {
		return "", ErrNoChanges
	}
	if len(diff) > maxDiffBytes {
		diff = diff[:maxDiffBytes] + "\n[diff truncated]"
	}

	return r.completer.Complete(ctx, prompts.Review(diff), "")
}

// collectDiff runs git diff for tracked changes plus a name-only list
// of untracked files.
func (r *Reviewer) collectDiff(ctx context.Context) (string, error) {
	res, err := r.runner.Run(ctx, r.workDir, "git diff HEAD", 30*time.Second)
	if err != nil && res.Code != 0 {
		return "", fmt.Errorf("git diff failed: %s", strings.TrimSpace(res.Stderr))
	}
	diff := res.Stdout

	untracked, err := r.runner.Run(ctx, r.workDir, "git ls-files --others --exclude-standard", 30*time.Second)
	if err == nil && strings.TrimSpace(untracked.Stdout) != "" {
		diff += "\nUntracked files:\n" + untracked.Stdout
	}

	return diff, nil
}
