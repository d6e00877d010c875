package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shellm/internal/sandbox"
)

// fakeRunner maps commands to scripted results.
type fakeRunner struct {
	results map[string]sandbox.Result
}

func (f *fakeRunner) Run(_ context.Context, _, command string, _ time.Duration) (sandbox.Result, error) {
	if res, ok := f.results[command]; ok {
		return res, nil
	}
	return sandbox.Result{Code: 1, Stderr: "unknown command"}, errors.New("exit status 1")
}

type fakeCompleter struct {
	lastPrompt string
	reply      string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, _ string) (string, error) {
	f.lastPrompt = prompt
	return f.reply, nil
}

func TestReviewWithChanges(t *testing.T) {
	runner := &fakeRunner{results: map[string]sandbox.Result{
		"git diff HEAD": {Stdout: "diff --git a/sum.py b/sum.py\n+print(2)\n"},
		"git ls-files --others --exclude-standard": {Stdout: ""},
	}}
	completer := &fakeCompleter{reply: "Looks fine, but add a test."}
	r := New(runner, completer, "/tmp/repo")

	got, err := r.Review(context.Background())
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if got != "Looks fine, but add a test." {
		t.Errorf("Review() = %q", got)
	}
	if !strings.Contains(completer.lastPrompt, "diff --git a/sum.py") {
		t.Errorf("diff missing from prompt: %q", completer.lastPrompt)
	}
}

func TestReviewCleanTree(t *testing.T) {
	runner := &fakeRunner{results: map[string]sandbox.Result{
		"git diff HEAD": {Stdout: ""},
		"git ls-files --others --exclude-standard": {Stdout: ""},
	}}
	r := New(runner, &fakeCompleter{}, "/tmp/repo")

	_, err := r.Review(context.Background())
	if !errors.Is(err, ErrNoChanges) {
		t.Errorf("Review() error = %v, want ErrNoChanges", err)
	}
}

func TestReviewIncludesUntracked(t *testing.T) {
	runner := &fakeRunner{results: map[string]sandbox.Result{
		"git diff HEAD": {Stdout: ""},
		"git ls-files --others --exclude-standard": {Stdout: "new_helper.py\n"},
	}}
	completer := &fakeCompleter{reply: "ok"}
	r := New(runner, completer, "/tmp/repo")

	if _, err := r.Review(context.Background()); err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if !strings.Contains(completer.lastPrompt, "new_helper.py") {
		t.Errorf("untracked file missing from prompt: %q", completer.lastPrompt)
	}
}

func TestReviewGitFailure(t *testing.T) {
	runner := &fakeRunner{results: map[string]sandbox.Result{}}
	r := New(runner, &fakeCompleter{}, "/tmp/repo")

	if _, err := r.Review(context.Background()); err == nil {
		t.Error("Review() error = nil, want failure when git is unusable")
	}
}
