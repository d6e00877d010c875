package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedCompleter returns canned responses/errors in order.
type scriptedCompleter struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var reply string
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return reply, err
}

func TestInvokeFirstAttemptSucceeds(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"hello"}}
	a := NewAdapter(c, 0)

	got, err := a.Invoke(context.Background(), StageExecution, "p", "")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Invoke() = %q, want hello", got)
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}
}

func TestInvokeRetriesOnceThenSucceeds(t *testing.T) {
	c := &scriptedCompleter{
		replies: []string{"", "recovered"},
		errs:    []error{errors.New("connection refused"), nil},
	}
	a := NewAdapter(c, 0)

	var retries int
	a.SetRetryHook(func(stage Stage, attempt int, err error) {
		retries++
		var me *ModelError
		if !errors.As(err, &me) {
			t.Errorf("retry hook error type = %T, want *ModelError", err)
		} else if me.Kind != ModelUnreachable {
			t.Errorf("retry kind = %s, want %s", me.Kind, ModelUnreachable)
		}
	})

	got, err := a.Invoke(context.Background(), StageIntent, "p", "")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != "recovered" {
		t.Errorf("Invoke() = %q", got)
	}
	if c.calls != 2 || retries != 1 {
		t.Errorf("calls = %d retries = %d, want 2/1", c.calls, retries)
	}
}

func TestInvokeFailsAfterSecondError(t *testing.T) {
	c := &scriptedCompleter{
		errs: []error{errors.New("timeout awaiting response"), errors.New("timeout awaiting response")},
	}
	a := NewAdapter(c, 0)

	_, err := a.Invoke(context.Background(), StageValidation, "p", "")
	if err == nil {
		t.Fatal("Invoke() = nil, want error after exhausted retry")
	}
	if c.calls != 2 {
		t.Errorf("calls = %d, want exactly 2 (one retry)", c.calls)
	}

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T, want *StageError", err)
	}
	if se.Stage != StageValidation {
		t.Errorf("Stage = %s, want %s", se.Stage, StageValidation)
	}
	var me *ModelError
	if !errors.As(err, &me) || me.Kind != ModelTimeout {
		t.Errorf("wrapped error = %v, want ModelTimeout", err)
	}
}

func TestInvokeCheckedRetriesRejectedReply(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"I think you want a file", `{"task_type": "create"}`}}
	a := NewAdapter(c, 0)

	var retries int
	a.SetRetryHook(func(stage Stage, attempt int, err error) {
		retries++
		var me *ModelError
		if !errors.As(err, &me) || me.Kind != ModelMalformed {
			t.Errorf("retry error = %v, want ModelMalformed", err)
		}
	})

	check := func(text string) error {
		if !strings.HasPrefix(text, "{") {
			return errors.New("no JSON object in response")
		}
		return nil
	}

	got, err := a.InvokeChecked(context.Background(), StageIntent, "p", "", check)
	if err != nil {
		t.Fatalf("InvokeChecked() error = %v", err)
	}
	if got != `{"task_type": "create"}` {
		t.Errorf("InvokeChecked() = %q", got)
	}
	if c.calls != 2 || retries != 1 {
		t.Errorf("calls = %d retries = %d, want 2/1", c.calls, retries)
	}
}

func TestInvokeCheckedFailsAfterSecondRejection(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"garbage", "more garbage"}}
	a := NewAdapter(c, 0)

	_, err := a.InvokeChecked(context.Background(), StageIntent, "p", "", func(string) error {
		return errors.New("no JSON object in response")
	})
	if err == nil {
		t.Fatal("InvokeChecked() = nil, want error after exhausted retry")
	}
	if c.calls != 2 {
		t.Errorf("calls = %d, want exactly 2 (one retry)", c.calls)
	}
	var me *ModelError
	if !errors.As(err, &me) || me.Kind != ModelMalformed {
		t.Errorf("wrapped error = %v, want ModelMalformed", err)
	}
}

func TestInvokeEmptyResponseIsMalformed(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"   ", "\n"}}
	a := NewAdapter(c, 0)

	_, err := a.Invoke(context.Background(), StageExecution, "p", "")
	if err == nil {
		t.Fatal("Invoke() = nil, want error for blank responses")
	}
	var me *ModelError
	if !errors.As(err, &me) || me.Kind != ModelMalformed {
		t.Errorf("error = %v, want ModelMalformed", err)
	}
}

func TestWrapModelErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ModelErrorKind
	}{
		{"deadline", context.DeadlineExceeded, ModelTimeout},
		{"timeout text", errors.New("request timeout"), ModelTimeout},
		{"refused", errors.New("dial tcp: connection refused"), ModelUnreachable},
		{"reset", errors.New("connection reset by peer"), ModelUnreachable},
		{"no host", errors.New("no such host"), ModelUnreachable},
		{"eof", errors.New("unexpected EOF"), ModelUnreachable},
		{"other", errors.New("invalid JSON payload"), ModelMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapModelError(tt.err)
			if got.Kind != tt.want {
				t.Errorf("WrapModelError(%v).Kind = %s, want %s", tt.err, got.Kind, tt.want)
			}
		})
	}
}
