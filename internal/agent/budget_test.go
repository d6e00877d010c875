package agent

import (
	"errors"
	"testing"
)

func TestBudgetClamping(t *testing.T) {
	tests := []struct {
		name    string
		ceiling int
		want    int
	}{
		{"zero selects default", 0, DefaultCallLimit},
		{"negative selects default", -5, DefaultCallLimit},
		{"in range kept", 7, 7},
		{"one is valid", 1, 1},
		{"above max clamped", 250, MaxCallLimit},
		{"max kept", MaxCallLimit, MaxCallLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBudget(tt.ceiling)
			if b.Ceiling() != tt.want {
				t.Errorf("Ceiling() = %d, want %d", b.Ceiling(), tt.want)
			}
		})
	}
}

func TestBudgetReserve(t *testing.T) {
	b := NewBudget(2)

	if err := b.Reserve(); err != nil {
		t.Fatalf("first Reserve() = %v, want nil", err)
	}
	if err := b.Reserve(); err != nil {
		t.Fatalf("second Reserve() = %v, want nil", err)
	}
	if b.Consumed() != 2 {
		t.Errorf("Consumed() = %d, want 2", b.Consumed())
	}

	err := b.Reserve()
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("third Reserve() = %v, want ErrBudgetExceeded", err)
	}
	// A denied reservation must not count as consumption.
	if b.Consumed() != 2 {
		t.Errorf("Consumed() after denial = %d, want 2", b.Consumed())
	}
}

func TestBudgetDenialIsSticky(t *testing.T) {
	b := NewBudget(1)
	if err := b.Reserve(); err != nil {
		t.Fatalf("Reserve() = %v, want nil", err)
	}
	for i := 0; i < 3; i++ {
		if err := b.Reserve(); !errors.Is(err, ErrBudgetExceeded) {
			t.Fatalf("Reserve() after exhaustion = %v, want ErrBudgetExceeded", err)
		}
	}
	if b.Consumed() != 1 || b.Ceiling() != 1 {
		t.Errorf("Consumed/Ceiling = %d/%d, want 1/1", b.Consumed(), b.Ceiling())
	}
}
