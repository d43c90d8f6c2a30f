package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/payroll/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Millisecond)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Millisecond)
		}
	}
}

func TestExponentialWithJitter_Ceiling(t *testing.T) {
	e := backoff.NewExponentialWithJitter(10*time.Millisecond, 50*time.Millisecond)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 50 * time.Millisecond}, // capped
		{20, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := e.Ceiling(tt.attempt); got != tt.want {
			t.Errorf("Ceiling(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialWithJitter_StaysInRange(t *testing.T) {
	e := backoff.NewExponentialWithJitter(10*time.Millisecond, 50*time.Millisecond)
	for attempt := 1; attempt <= 6; attempt++ {
		for i := 0; i < 100; i++ {
			d := e.Delay(attempt)
			if d < 0 || d > e.Ceiling(attempt) {
				t.Fatalf("Delay(%d) = %v, outside [0, %v]", attempt, d, e.Ceiling(attempt))
			}
		}
	}
}

func TestWait(t *testing.T) {
	if err := backoff.Wait(context.Background(), backoff.NewConstant(time.Millisecond), 1); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := backoff.Wait(ctx, backoff.NewConstant(time.Hour), 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestDefaultStrategy(t *testing.T) {
	s := backoff.DefaultStrategy()
	if d := s.Delay(1); d > 5*time.Millisecond {
		t.Errorf("first delay %v exceeds 5ms", d)
	}
}
