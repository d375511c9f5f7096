package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestScheduler(budget time.Duration) *Scheduler {
	return NewScheduler(5*time.Millisecond, 10*time.Millisecond, 40*time.Millisecond, budget, zap.NewNop())
}

func TestScheduler_FirstPollImmediate(t *testing.T) {
	s := newTestScheduler(0)

	calls := 0
	start := time.Now()
	err := s.Run(context.Background(), func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first poll not immediate: %v", elapsed)
	}
}

func TestScheduler_BackoffGrowsThenResets(t *testing.T) {
	s := newTestScheduler(0)

	var stamps []time.Time
	err := s.Run(context.Background(), func(context.Context) (bool, error) {
		stamps = append(stamps, time.Now())
		switch len(stamps) {
		case 1, 2:
			return false, errors.New("node unreachable")
		default:
			return true, nil
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stamps) != 3 {
		t.Fatalf("polls: got %d want 3", len(stamps))
	}

	// Base 10ms with ±25% jitter, doubling: the second gap must exceed the
	// first.
	gap1 := stamps[1].Sub(stamps[0])
	gap2 := stamps[2].Sub(stamps[1])
	if gap2 <= gap1 {
		t.Errorf("backoff did not grow: gap1=%v gap2=%v", gap1, gap2)
	}
}

func TestScheduler_RetryBudgetExhausted(t *testing.T) {
	s := newTestScheduler(30 * time.Millisecond)

	err := s.Run(context.Background(), func(context.Context) (bool, error) {
		return false, errors.New("node unreachable")
	})
	if err == nil {
		t.Fatal("expected retry budget error")
	}
	if !strings.Contains(err.Error(), "retry budget exhausted") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestScheduler_CancelDuringSleep(t *testing.T) {
	s := NewScheduler(time.Hour, time.Second, time.Minute, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context) (bool, error) {
			return false, nil // never done, parks in the hour-long sleep
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not unblock on cancellation")
	}
}

func TestScheduler_SuccessResetsBackoff(t *testing.T) {
	s := newTestScheduler(25 * time.Millisecond)

	// A success between failures resets the elapsed budget; with the reset
	// the third failure still gets a delay instead of exhausting.
	seq := []error{errors.New("down"), nil, errors.New("down"), nil}
	calls := 0
	err := s.Run(context.Background(), func(context.Context) (bool, error) {
		defer func() { calls++ }()
		if calls == len(seq) {
			return true, nil
		}
		return false, seq[calls]
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != len(seq)+1 {
		t.Errorf("calls: got %d want %d", calls, len(seq)+1)
	}
}
