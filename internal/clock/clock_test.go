package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWait_ZeroDurationReturnsImmediately(t *testing.T) {
	vc := NewVirtualClock(epoch)
	if err := Wait(context.Background(), vc, 0); err != nil {
		t.Fatalf("Wait(0) error = %v", err)
	}
	if err := Wait(context.Background(), vc, -time.Second); err != nil {
		t.Fatalf("Wait(<0) error = %v", err)
	}
}

func TestWait_ReturnsWhenClockAdvances(t *testing.T) {
	vc := NewVirtualClock(epoch)

	done := make(chan error, 1)
	go func() {
		done <- Wait(context.Background(), vc, 5*time.Second)
	}()

	// Give the waiter a moment to register, then release it.
	time.Sleep(10 * time.Millisecond)
	vc.Advance(5 * time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after clock advance")
	}
}

func TestWait_AbortsOnContextCancel(t *testing.T) {
	vc := NewVirtualClock(epoch)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Wait(ctx, vc, time.Hour)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Wait() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after cancel")
	}
}
