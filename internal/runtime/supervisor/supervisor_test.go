package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logx "sendrelay/pkg/logx"
)

func TestGoCleanExit(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), logx.Nop())

	var ran atomic.Bool
	s.Go("once", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ran.Load() {
		t.Fatal("goroutine never ran")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), logx.Nop())

	s.Go("panicky", func(ctx context.Context) error {
		panic("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait after panic: %v", err)
	}
}

func TestGoRestartRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), logx.Nop())

	var runs atomic.Int32
	s.GoRestart("flappy", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}

func TestGoRestartStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), logx.Nop())

	s.GoRestart("forever", func(ctx context.Context) error {
		return errors.New("always failing")
	})

	time.Sleep(50 * time.Millisecond)
	s.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait after cancel: %v", err)
	}
}

func TestCancelPropagatesToGoroutines(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), logx.Nop())

	stopped := make(chan struct{})
	s.Go("blocker", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	s.Cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not observe cancellation")
	}
}

func TestWaitTimesOut(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), logx.Nop())

	release := make(chan struct{})
	s.Go("slow", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("Wait returned nil while a goroutine was still running")
	}
	close(release)
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("final Wait: %v", err)
	}
}
