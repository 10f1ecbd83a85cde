package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"booking-payments/internal/dto/response"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
	ran   chan struct{}
}

func (r *countingRunner) RunScheduled(ctx context.Context) (*response.ReconcileResponse, bool, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	select {
	case r.ran <- struct{}{}:
	default:
	}
	return &response.ReconcileResponse{}, true, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestSchedulerBootRunThenInterval(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{ran: make(chan struct{}, 8)}
	s := New(runner, 5*time.Millisecond, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-runner.ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("Expected run #%d, got %d runs", i+1, runner.count())
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected scheduler to stop after cancel")
	}
}

func TestSchedulerStopsBeforeBoot(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{ran: make(chan struct{}, 1)}
	s := New(runner, time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := runner.count(); got != 0 {
		t.Errorf("Expected no runs, got %d", got)
	}
}

type blockingRunner struct {
	started  chan struct{}
	release  chan struct{}
	finished chan struct{}
}

func (r *blockingRunner) RunScheduled(ctx context.Context) (*response.ReconcileResponse, bool, error) {
	select {
	case r.started <- struct{}{}:
	default:
		return nil, false, nil
	}
	<-r.release
	close(r.finished)
	return &response.ReconcileResponse{}, true, nil
}

func TestSchedulerWaitsForRunningTick(t *testing.T) {
	t.Parallel()

	runner := &blockingRunner{
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
		finished: make(chan struct{}),
	}
	s := New(runner, time.Millisecond, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected boot run to start")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Expected Run to wait for the running tick")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected scheduler to stop after the tick finished")
	}

	select {
	case <-runner.finished:
	default:
		t.Error("Expected the tick to finish before Run returned")
	}
}
