package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestNewWorkerPool_DefaultWorkers(t *testing.T) {
	p := NewWorkerPool(0)
	defer p.Close()
	if p.Workers() <= 0 {
		t.Errorf("Workers() = %d, want > 0", p.Workers())
	}
}

func TestForEach_RunsEveryIndexOnce(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	const n = 1000
	var hits [n]atomic.Int32
	err := p.ForEach(context.Background(), n, func(i int) error {
		hits[i].Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	for i := range hits {
		if got := hits[i].Load(); got != 1 {
			t.Fatalf("index %d ran %d times, want 1", i, got)
		}
	}
}

func TestForEach_ReturnsFirstError(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()

	boom := errors.New("boom")
	err := p.ForEach(context.Background(), 50, func(i int) error {
		if i == 7 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("ForEach error = %v, want %v", err, boom)
	}
}

func TestForEach_CancelledContext(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	err := p.ForEach(ctx, 20, func(int) error {
		ran.Add(1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ForEach error = %v, want context.Canceled", err)
	}
	if ran.Load() != 0 {
		t.Errorf("%d tasks ran after cancellation, want 0", ran.Load())
	}
}

func TestForEach_ZeroTasks(t *testing.T) {
	p := NewWorkerPool(1)
	defer p.Close()
	if err := p.ForEach(context.Background(), 0, func(int) error { return errors.New("unreachable") }); err != nil {
		t.Errorf("ForEach(0) = %v, want nil", err)
	}
}

func TestForEach_AfterClose(t *testing.T) {
	p := NewWorkerPool(1)
	p.Close()
	p.Close() // idempotent

	err := p.ForEach(context.Background(), 3, func(int) error { return nil })
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("ForEach after Close = %v, want ErrPoolClosed", err)
	}
}
