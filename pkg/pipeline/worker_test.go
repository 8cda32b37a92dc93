package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
)

func TestWorkerPoolRunsTasks(t *testing.T) {
	wp := NewWorkerPool(3, 8, log.New(io.Discard))
	wp.Start(context.Background())

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		if err := wp.Submit(func() {
			defer wg.Done()
			n.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	wp.Stop()

	if got := n.Load(); got != 20 {
		t.Errorf("ran %d tasks, want 20", got)
	}
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	wp := NewWorkerPool(1, 1, log.New(io.Discard))
	wp.Start(context.Background())
	wp.Stop()
	wp.Stop()

	if err := wp.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit after Stop error = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPoolSurvivesPanic(t *testing.T) {
	wp := NewWorkerPool(1, 2, log.New(io.Discard))
	wp.Start(context.Background())
	defer wp.Stop()

	done := make(chan struct{})
	if err := wp.Submit(func() { panic("boom") }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := wp.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-done
}
