package background

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newBackground() *Background {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log)
}

func TestShutdownWaitsForTasks(t *testing.T) {
	bg := newBackground()

	var done atomic.Int32
	for i := 0; i < 5; i++ {
		if err := bg.Go(func() {
			time.Sleep(20 * time.Millisecond)
			done.Add(1)
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := bg.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if done.Load() != 5 {
		t.Fatalf("shutdown returned with %d/5 tasks done", done.Load())
	}

	if err := bg.Go(func() {}); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown after shutdown, got %v", err)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	bg := newBackground()

	if err := bg.Go(func() { panic("boom") }); err != nil {
		t.Fatal(err)
	}
	if err := bg.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestShutdownDeadline(t *testing.T) {
	bg := newBackground()

	release := make(chan struct{})
	defer close(release)
	bg.Go(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := bg.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
