package background

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrShutdown = errors.New("background tasks are shutting down")

// Background runs detached tasks that must not outlive the server shutdown.
type Background struct {
	log      logrus.FieldLogger
	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Go starts fn in its own goroutine. Panics are recovered and logged.
func (b *Background) Go(fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shutdown {
		return ErrShutdown
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("panic", rec).Error(fmt.Sprintf("background task panicked: %v", rec))
			}
		}()

		fn()
	}()

	return nil
}

// Shutdown refuses new tasks and waits for running ones until ctx is done.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.shutdown = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
