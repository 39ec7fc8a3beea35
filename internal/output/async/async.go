package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/output"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 10 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 256.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithDrainTimeout bounds how long Close waits for queued abstracts.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately when the buffer is full,
// dropping the abstract instead of blocking the classifier.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Async puts a buffered channel between the classification loop and a slow
// sink such as a webhook or a rotating file. A background goroutine drains the
// channel into the wrapped output; its errors go to errFunc, never to the
// caller of Write.
type Async struct {
	inner        output.Output
	ch           chan model.ClassifiedAbstract
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	drainTimeout time.Duration
	dropOnFull   bool
	closeOnce    sync.Once
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.ClassifiedAbstract, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues a. It blocks while the buffer is full unless WithDropOnFull
// was given, and gives up when ctx is done.
func (a *Async) Write(ctx context.Context, abs model.ClassifiedAbstract) error {
	if a.dropOnFull {
		select {
		case a.ch <- abs:
		default:
			slog.Warn("async output buffer full, dropping abstract", "id", abs.ID, "source", abs.Source)
		}
		return nil
	}
	select {
	case a.ch <- abs:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting abstracts, waits for the queue to drain (bounded by
// the drain timeout), then closes the inner output. Write must not be called
// after Close.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out", "pending", len(a.ch))
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for abs := range a.ch {
		if err := a.inner.Write(context.Background(), abs); err != nil {
			a.errFunc(err)
		}
	}
}
