package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/output"
)

const (
	defaultBatchSize     = 25
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithBatchSize sets the number of abstracts accumulated before a flush. Default: 25.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time between flushes. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Output POSTs batches of classified abstracts to an HTTP endpoint as a JSON
// array. A batch is sent when batchSize abstracts have accumulated or
// flushInterval has passed since the first one. Failed batches are reported
// and discarded.
type Output struct {
	client        *http.Client
	url           string
	verbosity     output.Verbosity
	headers       map[string]string
	batchSize     int
	flushInterval time.Duration
	errFunc       func(error)
	mu            sync.Mutex
	pending       []model.ClassifiedAbstract
	timer         *time.Timer
}

// New creates a webhook output targeting url.
func New(url string, verbosity output.Verbosity, opts ...Option) *Output {
	o := &Output{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		verbosity:     verbosity,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write appends a to the pending batch and flushes when the batch is full.
func (o *Output) Write(ctx context.Context, a model.ClassifiedAbstract) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.FormatAbstract(a, o.verbosity))

	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}

	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if err := o.flushLocked(context.Background()); err != nil {
				o.errFunc(err)
			}
		})
	}
	return nil
}

// Close stops the timer and sends whatever is still pending.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	return o.flushLocked(context.Background())
}

// flushLocked sends the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if len(o.pending) == 0 {
		return nil
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	batch := o.pending
	o.pending = nil

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	return o.post(ctx, body, len(batch))
}

func (o *Output) post(ctx context.Context, body []byte, n int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: HTTP %d, %d abstracts dropped", resp.StatusCode, n)
	}
	return nil
}
