// Package dataset pairs encoded feature streams with labels and serves them
// in batches. Training and validation streams prefetch batches on a
// producer goroutine; the test stream is iterated synchronously.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/crimson-sun/skimmer/internal/features"
)

// ErrMisaligned is returned when feature streams and labels differ in length.
var ErrMisaligned = errors.New("feature streams are misaligned")

// Defaults for Options.
const (
	DefaultBatchSize = 128
	DefaultPrefetch  = 2
)

// Options configures batching.
type Options struct {
	BatchSize int
	Prefetch  int
	// Shuffle permutes training records every epoch. Validation and test
	// streams are never shuffled.
	Shuffle bool
	Seed    int64
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Prefetch <= 0 {
		o.Prefetch = DefaultPrefetch
	}
	return o
}

// Batch is a contiguous group of records. Index is the position of the batch
// within its epoch.
type Batch struct {
	Index int
	features.Bundle
}

// Size returns the number of records in the batch.
func (b Batch) Size() int { return b.Len() }

// Stream serves one split in fixed-size batches. The final batch may be
// smaller.
type Stream struct {
	data      features.Bundle
	batchSize int
	prefetch  int
	shuffle   bool
	seed      int64
}

// Len returns the number of records in the stream.
func (s *Stream) Len() int { return s.data.Len() }

// NumBatches returns the number of batches per epoch.
func (s *Stream) NumBatches() int {
	if s.data.Len() == 0 {
		return 0
	}
	return (s.data.Len() + s.batchSize - 1) / s.batchSize
}

// Streams holds the per-split streams. Test is nil when no test split was
// supplied.
type Streams struct {
	Train      *Stream
	Validation *Stream
	Test       *Stream
}

// Assemble builds streams for each split. Every split must carry labels and
// every stream within a split must have the same length. Pass a zero Bundle
// for test to omit it.
func Assemble(train, val, test features.Bundle, opts Options) (*Streams, error) {
	opts = opts.withDefaults()

	if err := checkAligned("train", train); err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, errors.New("dataset: train split is empty")
	}
	if err := checkAligned("validation", val); err != nil {
		return nil, err
	}

	s := &Streams{
		Train:      newStream(train, opts, opts.Shuffle),
		Validation: newStream(val, opts, false),
	}
	if test.Len() > 0 {
		if err := checkAligned("test", test); err != nil {
			return nil, err
		}
		s.Test = newStream(test, opts, false)
	}
	return s, nil
}

// FromBundle wraps an already aligned bundle in an unshuffled stream, for
// evaluation of data that was not part of Assemble.
func FromBundle(b features.Bundle, opts Options) (*Stream, error) {
	if !b.Aligned() {
		return nil, fmt.Errorf("dataset: %w", ErrMisaligned)
	}
	return newStream(b, opts.withDefaults(), false), nil
}

func newStream(b features.Bundle, opts Options, shuffle bool) *Stream {
	return &Stream{
		data:      b,
		batchSize: opts.BatchSize,
		prefetch:  opts.Prefetch,
		shuffle:   shuffle,
		seed:      opts.Seed,
	}
}

func checkAligned(split string, b features.Bundle) error {
	n := b.Len()
	if len(b.Chars) != n || len(b.LineNumbers) != n || len(b.TotalLines) != n || len(b.Labels) != n {
		return fmt.Errorf("dataset: %s split: %w (tokens=%d chars=%d line_numbers=%d total_lines=%d labels=%d)",
			split, ErrMisaligned, n, len(b.Chars), len(b.LineNumbers), len(b.TotalLines), len(b.Labels))
	}
	return nil
}

// order returns the record order for epoch, or nil for identity order.
func (s *Stream) order(epoch int) []int {
	if !s.shuffle {
		return nil
	}
	rng := rand.New(rand.NewSource(s.seed + int64(epoch)))
	return rng.Perm(s.data.Len())
}

func (s *Stream) batch(i int, perm []int) Batch {
	lo := i * s.batchSize
	hi := min(lo+s.batchSize, s.data.Len())
	if perm == nil {
		return Batch{Index: i, Bundle: s.data.Slice(lo, hi)}
	}
	return Batch{Index: i, Bundle: s.data.Gather(perm[lo:hi])}
}

// Batches returns a channel of the epoch's batches. A producer goroutine
// prepares up to Prefetch batches ahead of the consumer. The channel is
// closed after the last batch or when ctx is cancelled.
func (s *Stream) Batches(ctx context.Context, epoch int) <-chan Batch {
	ch := make(chan Batch, s.prefetch)
	go func() {
		defer close(ch)
		perm := s.order(epoch)
		for i := range s.NumBatches() {
			select {
			case <-ctx.Done():
				return
			case ch <- s.batch(i, perm):
			}
		}
	}()
	return ch
}

// Each calls fn for every batch in order without prefetching. Iteration stops
// at the first error.
func (s *Stream) Each(fn func(Batch) error) error {
	for i := range s.NumBatches() {
		if err := fn(s.batch(i, nil)); err != nil {
			return err
		}
	}
	return nil
}
