// Package pipeline runs batch classification: abstracts from a source are
// classified one at a time and written to an output in arrival order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/skimmer/internal/dedup"
	"github.com/crimson-sun/skimmer/internal/inference"
	"github.com/crimson-sun/skimmer/internal/logging"
	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/output"
	"github.com/crimson-sun/skimmer/internal/source"
)

// Classifier turns one abstract into its classified form.
type Classifier interface {
	ClassifyAbstract(ctx context.Context, a model.Abstract) (model.ClassifiedAbstract, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDedup drops abstracts whose text was already classified in this run.
func WithDedup(d *dedup.Deduplicator) Option {
	return func(p *Pipeline) { p.dedup = d }
}

// Pipeline connects a source, a classifier and an output.
type Pipeline struct {
	source     source.Source
	classifier Classifier
	output     output.Output
	dedup      *dedup.Deduplicator

	classified atomic.Int64
	skipped    atomic.Int64
}

// New creates a Pipeline from the given components.
func New(src source.Source, clf Classifier, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     src,
		classifier: clf,
		output:     out,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Stream classifies abstracts as the source produces them. It returns when
// the source is exhausted, ctx is cancelled or the output fails. Abstracts
// that cannot be classified are logged and skipped.
func (p *Pipeline) Stream(ctx context.Context, cfg source.Config) error {
	ch, err := p.source.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-ch:
			if !ok {
				return nil
			}
			if p.dedup != nil {
				if first, dup := p.dedup.Seen(a); dup {
					slog.Debug("dropping duplicate abstract", "id", a.ID, "first_id", first)
					continue
				}
			}
			if err := p.handle(ctx, a); err != nil {
				return err
			}
		}
	}
}

// Query fetches one batch from the source and classifies all of it.
func (p *Pipeline) Query(ctx context.Context, cfg source.Config, params source.QueryParams) error {
	abstracts, err := p.source.Query(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}
	if p.dedup != nil {
		before := len(abstracts)
		abstracts = p.dedup.DeduplicateBatch(abstracts)
		if n := before - len(abstracts); n > 0 {
			slog.Info("dropped duplicate abstracts", "count", n)
		}
	}

	for _, a := range abstracts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.handle(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) handle(ctx context.Context, a model.Abstract) error {
	start := time.Now()
	res, err := p.classifier.ClassifyAbstract(ctx, a)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		p.skipped.Add(1)
		slog.Warn("skipping abstract",
			"id", a.ID,
			"source", a.Source,
			"error", err,
		)
		return nil
	}

	if err := p.output.Write(ctx, res); err != nil {
		return fmt.Errorf("pipeline output: %w", err)
	}
	p.classified.Add(1)
	slog.Debug("abstract written",
		"id", a.ID,
		logging.KeySamples, len(res.Sentences),
		logging.KeyDuration, time.Since(start),
	)
	return nil
}

// Classified reports how many abstracts reached the output.
func (p *Pipeline) Classified() int64 { return p.classified.Load() }

// Skipped reports how many abstracts failed classification. Empty abstracts
// (inference.ErrNoInput) are counted here too.
func (p *Pipeline) Skipped() int64 { return p.skipped.Load() }

// Duplicates reports how many abstracts the deduplicator dropped.
func (p *Pipeline) Duplicates() int {
	if p.dedup == nil {
		return 0
	}
	return p.dedup.Dropped()
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

var _ Classifier = (*inference.Pipeline)(nil)
