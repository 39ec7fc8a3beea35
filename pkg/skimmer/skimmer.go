package skimmer

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/skimmer/internal/artifact"
	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/inference"
	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/segment"
)

// ErrNoInput is returned when the text to classify is empty.
var ErrNoInput = inference.ErrNoInput

// ErrModelNotFound is returned by New when no saved run can be located.
var ErrModelNotFound = artifact.ErrModelNotFound

// Skimmer classifies abstracts with a trained model.
// Safe for concurrent use.
type Skimmer struct {
	pipeline *inference.Pipeline
	manifest artifact.Manifest
	encoder  encoder.Encoder
}

// New loads a trained run and prepares the inference pipeline. Loading is
// the expensive part: create once, reuse across requests.
func New(opts ...Option) (*Skimmer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := artifact.Resolve(o.modelDir, o.modelRoot)
	if err != nil {
		return nil, fmt.Errorf("skimmer: %w", err)
	}
	man, err := artifact.ReadManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("skimmer: %w", err)
	}

	var copts classifier.Options
	if man.Variant.NeedsEncoder() {
		enc, err := encoder.New(o.encoder)
		if err != nil {
			return nil, fmt.Errorf("skimmer: variant %s: %w", man.Variant, err)
		}
		copts.Encoder = encoder.NewCache(enc)
	}

	art, err := artifact.Load(dir, copts)
	if err != nil {
		if copts.Encoder != nil {
			copts.Encoder.Close()
		}
		return nil, fmt.Errorf("skimmer: %w", err)
	}

	seg := segment.New(segment.WithAbbreviations(o.abbreviations...))
	return &Skimmer{
		pipeline: inference.New(seg, art.Manifest.Statistics, art.Model),
		manifest: art.Manifest,
		encoder:  copts.Encoder,
	}, nil
}

// Classify segments text into sentences and labels each one.
func (s *Skimmer) Classify(ctx context.Context, text string) (Result, error) {
	res, err := s.pipeline.Classify(ctx, text)
	if err != nil {
		return Result{}, err
	}
	return resultFromInference(res), nil
}

// ClassifyBatch classifies several abstracts. Results are returned in input
// order. The first failure aborts the batch.
func (s *Skimmer) ClassifyBatch(ctx context.Context, texts []string) ([]Result, error) {
	out := make([]Result, len(texts))
	for i, t := range texts {
		r, err := s.Classify(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("skimmer: abstract %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// ClassifyAbstracts classifies abstracts that carry an ID. Empty abstracts
// are skipped rather than failing the batch.
func (s *Skimmer) ClassifyAbstracts(ctx context.Context, abstracts []Abstract) ([]Classified, error) {
	out := make([]Classified, 0, len(abstracts))
	for _, a := range abstracts {
		ca, err := s.pipeline.ClassifyAbstract(ctx, model.Abstract{ID: a.ID, Text: a.Text})
		if errors.Is(err, inference.ErrNoInput) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("skimmer: abstract %q: %w", a.ID, err)
		}
		out = append(out, Classified{
			ID:     ca.ID,
			Result: resultFromInference(inference.Result{Sections: ca.Sections, Sentences: ca.Sentences}),
		})
	}
	return out, nil
}

// RunID identifies the loaded training run.
func (s *Skimmer) RunID() string { return s.manifest.RunID }

// Variant names the loaded model architecture.
func (s *Skimmer) Variant() string { return string(s.manifest.Variant) }

// Close releases the sentence encoder, if one was loaded.
func (s *Skimmer) Close() error {
	if s.encoder == nil {
		return nil
	}
	return s.encoder.Close()
}

func resultFromInference(r inference.Result) Result {
	out := Result{
		Sections:  r.Sections,
		Sentences: make([]Sentence, len(r.Sentences)),
	}
	for i, p := range r.Sentences {
		out.Sentences[i] = Sentence{
			Text:       p.Text,
			Role:       p.Label,
			Confidence: p.Confidence,
			LineNumber: p.LineNumber,
		}
	}
	return out
}
