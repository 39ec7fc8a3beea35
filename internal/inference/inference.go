// Package inference classifies the sentences of a free-text abstract with a
// trained model and groups them by predicted role.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
	"github.com/crimson-sun/skimmer/internal/logging"
	"github.com/crimson-sun/skimmer/internal/model"
)

// ErrNoInput is returned for empty or whitespace-only text.
var ErrNoInput = errors.New("no text provided")

// Segmenter splits an abstract into sentences.
type Segmenter interface {
	Segment(text string) []string
}

// Predictor returns one probability row per record of a bundle.
type Predictor interface {
	Predict(b features.Bundle) ([][]float32, error)
}

// Result is the classification of one abstract.
type Result struct {
	// Sections maps every label to its sentences in original order. Labels
	// with no sentences map to an empty list.
	Sections  map[string][]string        `json:"sections"`
	Sentences []model.SentencePrediction `json:"sentences"`
}

// Pipeline runs segmentation, encoding, prediction and grouping. It holds
// only read-only state after construction.
type Pipeline struct {
	seg    Segmenter
	enc    *features.Encoder
	labels features.LabelEncoder
	model  Predictor
}

// New creates a Pipeline over frozen statistics and a trained model.
func New(seg Segmenter, stats *features.Statistics, m Predictor) *Pipeline {
	return &Pipeline{
		seg:    seg,
		enc:    features.NewEncoder(stats),
		labels: stats.Labels,
		model:  m,
	}
}

// Records builds unlabeled line records for segmented sentences, numbered
// the way the training corpus numbers them.
func Records(sentences []string) []model.LineRecord {
	recs := make([]model.LineRecord, len(sentences))
	for i, s := range sentences {
		recs[i] = model.LineRecord{
			Text:       strings.ToLower(s),
			LineNumber: i,
			TotalLines: len(sentences) - 1,
		}
	}
	return recs
}

// Classify segments text, predicts every sentence in one batch and groups the
// original sentences by predicted label.
func (p *Pipeline) Classify(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrNoInput
	}
	sentences := p.seg.Segment(text)
	if len(sentences) == 0 {
		return Result{}, ErrNoInput
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	bundle, err := p.enc.Encode(Records(sentences))
	if err != nil {
		return Result{}, fmt.Errorf("inference: encode: %w", err)
	}
	probs, err := p.model.Predict(bundle)
	if err != nil {
		return Result{}, fmt.Errorf("inference: predict: %w", err)
	}
	if len(probs) != len(sentences) {
		return Result{}, fmt.Errorf("inference: model returned %d rows for %d sentences", len(probs), len(sentences))
	}

	res := Result{
		Sections:  make(map[string][]string, p.labels.Len()),
		Sentences: make([]model.SentencePrediction, len(sentences)),
	}
	for _, c := range p.labels.Categories {
		res.Sections[c] = []string{}
	}
	for i, row := range probs {
		k := nn.Argmax(row)
		label, err := p.labels.Name(k)
		if err != nil {
			return Result{}, fmt.Errorf("inference: sentence %d: %w", i, err)
		}
		res.Sections[label] = append(res.Sections[label], sentences[i])
		res.Sentences[i] = model.SentencePrediction{
			Text:       sentences[i],
			Label:      label,
			Confidence: float64(row[k]),
			LineNumber: i,
		}
	}

	slog.Debug("abstract classified",
		logging.KeyOperation, "classify",
		logging.KeySamples, len(sentences),
		logging.KeyDuration, time.Since(start),
	)
	return res, nil
}

// ClassifyAbstract classifies a into the batch output type.
func (p *Pipeline) ClassifyAbstract(ctx context.Context, a model.Abstract) (model.ClassifiedAbstract, error) {
	res, err := p.Classify(ctx, a.Text)
	if err != nil {
		return model.ClassifiedAbstract{}, err
	}
	return model.ClassifiedAbstract{
		ID:        a.ID,
		Source:    a.Source,
		Sections:  res.Sections,
		Sentences: res.Sentences,
	}, nil
}
