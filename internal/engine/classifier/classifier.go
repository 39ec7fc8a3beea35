// Package classifier holds the sentence role models. Every variant maps a
// feature bundle to a probability distribution over the fitted label set;
// the variants differ only in how they encode a sentence before the shared
// fusion head.
package classifier

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
)

// ErrUnknownVariant is returned for an unrecognized model variant name.
var ErrUnknownVariant = errors.New("unknown model variant")

// Variant names a model architecture.
type Variant string

const (
	// TriBranch combines token, character and positional branches.
	TriBranch Variant = "tribrid"
	// TokenOnly classifies a pretrained sentence embedding.
	TokenOnly Variant = "token"
	// TokenChar combines a pretrained sentence embedding with a character
	// branch.
	TokenChar Variant = "token_char"
)

// Variants lists the supported variants.
var Variants = []Variant{TriBranch, TokenOnly, TokenChar}

// ParseVariant resolves a variant name. "token_and_chars" is accepted as an
// alias of TokenChar.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TriBranch), "tribranch", "":
		return TriBranch, nil
	case string(TokenOnly), "token_only":
		return TokenOnly, nil
	case string(TokenChar), "token_and_chars":
		return TokenChar, nil
	}
	return "", fmt.Errorf("classifier: %w: %q", ErrUnknownVariant, s)
}

// NeedsEncoder reports whether the variant requires a sentence encoder.
func (v Variant) NeedsEncoder() bool {
	return v == TokenOnly || v == TokenChar
}

// Model produces class probabilities for a feature bundle. Each returned row
// sums to 1 and is indexed by the statistics' label ordering.
type Model interface {
	Predict(b features.Bundle) ([][]float32, error)
	Summary() string
	Variant() Variant
}

// Trainable is a Model that can be fitted.
type Trainable interface {
	Model
	// TrainStep runs forward, backward and one optimizer update on a
	// labeled batch.
	TrainStep(b features.Bundle) (Metrics, error)
	// Evaluate computes loss and accuracy on a labeled batch without
	// updating weights.
	Evaluate(b features.Bundle) (Metrics, error)
	Params() []*nn.Param
	LearningRate() float64
	SetLearningRate(lr float64)
}

// Metrics accumulates loss and accuracy over batches.
type Metrics struct {
	LossSum float64 // sum of per-sample losses
	Correct int
	Count   int
}

// Add merges o into m.
func (m *Metrics) Add(o Metrics) {
	m.LossSum += o.LossSum
	m.Correct += o.Correct
	m.Count += o.Count
}

// Loss returns the mean loss.
func (m Metrics) Loss() float64 {
	if m.Count == 0 {
		return 0
	}
	return m.LossSum / float64(m.Count)
}

// Accuracy returns the fraction of correct predictions.
func (m Metrics) Accuracy() float64 {
	if m.Count == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Count)
}

// Options configures model construction.
type Options struct {
	// Encoder embeds sentences for TokenOnly and TokenChar. It is frozen.
	Encoder      encoder.Encoder
	LearningRate float64
	Seed         int64
}

// New builds an untrained model of the given variant, sized from stats.
func New(v Variant, stats *features.Statistics, opts Options) (Trainable, error) {
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if v.NeedsEncoder() && opts.Encoder == nil {
		return nil, fmt.Errorf("classifier: variant %s: %w", v, encoder.ErrUnavailable)
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = nn.DefaultLearningRate
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	classes := stats.Labels.Len()

	var net network
	switch v {
	case TriBranch:
		net = newTriBranch(stats, classes, rng)
	case TokenOnly:
		net = newTokenOnly(opts.Encoder, classes, rng)
	case TokenChar:
		net = newTokenChar(stats, opts.Encoder, classes, rng)
	default:
		return nil, fmt.Errorf("classifier: %w: %q", ErrUnknownVariant, v)
	}
	return compile(v, net, opts.LearningRate), nil
}
