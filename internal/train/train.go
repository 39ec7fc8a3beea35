// Package train fits classifier models over prefetched dataset streams and
// runs epoch-end callbacks for learning-rate scheduling and checkpointing.
package train

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/crimson-sun/skimmer/internal/dataset"
	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/logging"
)

// Metric names understood by callbacks.
const (
	MetricLoss        = "loss"
	MetricAccuracy    = "accuracy"
	MetricValLoss     = "val_loss"
	MetricValAccuracy = "val_accuracy"
)

// Epoch holds the metrics of one finished epoch.
type Epoch struct {
	Epoch        int           `json:"epoch"` // 1-based
	Loss         float64       `json:"loss"`
	Accuracy     float64       `json:"accuracy"`
	ValLoss      float64       `json:"val_loss"`
	ValAccuracy  float64       `json:"val_accuracy"`
	LearningRate float64       `json:"lr"`
	Duration     time.Duration `json:"duration"`
}

// Metric returns the named metric.
func (e Epoch) Metric(name string) (float64, error) {
	switch name {
	case MetricLoss:
		return e.Loss, nil
	case MetricAccuracy:
		return e.Accuracy, nil
	case MetricValLoss:
		return e.ValLoss, nil
	case MetricValAccuracy:
		return e.ValAccuracy, nil
	}
	return 0, fmt.Errorf("train: unknown metric %q", name)
}

// History is the per-epoch record of a Fit call.
type History []Epoch

// Last returns the final epoch, or the zero Epoch for an empty history.
func (h History) Last() Epoch {
	if len(h) == 0 {
		return Epoch{}
	}
	return h[len(h)-1]
}

// Callback runs after every epoch. Returning an error stops training.
type Callback interface {
	OnEpochEnd(ctx context.Context, m classifier.Trainable, e Epoch) error
}

// Trainer runs the fit loop.
type Trainer struct {
	callbacks []Callback
	progress  io.Writer
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithCallbacks appends epoch-end callbacks. They run in order.
func WithCallbacks(cbs ...Callback) Option {
	return func(t *Trainer) { t.callbacks = append(t.callbacks, cbs...) }
}

// WithProgress renders a per-epoch progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(t *Trainer) { t.progress = w }
}

// New creates a Trainer.
func New(opts ...Option) *Trainer {
	t := &Trainer{}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit trains m for the given number of epochs. Each epoch consumes the
// training stream batch by batch, then evaluates the validation stream.
func (t *Trainer) Fit(ctx context.Context, m classifier.Trainable, s *dataset.Streams, epochs int) (History, error) {
	if epochs < 1 {
		return nil, fmt.Errorf("train: epochs must be >= 1, got %d", epochs)
	}
	if s == nil || s.Train == nil || s.Validation == nil {
		return nil, fmt.Errorf("train: training and validation streams are required")
	}

	history := make(History, 0, epochs)
	for e := 1; e <= epochs; e++ {
		start := time.Now()
		lr := m.LearningRate()

		trainM, err := t.runEpoch(ctx, m, s.Train, e, epochs)
		if err != nil {
			return history, err
		}
		valM, err := Evaluate(ctx, m, s.Validation)
		if err != nil {
			return history, fmt.Errorf("train: epoch %d validation: %w", e, err)
		}

		ep := Epoch{
			Epoch:        e,
			Loss:         trainM.Loss(),
			Accuracy:     trainM.Accuracy(),
			ValLoss:      valM.Loss(),
			ValAccuracy:  valM.Accuracy(),
			LearningRate: lr,
			Duration:     time.Since(start),
		}
		history = append(history, ep)

		slog.Info("epoch complete",
			logging.KeyVariant, string(m.Variant()),
			logging.KeyEpoch, e,
			logging.KeyLoss, round(ep.Loss),
			logging.KeyAccuracy, round(ep.Accuracy),
			logging.KeyValLoss, round(ep.ValLoss),
			logging.KeyValAcc, round(ep.ValAccuracy),
			logging.KeyLR, ep.LearningRate,
			logging.KeyDuration, ep.Duration,
		)

		for _, cb := range t.callbacks {
			if err := cb.OnEpochEnd(ctx, m, ep); err != nil {
				return history, fmt.Errorf("train: epoch %d callback: %w", e, err)
			}
		}
	}
	return history, nil
}

func (t *Trainer) runEpoch(ctx context.Context, m classifier.Trainable, s *dataset.Stream, epoch, epochs int) (classifier.Metrics, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if t.progress != nil {
		p = mpb.New(mpb.WithOutput(t.progress), mpb.WithWidth(60))
		bar = p.AddBar(int64(s.NumBatches()),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("epoch %d/%d: ", epoch, epochs)),
				decor.CountersNoUnit("%d/%d", decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done"),
			),
		)
	}

	var total classifier.Metrics
	err := func() error {
		for b := range s.Batches(ctx, epoch) {
			bm, err := m.TrainStep(b.Bundle)
			if err != nil {
				return fmt.Errorf("train: epoch %d batch %d: %w", epoch, b.Index, err)
			}
			total.Add(bm)
			if bar != nil {
				bar.Increment()
			}
		}
		return ctx.Err()
	}()

	if p != nil {
		if err != nil {
			bar.Abort(false)
		}
		p.Wait()
	}
	return total, err
}

// Evaluate computes loss and accuracy of m over a labeled stream without
// updating weights.
func Evaluate(ctx context.Context, m classifier.Trainable, s *dataset.Stream) (classifier.Metrics, error) {
	var total classifier.Metrics
	err := s.Each(func(b dataset.Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		bm, err := m.Evaluate(b.Bundle)
		if err != nil {
			return fmt.Errorf("batch %d: %w", b.Index, err)
		}
		total.Add(bm)
		return nil
	})
	return total, err
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
