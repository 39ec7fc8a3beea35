package train

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/skimmer/internal/dataset"
	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/features"
	"github.com/crimson-sun/skimmer/internal/model"
)

func records() []model.LineRecord {
	return []model.LineRecord{
		{Target: model.Background, Text: "chronic pain is common.", LineNumber: 0, TotalLines: 4},
		{Target: model.Objective, Text: "to assess drug a.", LineNumber: 1, TotalLines: 4},
		{Target: model.Methods, Text: "we randomised @ patients.", LineNumber: 2, TotalLines: 4},
		{Target: model.Results, Text: "pain fell by @ %.", LineNumber: 3, TotalLines: 4},
		{Target: model.Conclusions, Text: "drug a works.", LineNumber: 4, TotalLines: 4},
		{Target: model.Methods, Text: "data were pooled.", LineNumber: 1, TotalLines: 2},
	}
}

func setup(t *testing.T) (classifier.Trainable, *dataset.Streams) {
	t.Helper()
	stats, err := features.Fit(records(), features.FitOptions{})
	require.NoError(t, err)
	b, err := features.NewEncoder(stats).Encode(records())
	require.NoError(t, err)
	streams, err := dataset.Assemble(b, b, features.Bundle{}, dataset.Options{BatchSize: 4})
	require.NoError(t, err)
	m, err := classifier.New(classifier.TriBranch, stats, classifier.Options{Seed: 7})
	require.NoError(t, err)
	return m, streams
}

type recorder struct {
	epochs []Epoch
	err    error
}

func (r *recorder) OnEpochEnd(_ context.Context, _ classifier.Trainable, e Epoch) error {
	r.epochs = append(r.epochs, e)
	return r.err
}

func TestFit_History(t *testing.T) {
	m, streams := setup(t)
	rec := &recorder{}
	tr := New(WithCallbacks(rec), WithProgress(io.Discard))

	h, err := tr.Fit(context.Background(), m, streams, 20)
	require.NoError(t, err)
	require.Len(t, h, 20)
	assert.Equal(t, []Epoch(h), rec.epochs)

	for i, e := range h {
		assert.Equal(t, i+1, e.Epoch)
		assert.InDelta(t, 1e-3, e.LearningRate, 1e-12)
		assert.GreaterOrEqual(t, e.Accuracy, 0.0)
		assert.LessOrEqual(t, e.ValAccuracy, 1.0)
	}
	assert.Less(t, h.Last().Loss, h[0].Loss)
	assert.Less(t, h.Last().ValLoss, h[0].ValLoss)
}

func TestFit_Validation(t *testing.T) {
	m, streams := setup(t)
	_, err := New().Fit(context.Background(), m, streams, 0)
	assert.Error(t, err)
	_, err = New().Fit(context.Background(), m, &dataset.Streams{Train: streams.Train}, 1)
	assert.Error(t, err)
}

func TestFit_CallbackErrorStops(t *testing.T) {
	m, streams := setup(t)
	boom := errors.New("boom")
	h, err := New(WithCallbacks(&recorder{err: boom})).Fit(context.Background(), m, streams, 5)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, h, 1)
}

func TestFit_Cancelled(t *testing.T) {
	m, streams := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h, err := New().Fit(ctx, m, streams, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h)
}

func TestEvaluate(t *testing.T) {
	m, streams := setup(t)
	got, err := Evaluate(context.Background(), m, streams.Validation)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Count)
	assert.Greater(t, got.Loss(), 0.0)
}

func TestEpoch_Metric(t *testing.T) {
	e := Epoch{Loss: 1, Accuracy: 2, ValLoss: 3, ValAccuracy: 4}
	for name, want := range map[string]float64{
		MetricLoss: 1, MetricAccuracy: 2, MetricValLoss: 3, MetricValAccuracy: 4,
	} {
		v, err := e.Metric(name)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	_, err := e.Metric("f1")
	assert.Error(t, err)
	assert.Equal(t, Epoch{}, History(nil).Last())
}

// lrModel is a Trainable that only tracks its learning rate.
type lrModel struct {
	classifier.Trainable
	lr float64
}

func (m *lrModel) LearningRate() float64      { return m.lr }
func (m *lrModel) SetLearningRate(lr float64) { m.lr = lr }

func runPlateau(t *testing.T, cfg PlateauConfig, losses []float64) []float64 {
	t.Helper()
	r := NewReduceLROnPlateau(cfg)
	m := &lrModel{lr: 1e-3}
	var lrs []float64
	for i, l := range losses {
		require.NoError(t, r.OnEpochEnd(context.Background(), m, Epoch{Epoch: i + 1, Loss: l}))
		lrs = append(lrs, m.lr)
	}
	return lrs
}

func TestReduceLROnPlateau(t *testing.T) {
	lrs := runPlateau(t, DefaultPlateau(), []float64{1.0, 0.9, 0.9, 0.89995, 0.9, 0.8, 0.8, 0.8, 0.8})
	want := []float64{1e-3, 1e-3, 1e-3, 1e-3, 1e-4, 1e-4, 1e-4, 1e-4, 1e-5}
	require.Len(t, lrs, len(want))
	for i := range want {
		assert.InDelta(t, want[i], lrs[i], 1e-12, "epoch %d", i+1)
	}
}

func TestReduceLROnPlateau_FloorAndCooldown(t *testing.T) {
	cfg := DefaultPlateau()
	cfg.Patience = 1
	cfg.Cooldown = 2
	lrs := runPlateau(t, cfg, []float64{1, 1, 1, 1, 1, 1, 1})
	want := []float64{1e-3, 1e-4, 1e-4, 1e-5, 1e-5, 1e-5, 1e-5}
	for i := range want {
		assert.InDelta(t, want[i], lrs[i], 1e-12, "epoch %d", i+1)
	}
}

func TestReduceLROnPlateau_WaitKeepsCountingAtFloor(t *testing.T) {
	cfg := DefaultPlateau()
	cfg.Patience = 2
	cfg.MinLR = 1e-3
	r := NewReduceLROnPlateau(cfg)
	m := &lrModel{lr: 1e-3}
	for i := range 4 {
		require.NoError(t, r.OnEpochEnd(context.Background(), m, Epoch{Epoch: i + 1, Loss: 1}))
	}
	assert.InDelta(t, 1e-3, m.lr, 1e-12)
	assert.Equal(t, 3, r.wait)
}

func TestReduceLROnPlateau_UnknownMetric(t *testing.T) {
	r := NewReduceLROnPlateau(PlateauConfig{Monitor: "f1"})
	assert.Error(t, r.OnEpochEnd(context.Background(), &lrModel{lr: 1}, Epoch{}))
}

func TestCheckpointer_SavesBestOnly(t *testing.T) {
	m, _ := setup(t)
	c, err := OpenCheckpointer(filepath.Join(t.TempDir(), "ckpt.db"), MetricAccuracy)
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Best()
	assert.ErrorIs(t, err, ErrNoCheckpoint)

	ctx := context.Background()
	require.NoError(t, c.OnEpochEnd(ctx, m, Epoch{Epoch: 1, Accuracy: 0.5}))
	saved := classifier.ExportWeights(m.Params())

	// Perturb the weights; a worse epoch must not overwrite the checkpoint.
	for _, p := range m.Params() {
		for i := range p.Data {
			p.Data[i] += 1
		}
	}
	require.NoError(t, c.OnEpochEnd(ctx, m, Epoch{Epoch: 2, Accuracy: 0.4}))
	require.NoError(t, c.OnEpochEnd(ctx, m, Epoch{Epoch: 3, Accuracy: 0.5}))

	e, err := c.Restore(m)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Epoch)
	assert.Equal(t, saved.Tensors, classifier.ExportWeights(m.Params()).Tensors)

	require.NoError(t, c.OnEpochEnd(ctx, m, Epoch{Epoch: 4, Accuracy: 0.6}))
	e, _, err = c.Best()
	require.NoError(t, err)
	assert.Equal(t, 4, e.Epoch)
}

func TestOpenCheckpointer_UnknownMetric(t *testing.T) {
	_, err := OpenCheckpointer(filepath.Join(t.TempDir(), "ckpt.db"), "f1")
	assert.Error(t, err)
}
