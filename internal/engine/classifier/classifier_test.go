package classifier

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
	"github.com/crimson-sun/skimmer/internal/model"
)

func records() []model.LineRecord {
	return []model.LineRecord{
		{Target: "BACKGROUND", Text: "chronic pain is common.", LineNumber: 0, TotalLines: 4},
		{Target: "OBJECTIVE", Text: "to assess drug a.", LineNumber: 1, TotalLines: 4},
		{Target: "METHODS", Text: "we randomised @ patients.", LineNumber: 2, TotalLines: 4},
		{Target: "RESULTS", Text: "pain fell by @ %.", LineNumber: 3, TotalLines: 4},
		{Target: "CONCLUSIONS", Text: "drug a works.", LineNumber: 4, TotalLines: 4},
		{Target: "METHODS", Text: "data were pooled.", LineNumber: 1, TotalLines: 2},
	}
}

func fixture(t *testing.T) (*features.Statistics, features.Bundle) {
	t.Helper()
	stats, err := features.Fit(records(), features.FitOptions{})
	require.NoError(t, err)
	b, err := features.NewEncoder(stats).Encode(records())
	require.NoError(t, err)
	return stats, b
}

// letterEncoder embeds a sentence as its normalized letter histogram over
// the first eight letters of the alphabet plus its length.
type letterEncoder struct{}

func (letterEncoder) Encode(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 9)
		for _, r := range t {
			if r >= 'a' && r < 'i' {
				v[r-'a']++
			}
		}
		for j := range 8 {
			v[j] /= float32(len(t))
		}
		v[8] = float32(len(t)) / 32
		out[i] = v
	}
	return out, nil
}

func (letterEncoder) Dim() int     { return 9 }
func (letterEncoder) Close() error { return nil }

type failingEncoder struct{ letterEncoder }

func (failingEncoder) Encode([]string) ([][]float32, error) { return nil, errors.New("boom") }

func newModel(t *testing.T, v Variant, stats *features.Statistics) Trainable {
	t.Helper()
	m, err := New(v, stats, Options{Encoder: letterEncoder{}, Seed: 1})
	require.NoError(t, err)
	return m
}

func TestParseVariant(t *testing.T) {
	tests := map[string]Variant{
		"tribrid":         TriBranch,
		"":                TriBranch,
		"TOKEN":           TokenOnly,
		"token_char":      TokenChar,
		"token_and_chars": TokenChar,
	}
	for in, want := range tests {
		got, err := ParseVariant(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseVariant("transformer")
	assert.True(t, errors.Is(err, ErrUnknownVariant))
}

func TestNew_EncoderRequired(t *testing.T) {
	stats, _ := fixture(t)
	for _, v := range []Variant{TokenOnly, TokenChar} {
		_, err := New(v, stats, Options{})
		assert.True(t, errors.Is(err, encoder.ErrUnavailable), v)
	}
	_, err := New(TriBranch, stats, Options{})
	assert.NoError(t, err)

	_, err = New("bogus", stats, Options{})
	assert.True(t, errors.Is(err, ErrUnknownVariant))
}

func TestNew_InvalidStatistics(t *testing.T) {
	_, err := New(TriBranch, &features.Statistics{}, Options{})
	assert.Error(t, err)
}

func TestPredict_ProbabilityRows(t *testing.T) {
	stats, b := fixture(t)
	for _, v := range Variants {
		t.Run(string(v), func(t *testing.T) {
			m := newModel(t, v, stats)
			assert.Equal(t, v, m.Variant())

			probs, err := m.Predict(b)
			require.NoError(t, err)
			require.Len(t, probs, b.Len())
			for _, row := range probs {
				require.Len(t, row, 5)
				var sum float64
				for _, p := range row {
					assert.GreaterOrEqual(t, p, float32(0))
					sum += float64(p)
				}
				assert.InDelta(t, 1, sum, 1e-5)
			}
		})
	}
}

func TestPredict_EmptyBundle(t *testing.T) {
	stats, _ := fixture(t)
	probs, err := newModel(t, TriBranch, stats).Predict(features.Bundle{})
	require.NoError(t, err)
	assert.Empty(t, probs)
}

func TestPredict_Deterministic(t *testing.T) {
	stats, b := fixture(t)
	p1, err := newModel(t, TriBranch, stats).Predict(b)
	require.NoError(t, err)
	p2, err := newModel(t, TriBranch, stats).Predict(b)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestPredict_EncoderFailure(t *testing.T) {
	stats, b := fixture(t)
	m, err := New(TokenOnly, stats, Options{Encoder: failingEncoder{}})
	require.NoError(t, err)
	_, err = m.Predict(b)
	assert.ErrorContains(t, err, "boom")
}

func TestTrainStep_ReducesLoss(t *testing.T) {
	stats, b := fixture(t)
	for _, v := range Variants {
		t.Run(string(v), func(t *testing.T) {
			m := newModel(t, v, stats)
			before, err := m.Evaluate(b)
			require.NoError(t, err)

			for range 30 {
				_, err := m.TrainStep(b)
				require.NoError(t, err)
			}
			after, err := m.Evaluate(b)
			require.NoError(t, err)
			assert.Less(t, after.Loss(), before.Loss())
			assert.Equal(t, b.Len(), after.Count)
		})
	}
}

func TestTrainStep_RequiresLabels(t *testing.T) {
	stats, b := fixture(t)
	b.Labels = nil
	m := newModel(t, TriBranch, stats)
	_, err := m.TrainStep(b)
	assert.Error(t, err)
	_, err = m.Evaluate(b)
	assert.Error(t, err)
}

func TestParams_UniqueNames(t *testing.T) {
	stats, _ := fixture(t)
	for _, v := range Variants {
		seen := map[string]bool{}
		for _, p := range newModel(t, v, stats).Params() {
			assert.False(t, seen[p.Name], "%s: duplicate %s", v, p.Name)
			seen[p.Name] = true
		}
	}
}

func TestSummary(t *testing.T) {
	stats, _ := fixture(t)
	m := newModel(t, TriBranch, stats)
	s := m.Summary()

	assert.Contains(t, s, `Model: "tribrid"`)
	for _, name := range []string{"token_embed", "token_lstm_1", "char_bi_lstm_2", "line_number_dense_2", "output_layer"} {
		assert.Contains(t, s, name)
	}
	assert.Contains(t, s, "Total params: "+itoa(nn.CountParams(m.Params())))
}

func TestLearningRate(t *testing.T) {
	stats, _ := fixture(t)
	m := newModel(t, TokenOnly, stats)
	assert.Equal(t, nn.DefaultLearningRate, m.LearningRate())
	m.SetLearningRate(1e-4)
	assert.Equal(t, 1e-4, m.LearningRate())
}

func TestMetrics(t *testing.T) {
	var m Metrics
	assert.Zero(t, m.Loss())
	assert.Zero(t, m.Accuracy())
	m.Add(Metrics{LossSum: 2, Correct: 1, Count: 2})
	m.Add(Metrics{LossSum: 1, Correct: 2, Count: 2})
	assert.InDelta(t, 0.75, m.Loss(), 1e-9)
	assert.InDelta(t, 0.75, m.Accuracy(), 1e-9)
}

func itoa(n int) string { return strconv.Itoa(n) }
