package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/skimmer/internal/features"
	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/segment"
)

// recordingSegmenter splits on " | " and records every call.
type recordingSegmenter struct {
	calls []string
}

func (r *recordingSegmenter) Segment(text string) []string {
	r.calls = append(r.calls, text)
	var out []string
	for _, s := range strings.Split(text, " | ") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scriptedPredictor returns one-hot rows for a fixed label sequence and
// records the bundles it sees.
type scriptedPredictor struct {
	labels  features.LabelEncoder
	script  []string
	bundles []features.Bundle
}

func (p *scriptedPredictor) Predict(b features.Bundle) ([][]float32, error) {
	p.bundles = append(p.bundles, b)
	rows := make([][]float32, b.Len())
	for i := range rows {
		row, err := p.labels.Encode(p.script[i%len(p.script)])
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func statistics(t *testing.T) *features.Statistics {
	t.Helper()
	var recs []model.LineRecord
	for i, r := range model.Roles {
		recs = append(recs, model.LineRecord{Target: r, Text: "sentence " + r, LineNumber: i, TotalLines: 4})
	}
	stats, err := features.Fit(recs, features.FitOptions{PositionPolicy: features.PolicyClip})
	require.NoError(t, err)
	return stats
}

func TestClassify_GroupsPreserveOrder(t *testing.T) {
	stats := statistics(t)
	seg := &recordingSegmenter{}
	pred := &scriptedPredictor{labels: stats.Labels, script: []string{model.Objective, model.Methods, model.Results}}
	p := New(seg, stats, pred)

	res, err := p.Classify(context.Background(), "We aimed to test X. | We randomised 40 adults. | X improved outcomes.")
	require.NoError(t, err)

	assert.Equal(t, []string{"We aimed to test X."}, res.Sections[model.Objective])
	assert.Equal(t, []string{"We randomised 40 adults."}, res.Sections[model.Methods])
	assert.Equal(t, []string{"X improved outcomes."}, res.Sections[model.Results])
	assert.Empty(t, res.Sections[model.Background])
	assert.NotNil(t, res.Sections[model.Conclusions])

	total := 0
	for _, sents := range res.Sections {
		total += len(sents)
	}
	assert.Equal(t, 3, total)

	require.Len(t, res.Sentences, 3)
	assert.Equal(t, model.Methods, res.Sentences[1].Label)
	assert.Equal(t, 1, res.Sentences[1].LineNumber)
	assert.InDelta(t, 1, res.Sentences[1].Confidence, 1e-9)

	// The whole abstract is predicted as one batch.
	require.Len(t, pred.bundles, 1)
	assert.Equal(t, 3, pred.bundles[0].Len())
	assert.Equal(t, "we aimed to test x.", pred.bundles[0].Tokens[0])
}

func TestClassify_SameLabelKeepsOriginalOrder(t *testing.T) {
	stats := statistics(t)
	pred := &scriptedPredictor{labels: stats.Labels, script: []string{model.Methods, model.Results}}
	p := New(&recordingSegmenter{}, stats, pred)

	res, err := p.Classify(context.Background(), "a | b | c | d | e")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "e"}, res.Sections[model.Methods])
	assert.Equal(t, []string{"b", "d"}, res.Sections[model.Results])
}

func TestClassify_EmptyInputNeverSegments(t *testing.T) {
	stats := statistics(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		seg := &recordingSegmenter{}
		pred := &scriptedPredictor{labels: stats.Labels, script: []string{model.Methods}}
		p := New(seg, stats, pred)

		_, err := p.Classify(context.Background(), text)
		assert.True(t, errors.Is(err, ErrNoInput), "%q", text)
		assert.Empty(t, seg.calls)
		assert.Empty(t, pred.bundles)
	}
}

func TestClassify_NoSentences(t *testing.T) {
	stats := statistics(t)
	p := New(&recordingSegmenter{}, stats, &scriptedPredictor{labels: stats.Labels, script: []string{model.Methods}})
	_, err := p.Classify(context.Background(), " | ")
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestClassify_CancelledContext(t *testing.T) {
	stats := statistics(t)
	pred := &scriptedPredictor{labels: stats.Labels, script: []string{model.Methods}}
	p := New(&recordingSegmenter{}, stats, pred)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Classify(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pred.bundles)
}

func TestClassify_RejectPolicySurfacesLongAbstracts(t *testing.T) {
	stats := statistics(t)
	stats.PositionPolicy = features.PolicyReject
	p := New(&recordingSegmenter{}, stats, &scriptedPredictor{labels: stats.Labels, script: []string{model.Methods}})

	text := strings.Repeat("s | ", 16) + "s"
	_, err := p.Classify(context.Background(), text)
	assert.ErrorIs(t, err, features.ErrPositionOutOfRange)
}

func TestRecords(t *testing.T) {
	recs := Records([]string{"First One.", "Second."})
	assert.Equal(t, []model.LineRecord{
		{Text: "first one.", LineNumber: 0, TotalLines: 1},
		{Text: "second.", LineNumber: 1, TotalLines: 1},
	}, recs)
}

func TestClassifyAbstract_WithRuleSegmenter(t *testing.T) {
	stats := statistics(t)
	pred := &scriptedPredictor{labels: stats.Labels, script: []string{model.Background, model.Conclusions}}
	p := New(segment.New(), stats, pred)

	out, err := p.ClassifyAbstract(context.Background(), model.Abstract{
		ID:     "42",
		Source: "file",
		Text:   "Pain is common. Drug A helps.",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", out.ID)
	assert.Equal(t, "file", out.Source)
	assert.Equal(t, []string{"Pain is common."}, out.Sections[model.Background])
	assert.Equal(t, []string{"Drug A helps."}, out.Sections[model.Conclusions])
}
