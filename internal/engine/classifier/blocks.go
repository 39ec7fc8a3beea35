package classifier

import (
	"fmt"
	"math/rand"

	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
)

// Layer widths shared across variants.
const (
	tokenEmbedDim = 128
	charEmbedDim  = 25
	headHidden    = 128
)

// layerInfo is one row of a model summary.
type layerInfo struct {
	Name   string
	Kind   string
	Shape  string
	Params int
}

func shape(dims ...int) string {
	s := "(None"
	for _, d := range dims {
		s += fmt.Sprintf(", %d", d)
	}
	return s + ")"
}

// denseStack is a chain of dense layers.
type denseStack []*nn.Dense

func newDenseStack(prefix string, in int, widths []int, act nn.Activation, rng *rand.Rand) denseStack {
	s := make(denseStack, len(widths))
	for i, w := range widths {
		s[i] = nn.NewDense(fmt.Sprintf("%s_%d", prefix, i+1), in, w, act, rng)
		in = w
	}
	return s
}

func (s denseStack) out() int { return s[len(s)-1].Out }

func (s denseStack) forward(x *nn.Mat) *nn.Mat {
	for _, d := range s {
		x = d.Forward(x)
	}
	return x
}

func (s denseStack) backward(dy *nn.Mat) *nn.Mat {
	for i := len(s) - 1; i >= 0; i-- {
		dy = s[i].Backward(dy)
	}
	return dy
}

func (s denseStack) params() []*nn.Param {
	var ps []*nn.Param
	for _, d := range s {
		ps = append(ps, d.Params()...)
	}
	return ps
}

func (s denseStack) layers() []layerInfo {
	out := make([]layerInfo, len(s))
	for i, d := range s {
		out[i] = layerInfo{Name: d.Name, Kind: "Dense/" + d.Act.String(), Shape: shape(d.Out), Params: nn.CountParams(d.Params())}
	}
	return out
}

// fusionHead is the classifier tail every variant ends in: a 128-unit ReLU
// layer and a linear output layer whose softmax is applied by the caller.
type fusionHead struct {
	hidden, output *nn.Dense
}

func newFusionHead(in, classes int, rng *rand.Rand) *fusionHead {
	return &fusionHead{
		hidden: nn.NewDense("output_layer_0", in, headHidden, nn.ReLU, rng),
		output: nn.NewDense("output_layer", headHidden, classes, nn.Linear, rng),
	}
}

func (h *fusionHead) forward(x *nn.Mat) *nn.Mat {
	return h.output.Forward(h.hidden.Forward(x))
}

func (h *fusionHead) backward(dlogits *nn.Mat) *nn.Mat {
	return h.hidden.Backward(h.output.Backward(dlogits))
}

func (h *fusionHead) params() []*nn.Param {
	return append(h.hidden.Params(), h.output.Params()...)
}

func (h *fusionHead) layers() []layerInfo {
	return []layerInfo{
		{Name: h.hidden.Name, Kind: "Dense/relu", Shape: shape(h.hidden.Out), Params: nn.CountParams(h.hidden.Params())},
		{Name: h.output.Name, Kind: "Dense/softmax", Shape: shape(h.output.Out), Params: nn.CountParams(h.output.Params())},
	}
}

// charBranch vectorizes character-split text, embeds it and runs it through
// stacked bidirectional LSTMs; all but the last return sequences.
type charBranch struct {
	vec   features.Vectorizer
	embed *nn.Embedding
	bis   []*nn.Bidirectional
}

func newCharBranch(stats *features.Statistics, units []int, rng *rand.Rand) *charBranch {
	cb := &charBranch{
		vec:   stats.CharVectorizer(),
		embed: nn.NewEmbedding("char_embed", stats.CharVocabSize, charEmbedDim, rng),
	}
	in := charEmbedDim
	for i, u := range units {
		bi := nn.NewBidirectional(fmt.Sprintf("char_bi_lstm_%d", i+1), in, u, i < len(units)-1, rng)
		cb.bis = append(cb.bis, bi)
		in = bi.Out()
	}
	return cb
}

func (cb *charBranch) out() int { return cb.bis[len(cb.bis)-1].Out() }

func (cb *charBranch) forward(chars []string) *nn.Mat {
	ids := cb.vec.TransformBatch(chars)
	seq := cb.embed.Forward(ids, len(chars), cb.vec.Width)
	for _, bi := range cb.bis {
		seq = bi.Forward(seq)
	}
	return seq[0]
}

func (cb *charBranch) backward(dy *nn.Mat) {
	dseq := []*nn.Mat{dy}
	for i := len(cb.bis) - 1; i >= 0; i-- {
		dseq = cb.bis[i].Backward(dseq)
	}
	cb.embed.Backward(dseq)
}

func (cb *charBranch) params() []*nn.Param {
	ps := cb.embed.Params()
	for _, bi := range cb.bis {
		ps = append(ps, bi.Params()...)
	}
	return ps
}

func (cb *charBranch) layers() []layerInfo {
	out := []layerInfo{
		{Name: "char_vectorizer", Kind: "TextVectorization", Shape: shape(cb.vec.Width)},
		{Name: cb.embed.Name, Kind: "Embedding", Shape: shape(cb.vec.Width, cb.embed.Dim), Params: nn.CountParams(cb.embed.Params())},
	}
	for i, bi := range cb.bis {
		s := shape(bi.Out())
		if i < len(cb.bis)-1 {
			s = shape(cb.vec.Width, bi.Out())
		}
		out = append(out, layerInfo{Name: bi.Name, Kind: "Bidirectional/LSTM", Shape: s, Params: nn.CountParams(bi.Params())})
	}
	return out
}

// sentenceInput embeds raw sentences with the frozen encoder.
type sentenceInput struct {
	enc encoder.Encoder
}

func (s sentenceInput) forward(texts []string) (*nn.Mat, error) {
	vecs, err := s.enc.Encode(texts)
	if err != nil {
		return nil, fmt.Errorf("classifier: encode sentences: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("classifier: encoder returned %d vectors for %d sentences", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != s.enc.Dim() {
			return nil, fmt.Errorf("classifier: sentence %d: encoder vector has %d dims, want %d", i, len(v), s.enc.Dim())
		}
	}
	return nn.FromRows(vecs), nil
}

func (s sentenceInput) layer() layerInfo {
	return layerInfo{Name: "sentence_encoder", Kind: "Pretrained (frozen)", Shape: shape(s.enc.Dim())}
}
