package classifier

import (
	"math/rand"

	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
)

// tokenChar fuses the frozen sentence embedding with a single-layer
// character branch, without positional features.
//
//	token:  encoder → dense 256 → 128
//	char:   vectorize → embed 25 → BiLSTM 128 → dense 128
//	fusion: concat → dropout 0.5 → head
type tokenChar struct {
	sent      sentenceInput
	tokDense  denseStack
	chars     *charBranch
	charDense *nn.Dense
	dropout   *nn.Dropout
	head      *fusionHead
}

func newTokenChar(stats *features.Statistics, enc encoder.Encoder, classes int, rng *rand.Rand) *tokenChar {
	t := &tokenChar{
		sent:     sentenceInput{enc: enc},
		tokDense: newDenseStack("token_dense", enc.Dim(), []int{256, 128}, nn.ReLU, rng),
		chars:    newCharBranch(stats, []int{128}, rng),
	}
	t.charDense = nn.NewDense("char_dense", t.chars.out(), 128, nn.ReLU, rng)
	t.dropout = nn.NewDropout(0.5, rng)
	t.head = newFusionHead(t.tokDense.out()+t.charDense.Out, classes, rng)
	return t
}

func (t *tokenChar) forward(b features.Bundle, training bool) (*nn.Mat, error) {
	x, err := t.sent.forward(b.Tokens)
	if err != nil {
		return nil, err
	}
	tok := t.tokDense.forward(x)
	chars := t.charDense.Forward(t.chars.forward(b.Chars))
	return t.head.forward(t.dropout.Forward(nn.ConcatCols(tok, chars), training)), nil
}

func (t *tokenChar) backward(dlogits *nn.Mat) {
	d := t.dropout.Backward(t.head.backward(dlogits))
	parts := nn.SplitCols(d, t.tokDense.out(), t.charDense.Out)
	t.tokDense.backward(parts[0])
	t.chars.backward(t.charDense.Backward(parts[1]))
}

func (t *tokenChar) params() []*nn.Param {
	ps := t.tokDense.params()
	ps = append(ps, t.chars.params()...)
	ps = append(ps, t.charDense.Params()...)
	return append(ps, t.head.params()...)
}

func (t *tokenChar) layers() []layerInfo {
	out := []layerInfo{t.sent.layer()}
	out = append(out, t.tokDense.layers()...)
	out = append(out, t.chars.layers()...)
	out = append(out,
		layerInfo{Name: t.charDense.Name, Kind: "Dense/relu", Shape: shape(t.charDense.Out), Params: nn.CountParams(t.charDense.Params())},
		layerInfo{Name: "concatenation_layer", Kind: "Concatenate", Shape: shape(t.tokDense.out() + t.charDense.Out)},
		layerInfo{Name: "dropout", Kind: "Dropout(0.5)", Shape: shape(t.tokDense.out() + t.charDense.Out)},
	)
	return append(out, t.head.layers()...)
}
