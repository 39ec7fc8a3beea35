package classifier

import (
	"math/rand"

	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
)

// tokenOnly classifies the frozen sentence embedding directly:
// encoder → head.
type tokenOnly struct {
	sent sentenceInput
	head *fusionHead
}

func newTokenOnly(enc encoder.Encoder, classes int, rng *rand.Rand) *tokenOnly {
	return &tokenOnly{
		sent: sentenceInput{enc: enc},
		head: newFusionHead(enc.Dim(), classes, rng),
	}
}

func (t *tokenOnly) forward(b features.Bundle, _ bool) (*nn.Mat, error) {
	x, err := t.sent.forward(b.Tokens)
	if err != nil {
		return nil, err
	}
	return t.head.forward(x), nil
}

func (t *tokenOnly) backward(dlogits *nn.Mat) {
	t.head.backward(dlogits)
}

func (t *tokenOnly) params() []*nn.Param { return t.head.params() }

func (t *tokenOnly) layers() []layerInfo {
	return append([]layerInfo{t.sent.layer()}, t.head.layers()...)
}
