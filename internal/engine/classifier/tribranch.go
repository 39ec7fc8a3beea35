package classifier

import (
	"math/rand"

	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
)

// triBranch fuses a token branch, a character branch and two positional
// branches.
//
//	token:  vectorize → embed 128 → LSTM 256 (seq) → LSTM 128 → dense 128 → 64 → 64
//	char:   vectorize → embed 25 → BiLSTM 64 (seq) → BiLSTM 64
//	line:   one-hot 15 → dense 64 → 64
//	total:  one-hot 20 → dense 64 → 64
//	fusion: concat(token, char) → dense 256 → 128 → dropout 0.2
//	        → concat(line, total, fusion) → head
type triBranch struct {
	tokVec   features.Vectorizer
	tokEmbed *nn.Embedding
	tokLSTM1 *nn.LSTM
	tokLSTM2 *nn.LSTM
	tokDense denseStack

	chars *charBranch

	line  denseStack
	total denseStack

	hybrid  denseStack
	dropout *nn.Dropout
	head    *fusionHead
}

func newTriBranch(stats *features.Statistics, classes int, rng *rand.Rand) *triBranch {
	t := &triBranch{
		tokVec:   stats.TokenVectorizer(),
		tokEmbed: nn.NewEmbedding("token_embed", stats.TokenVocab.Size(), tokenEmbedDim, rng),
		tokLSTM1: nn.NewLSTM("token_lstm_1", tokenEmbedDim, 256, true, rng),
		tokLSTM2: nn.NewLSTM("token_lstm_2", 256, 128, false, rng),
		tokDense: newDenseStack("token_dense", 128, []int{128, 64, 64}, nn.ReLU, rng),
		chars:    newCharBranch(stats, []int{64, 64}, rng),
		line:     newDenseStack("line_number_dense", stats.LineNumberDepth, []int{64, 64}, nn.ReLU, rng),
		total:    newDenseStack("total_lines_dense", stats.TotalLinesDepth, []int{64, 64}, nn.ReLU, rng),
	}
	t.hybrid = newDenseStack("hybrid_dense", t.tokDense.out()+t.chars.out(), []int{256, 128}, nn.ReLU, rng)
	t.dropout = nn.NewDropout(0.2, rng)
	t.head = newFusionHead(t.line.out()+t.total.out()+t.hybrid.out(), classes, rng)
	return t
}

func (t *triBranch) forward(b features.Bundle, training bool) (*nn.Mat, error) {
	ids := t.tokVec.TransformBatch(b.Tokens)
	seq := t.tokEmbed.Forward(ids, b.Len(), t.tokVec.Width)
	seq = t.tokLSTM1.Forward(seq)
	tok := t.tokDense.forward(t.tokLSTM2.Forward(seq)[0])

	chars := t.chars.forward(b.Chars)

	hybrid := t.dropout.Forward(t.hybrid.forward(nn.ConcatCols(tok, chars)), training)

	line := t.line.forward(nn.FromRows(b.LineNumbers))
	total := t.total.forward(nn.FromRows(b.TotalLines))

	return t.head.forward(nn.ConcatCols(line, total, hybrid)), nil
}

func (t *triBranch) backward(dlogits *nn.Mat) {
	d := nn.SplitCols(t.head.backward(dlogits), t.line.out(), t.total.out(), t.hybrid.out())
	t.line.backward(d[0])
	t.total.backward(d[1])

	dh := t.hybrid.backward(t.dropout.Backward(d[2]))
	parts := nn.SplitCols(dh, t.tokDense.out(), t.chars.out())

	dtok := t.tokDense.backward(parts[0])
	dseq := t.tokLSTM2.Backward([]*nn.Mat{dtok})
	dseq = t.tokLSTM1.Backward(dseq)
	t.tokEmbed.Backward(dseq)

	t.chars.backward(parts[1])
}

func (t *triBranch) params() []*nn.Param {
	ps := nn.CollectParams(t.tokEmbed, t.tokLSTM1, t.tokLSTM2)
	ps = append(ps, t.tokDense.params()...)
	ps = append(ps, t.chars.params()...)
	ps = append(ps, t.line.params()...)
	ps = append(ps, t.total.params()...)
	ps = append(ps, t.hybrid.params()...)
	return append(ps, t.head.params()...)
}

func (t *triBranch) layers() []layerInfo {
	w := t.tokVec.Width
	out := []layerInfo{
		{Name: "token_vectorizer", Kind: "TextVectorization", Shape: shape(w)},
		{Name: t.tokEmbed.Name, Kind: "Embedding", Shape: shape(w, tokenEmbedDim), Params: nn.CountParams(t.tokEmbed.Params())},
		{Name: t.tokLSTM1.Name, Kind: "LSTM", Shape: shape(w, 256), Params: nn.CountParams(t.tokLSTM1.Params())},
		{Name: t.tokLSTM2.Name, Kind: "LSTM", Shape: shape(128), Params: nn.CountParams(t.tokLSTM2.Params())},
	}
	out = append(out, t.tokDense.layers()...)
	out = append(out, t.chars.layers()...)
	out = append(out, t.line.layers()...)
	out = append(out, t.total.layers()...)
	out = append(out, layerInfo{Name: "token_char_hybrid_embedding", Kind: "Concatenate", Shape: shape(t.tokDense.out() + t.chars.out())})
	out = append(out, t.hybrid.layers()...)
	out = append(out,
		layerInfo{Name: "dropout", Kind: "Dropout(0.2)", Shape: shape(t.hybrid.out())},
		layerInfo{Name: "token_char_positional_embedding", Kind: "Concatenate", Shape: shape(t.line.out() + t.total.out() + t.hybrid.out())},
	)
	return append(out, t.head.layers()...)
}
