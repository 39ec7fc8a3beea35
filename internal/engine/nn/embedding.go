package nn

import "math/rand"

// Embedding maps integer IDs to dense vectors.
type Embedding struct {
	Name       string
	Vocab, Dim int
	W          *Param

	ids          []int32
	batch, steps int
}

// NewEmbedding creates a [vocab x dim] table initialized U(-0.05, 0.05).
func NewEmbedding(name string, vocab, dim int, rng *rand.Rand) *Embedding {
	e := &Embedding{
		Name:  name,
		Vocab: vocab,
		Dim:   dim,
		W:     NewParam(name+"/embeddings", vocab, dim),
	}
	uniform(e.W, 0.05, rng)
	return e
}

// Params implements Layer.
func (e *Embedding) Params() []*Param { return []*Param{e.W} }

func (e *Embedding) row(id int32) int {
	if int(id) >= e.Vocab || id < 0 {
		return 1
	}
	return int(id)
}

// Forward looks up ids, a flat [batch x steps] slice, and returns one
// [batch x Dim] matrix per timestep.
func (e *Embedding) Forward(ids []int32, batch, steps int) []*Mat {
	e.ids, e.batch, e.steps = ids, batch, steps
	seq := make([]*Mat, steps)
	for t := range steps {
		m := NewMat(batch, e.Dim)
		for b := range batch {
			r := e.row(ids[b*steps+t])
			copy(m.Row(b), e.W.Data[r*e.Dim:(r+1)*e.Dim])
		}
		seq[t] = m
	}
	return seq
}

// Backward scatters the per-timestep gradients into the table.
func (e *Embedding) Backward(dseq []*Mat) {
	for t, dm := range dseq {
		for b := range e.batch {
			r := e.row(e.ids[b*e.steps+t])
			g := e.W.Grad[r*e.Dim : (r+1)*e.Dim]
			for j, v := range dm.Row(b) {
				g[j] += v
			}
		}
	}
}
