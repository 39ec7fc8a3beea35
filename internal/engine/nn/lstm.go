package nn

import (
	"math"
	"math/rand"
)

// LSTM is a single recurrent layer. Gates are packed in i, f, c, o order in
// a [In x 4H] input kernel, a [H x 4H] recurrent kernel and a [4H] bias, with
// the forget-gate bias initialized to 1.
type LSTM struct {
	Name            string
	In, Hidden      int
	ReturnSequences bool
	// Reverse processes the sequence from the last timestep to the first.
	// Returned sequences stay in input time order.
	Reverse bool

	W, U, B *Param

	steps []lstmStep
}

// lstmStep caches one timestep for backpropagation.
type lstmStep struct {
	x, hPrev, cPrev *Mat
	i, f, g, o      *Mat
	c, tanhC        *Mat
}

// NewLSTM creates an LSTM layer.
func NewLSTM(name string, in, hidden int, returnSequences bool, rng *rand.Rand) *LSTM {
	l := &LSTM{
		Name:            name,
		In:              in,
		Hidden:          hidden,
		ReturnSequences: returnSequences,
		W:               NewParam(name+"/kernel", in, 4*hidden),
		U:               NewParam(name+"/recurrent_kernel", hidden, 4*hidden),
		B:               NewParam(name+"/bias", 4*hidden),
	}
	glorotUniform(l.W, in, 4*hidden, rng)
	glorotUniform(l.U, hidden, 4*hidden, rng)
	for j := hidden; j < 2*hidden; j++ {
		l.B.Data[j] = 1
	}
	return l
}

// Params implements Layer.
func (l *LSTM) Params() []*Param { return []*Param{l.W, l.U, l.B} }

// timeAt maps processing step k to the input timestep.
func (l *LSTM) timeAt(k, n int) int {
	if l.Reverse {
		return n - 1 - k
	}
	return k
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// Forward runs the layer over xs. It returns one [batch x H] matrix per
// timestep when ReturnSequences is set, otherwise a single-element slice with
// the final hidden state.
func (l *LSTM) Forward(xs []*Mat) []*Mat {
	n := len(xs)
	batch := xs[0].Rows
	H := l.Hidden
	l.steps = make([]lstmStep, n)

	h := NewMat(batch, H)
	c := NewMat(batch, H)
	var outs []*Mat
	if l.ReturnSequences {
		outs = make([]*Mat, n)
	}

	for k := range n {
		t := l.timeAt(k, n)
		x := xs[t]

		z := NewMat(batch, 4*H)
		mulAdd(z.Data, x.Data, l.W.Data, batch, l.In, 4*H)
		mulAdd(z.Data, h.Data, l.U.Data, batch, H, 4*H)
		addBias(z, l.B.Data)

		st := lstmStep{
			x: x, hPrev: h, cPrev: c,
			i: NewMat(batch, H), f: NewMat(batch, H), g: NewMat(batch, H), o: NewMat(batch, H),
			c: NewMat(batch, H), tanhC: NewMat(batch, H),
		}
		hNext := NewMat(batch, H)
		for b := range batch {
			zr := z.Row(b)
			ir, fr, gr, or := st.i.Row(b), st.f.Row(b), st.g.Row(b), st.o.Row(b)
			cp, cr, tc, hr := c.Row(b), st.c.Row(b), st.tanhC.Row(b), hNext.Row(b)
			for j := range H {
				ir[j] = sigmoid(zr[j])
				fr[j] = sigmoid(zr[H+j])
				gr[j] = tanh(zr[2*H+j])
				or[j] = sigmoid(zr[3*H+j])
				cr[j] = fr[j]*cp[j] + ir[j]*gr[j]
				tc[j] = tanh(cr[j])
				hr[j] = or[j] * tc[j]
			}
		}
		l.steps[k] = st
		h, c = hNext, st.c
		if l.ReturnSequences {
			outs[t] = h
		}
	}
	if l.ReturnSequences {
		return outs
	}
	return []*Mat{h}
}

// Backward backpropagates through time. douts must match the shape Forward
// returned. Parameter gradients are accumulated and dL/dx per timestep is
// returned in input time order.
func (l *LSTM) Backward(douts []*Mat) []*Mat {
	n := len(l.steps)
	batch := l.steps[0].x.Rows
	H := l.Hidden
	dxs := make([]*Mat, n)

	dhNext := NewMat(batch, H)
	dcNext := NewMat(batch, H)
	for k := n - 1; k >= 0; k-- {
		t := l.timeAt(k, n)
		st := l.steps[k]

		dh := dhNext
		if l.ReturnSequences {
			for i, v := range douts[t].Data {
				dh.Data[i] += v
			}
		} else if k == n-1 {
			for i, v := range douts[0].Data {
				dh.Data[i] += v
			}
		}

		dz := NewMat(batch, 4*H)
		dcPrev := NewMat(batch, H)
		for b := range batch {
			ir, fr, gr, or := st.i.Row(b), st.f.Row(b), st.g.Row(b), st.o.Row(b)
			cp, tc := st.cPrev.Row(b), st.tanhC.Row(b)
			dhr, dcn, dzr, dcp := dh.Row(b), dcNext.Row(b), dz.Row(b), dcPrev.Row(b)
			for j := range H {
				do := dhr[j] * tc[j]
				dc := dcn[j] + dhr[j]*or[j]*(1-tc[j]*tc[j])
				di := dc * gr[j]
				df := dc * cp[j]
				dg := dc * ir[j]
				dcp[j] = dc * fr[j]

				dzr[j] = di * ir[j] * (1 - ir[j])
				dzr[H+j] = df * fr[j] * (1 - fr[j])
				dzr[2*H+j] = dg * (1 - gr[j]*gr[j])
				dzr[3*H+j] = do * or[j] * (1 - or[j])
			}
		}

		mulAddTransA(l.W.Grad, st.x.Data, dz.Data, batch, l.In, 4*H)
		mulAddTransA(l.U.Grad, st.hPrev.Data, dz.Data, batch, H, 4*H)
		sumRows(l.B.Grad, dz)

		dx := NewMat(batch, l.In)
		mulAddTransB(dx.Data, dz.Data, l.W.Data, batch, l.In, 4*H)
		dxs[t] = dx

		dhNext = NewMat(batch, H)
		mulAddTransB(dhNext.Data, dz.Data, l.U.Data, batch, H, 4*H)
		dcNext = dcPrev
	}
	return dxs
}

// Bidirectional runs a forward and a reversed LSTM over the same input and
// concatenates their outputs feature-wise.
type Bidirectional struct {
	Name     string
	Fwd, Bwd *LSTM
}

// NewBidirectional creates a bidirectional layer with hidden units per
// direction; its output width is 2*hidden.
func NewBidirectional(name string, in, hidden int, returnSequences bool, rng *rand.Rand) *Bidirectional {
	fwd := NewLSTM(name+"/forward_lstm", in, hidden, returnSequences, rng)
	bwd := NewLSTM(name+"/backward_lstm", in, hidden, returnSequences, rng)
	bwd.Reverse = true
	return &Bidirectional{Name: name, Fwd: fwd, Bwd: bwd}
}

// Params implements Layer.
func (b *Bidirectional) Params() []*Param {
	return append(b.Fwd.Params(), b.Bwd.Params()...)
}

// Out returns the output width.
func (b *Bidirectional) Out() int { return 2 * b.Fwd.Hidden }

// Forward runs both directions.
func (b *Bidirectional) Forward(xs []*Mat) []*Mat {
	fo := b.Fwd.Forward(xs)
	bo := b.Bwd.Forward(xs)
	out := make([]*Mat, len(fo))
	for t := range fo {
		out[t] = ConcatCols(fo[t], bo[t])
	}
	return out
}

// Backward splits the gradient between directions and sums their input
// gradients.
func (b *Bidirectional) Backward(douts []*Mat) []*Mat {
	H := b.Fwd.Hidden
	df := make([]*Mat, len(douts))
	db := make([]*Mat, len(douts))
	for t, d := range douts {
		parts := SplitCols(d, H, H)
		df[t], db[t] = parts[0], parts[1]
	}
	dxf := b.Fwd.Backward(df)
	dxb := b.Bwd.Backward(db)
	for t := range dxf {
		for i, v := range dxb[t].Data {
			dxf[t].Data[i] += v
		}
	}
	return dxf
}
