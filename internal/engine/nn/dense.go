package nn

import "math/rand"

// Activation is an elementwise nonlinearity applied by Dense.
type Activation int

const (
	Linear Activation = iota
	ReLU
)

func (a Activation) String() string {
	if a == ReLU {
		return "relu"
	}
	return "linear"
}

// Dense is a fully connected layer y = act(xW + b).
type Dense struct {
	Name    string
	In, Out int
	Act     Activation
	W, B    *Param

	x, y *Mat
}

// NewDense creates a layer with Glorot-uniform kernel and zero bias.
func NewDense(name string, in, out int, act Activation, rng *rand.Rand) *Dense {
	d := &Dense{
		Name: name,
		In:   in,
		Out:  out,
		Act:  act,
		W:    NewParam(name+"/kernel", in, out),
		B:    NewParam(name+"/bias", out),
	}
	glorotUniform(d.W, in, out, rng)
	return d
}

// Params implements Layer.
func (d *Dense) Params() []*Param { return []*Param{d.W, d.B} }

// Forward computes the layer output for x [batch x In].
func (d *Dense) Forward(x *Mat) *Mat {
	y := NewMat(x.Rows, d.Out)
	mulAdd(y.Data, x.Data, d.W.Data, x.Rows, d.In, d.Out)
	addBias(y, d.B.Data)
	if d.Act == ReLU {
		for i, v := range y.Data {
			if v < 0 {
				y.Data[i] = 0
			}
		}
	}
	d.x, d.y = x, y
	return y
}

// Backward accumulates parameter gradients and returns dL/dx.
func (d *Dense) Backward(dy *Mat) *Mat {
	dz := dy
	if d.Act == ReLU {
		dz = dy.Clone()
		for i, v := range d.y.Data {
			if v <= 0 {
				dz.Data[i] = 0
			}
		}
	}
	mulAddTransA(d.W.Grad, d.x.Data, dz.Data, dz.Rows, d.In, d.Out)
	sumRows(d.B.Grad, dz)
	dx := NewMat(dz.Rows, d.In)
	mulAddTransB(dx.Data, dz.Data, d.W.Data, dz.Rows, d.In, d.Out)
	return dx
}
