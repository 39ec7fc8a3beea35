package nn

import (
	"math"
	"math/rand"
)

// Param is a named trainable tensor with its gradient buffer.
type Param struct {
	Name  string
	Shape []int
	Data  []float32
	Grad  []float32
}

// NewParam allocates a zeroed parameter.
func NewParam(name string, shape ...int) *Param {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Param{
		Name:  name,
		Shape: shape,
		Data:  make([]float32, n),
		Grad:  make([]float32, n),
	}
}

// Size returns the number of scalars.
func (p *Param) Size() int { return len(p.Data) }

// ZeroGrad clears the gradient.
func (p *Param) ZeroGrad() {
	clear(p.Grad)
}

// Layer is anything that owns parameters.
type Layer interface {
	Params() []*Param
}

// CollectParams flattens the parameters of layers in order.
func CollectParams(layers ...Layer) []*Param {
	var ps []*Param
	for _, l := range layers {
		ps = append(ps, l.Params()...)
	}
	return ps
}

// CountParams returns the total number of scalars in ps.
func CountParams(ps []*Param) int {
	n := 0
	for _, p := range ps {
		n += p.Size()
	}
	return n
}

// ZeroGrads clears every gradient in ps.
func ZeroGrads(ps []*Param) {
	for _, p := range ps {
		p.ZeroGrad()
	}
}

// glorotUniform fills p with U(-limit, limit), limit = sqrt(6/(fanIn+fanOut)).
func glorotUniform(p *Param, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	uniform(p, limit, rng)
}

func uniform(p *Param, limit float64, rng *rand.Rand) {
	for i := range p.Data {
		p.Data[i] = float32((rng.Float64()*2 - 1) * limit)
	}
}
