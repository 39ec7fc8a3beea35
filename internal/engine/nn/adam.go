package nn

import "math"

// Adam defaults.
const (
	DefaultLearningRate = 1e-3
	DefaultBeta1        = 0.9
	DefaultBeta2        = 0.999
	DefaultEpsilon      = 1e-7
)

// Adam updates parameters with bias-corrected first and second moment
// estimates of their gradients.
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	params []*Param
	m, v   [][]float32
	t      int
}

// NewAdam creates an optimizer over params with the default moments.
func NewAdam(params []*Param, lr float64) *Adam {
	a := &Adam{
		LR:      lr,
		Beta1:   DefaultBeta1,
		Beta2:   DefaultBeta2,
		Epsilon: DefaultEpsilon,
		params:  params,
		m:       make([][]float32, len(params)),
		v:       make([][]float32, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float32, p.Size())
		a.v[i] = make([]float32, p.Size())
	}
	return a
}

// Iterations returns the number of steps taken.
func (a *Adam) Iterations() int { return a.t }

// Step applies one update from the accumulated gradients, then clears them.
func (a *Adam) Step() {
	a.t++
	lrT := a.LR * math.Sqrt(1-math.Pow(a.Beta2, float64(a.t))) / (1 - math.Pow(a.Beta1, float64(a.t)))
	b1, b2 := float32(a.Beta1), float32(a.Beta2)
	for i, p := range a.params {
		m, v := a.m[i], a.v[i]
		for j, g := range p.Grad {
			m[j] = b1*m[j] + (1-b1)*g
			v[j] = b2*v[j] + (1-b2)*g*g
			p.Data[j] -= float32(lrT * float64(m[j]) / (math.Sqrt(float64(v[j])) + a.Epsilon))
		}
		p.ZeroGrad()
	}
}
