package nn

import "math/rand"

// Dropout zeroes a fraction Rate of activations during training and scales
// the survivors by 1/(1-Rate). At inference it is the identity.
type Dropout struct {
	Rate float64
	rng  *rand.Rand
	mask []float32
}

// NewDropout creates a dropout layer drawing masks from rng.
func NewDropout(rate float64, rng *rand.Rand) *Dropout {
	return &Dropout{Rate: rate, rng: rng}
}

// Forward applies the layer. When training is false x is returned unchanged.
func (d *Dropout) Forward(x *Mat, training bool) *Mat {
	if !training || d.Rate <= 0 {
		d.mask = nil
		return x
	}
	scale := float32(1 / (1 - d.Rate))
	d.mask = make([]float32, len(x.Data))
	y := NewMat(x.Rows, x.Cols)
	for i, v := range x.Data {
		if d.rng.Float64() >= d.Rate {
			d.mask[i] = scale
			y.Data[i] = v * scale
		}
	}
	return y
}

// Backward applies the mask of the last Forward to dy.
func (d *Dropout) Backward(dy *Mat) *Mat {
	if d.mask == nil {
		return dy
	}
	dx := NewMat(dy.Rows, dy.Cols)
	for i, v := range dy.Data {
		dx.Data[i] = v * d.mask[i]
	}
	return dx
}
