package nn

import "math"

// probEpsilon bounds probabilities away from 0 and 1 inside the log.
const probEpsilon = 1e-7

// Softmax returns the row-wise softmax of logits.
func Softmax(logits *Mat) *Mat {
	p := NewMat(logits.Rows, logits.Cols)
	for r := range logits.Rows {
		in, out := logits.Row(r), p.Row(r)
		maxV := in[0]
		for _, v := range in[1:] {
			maxV = max(maxV, v)
		}
		var sum float64
		for j, v := range in {
			e := math.Exp(float64(v - maxV))
			out[j] = float32(e)
			sum += e
		}
		for j := range out {
			out[j] = float32(float64(out[j]) / sum)
		}
	}
	return p
}

// CrossEntropy returns the mean categorical cross-entropy of probs against
// one-hot targets, and the gradient with respect to the pre-softmax logits.
func CrossEntropy(probs, targets *Mat) (float64, *Mat) {
	grad := NewMat(probs.Rows, probs.Cols)
	if probs.Rows == 0 {
		return 0, grad
	}
	var loss float64
	inv := float32(1) / float32(probs.Rows)
	for r := range probs.Rows {
		p, y, g := probs.Row(r), targets.Row(r), grad.Row(r)
		for j := range p {
			if y[j] != 0 {
				pc := min(max(float64(p[j]), probEpsilon), 1-probEpsilon)
				loss -= float64(y[j]) * math.Log(pc)
			}
			g[j] = (p[j] - y[j]) * inv
		}
	}
	return loss / float64(probs.Rows), grad
}

// Argmax returns the index of the largest value in v.
func Argmax(v []float32) int {
	best := 0
	for i, x := range v[1:] {
		if x > v[best] {
			best = i + 1
		}
	}
	return best
}

// Correct counts rows whose argmax matches the target argmax.
func Correct(probs, targets *Mat) int {
	n := 0
	for r := range probs.Rows {
		if Argmax(probs.Row(r)) == Argmax(targets.Row(r)) {
			n++
		}
	}
	return n
}
