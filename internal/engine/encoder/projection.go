package encoder

import (
	"fmt"

	"github.com/crimson-sun/skimmer/internal/safetensors"
)

// projectionTensor is the weight name sentence-transformers uses for its
// Dense module.
const projectionTensor = "linear.weight"

// projection is a bias-free linear map stored as [outDim, inDim].
type projection struct {
	weights []float32
	inDim   int
	outDim  int
}

func loadProjection(path string) (*projection, error) {
	f, err := safetensors.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	t, ok := f.Tensors[projectionTensor]
	if !ok {
		return nil, fmt.Errorf("projection: tensor %q not found", projectionTensor)
	}
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("projection: expected 2D tensor, got shape %v", t.Shape)
	}
	return &projection{weights: t.Data, outDim: t.Shape[0], inDim: t.Shape[1]}, nil
}

func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	for i := range out {
		row := p.weights[i*p.inDim : (i+1)*p.inDim]
		var sum float32
		for j, w := range row {
			sum += w * vec[j]
		}
		out[i] = sum
	}
	return out
}
