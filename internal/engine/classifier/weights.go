package classifier

import (
	"fmt"
	"slices"

	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/safetensors"
)

// ExportWeights copies the parameters of ps into a safetensors file keyed by
// parameter name.
func ExportWeights(ps []*nn.Param) *safetensors.File {
	f := &safetensors.File{Tensors: make(map[string]safetensors.Tensor, len(ps))}
	for _, p := range ps {
		f.Tensors[p.Name] = safetensors.Tensor{
			Shape: slices.Clone(p.Shape),
			Data:  slices.Clone(p.Data),
		}
	}
	return f
}

// ImportWeights overwrites ps with the tensors of f. Every parameter must be
// present with a matching shape; extra tensors are an error too, since they
// mean f was saved from a different architecture.
func ImportWeights(ps []*nn.Param, f *safetensors.File) error {
	if len(f.Tensors) != len(ps) {
		return fmt.Errorf("classifier: weights hold %d tensors, model has %d parameters", len(f.Tensors), len(ps))
	}
	for _, p := range ps {
		t, ok := f.Tensors[p.Name]
		if !ok {
			return fmt.Errorf("classifier: weights missing %q", p.Name)
		}
		if !slices.Equal(t.Shape, p.Shape) || len(t.Data) != len(p.Data) {
			return fmt.Errorf("classifier: %q has shape %v, want %v", p.Name, t.Shape, p.Shape)
		}
	}
	for _, p := range ps {
		copy(p.Data, f.Tensors[p.Name].Data)
	}
	return nil
}
