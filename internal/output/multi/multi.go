// Package multi fans classified abstracts out to several sinks, for
// example an NDJSON file and a webhook in the same run.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/output"
)

// Multi delivers every abstract to each wrapped output in order. A failing
// output does not stop delivery to the others.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers a to every output. Errors name the abstract and the
// output's position. Once ctx is done the remaining outputs are skipped.
func (m *Multi) Write(ctx context.Context, a model.ClassifiedAbstract) error {
	var errs []error
	for i, o := range m.outputs {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := o.Write(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("output %d: abstract %s: %w", i, a.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes the outputs in reverse order and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for i := len(m.outputs) - 1; i >= 0; i-- {
		if err := m.outputs[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
