package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/output"
)

// Output writes JSON-encoded classified abstracts to stdout.
type Output struct {
	enc       *json.Encoder
	verbosity output.Verbosity
}

// New creates a new stdout Output with verbosity-aware field omission
// and optional pretty-printed JSON.
func New(verbosity output.Verbosity, pretty bool) *Output {
	return NewWriter(os.Stdout, verbosity, pretty)
}

// NewWriter is New for an arbitrary writer.
func NewWriter(w io.Writer, verbosity output.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, a model.ClassifiedAbstract) error {
	formatted := output.FormatAbstract(a, o.verbosity)
	if err := o.enc.Encode(formatted); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
