// Package output delivers classified abstracts to their destinations.
package output

import (
	"context"

	"github.com/crimson-sun/skimmer/internal/model"
)

// Output defines the interface for classified abstract destinations.
type Output interface {
	Write(ctx context.Context, a model.ClassifiedAbstract) error
	Close() error
}
