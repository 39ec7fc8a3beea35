package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/skimmer/internal/model"
)

// Verbosity controls how much of a classification is written.
type Verbosity int

const (
	// Minimal writes the role sections only.
	Minimal Verbosity = iota
	// Full also writes per-sentence labels and confidences.
	Full
)

// ParseVerbosity converts "minimal" or "full" into a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "":
		return Minimal, nil
	case "full":
		return Full, nil
	}
	return Minimal, fmt.Errorf("output: unknown verbosity %q", s)
}

// FormatAbstract returns a copy of a with fields stripped according to
// verbosity. At Minimal, Sentences is dropped (omitted from JSON via
// omitempty).
func FormatAbstract(a model.ClassifiedAbstract, verbosity Verbosity) model.ClassifiedAbstract {
	if verbosity == Minimal {
		a.Sentences = nil
	}
	return a
}
