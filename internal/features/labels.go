package features

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownLabel is returned when a target was not seen at fit time.
var ErrUnknownLabel = errors.New("unknown label")

// LabelEncoder maps category names to one-hot vectors. The fitted order is
// the canonical class index order used to decode model output.
type LabelEncoder struct {
	Categories []string `json:"categories"`
}

// FitLabels collects the distinct targets in sorted order.
func FitLabels(targets []string) LabelEncoder {
	cats := slices.Clone(targets)
	slices.Sort(cats)
	return LabelEncoder{Categories: slices.Compact(cats)}
}

// Index returns the class index of label.
func (e LabelEncoder) Index(label string) (int, error) {
	i := slices.Index(e.Categories, label)
	if i < 0 {
		return -1, fmt.Errorf("features: %w: %q", ErrUnknownLabel, label)
	}
	return i, nil
}

// Name returns the category at class index i.
func (e LabelEncoder) Name(i int) (string, error) {
	if i < 0 || i >= len(e.Categories) {
		return "", fmt.Errorf("features: class index %d outside %d categories", i, len(e.Categories))
	}
	return e.Categories[i], nil
}

// Encode returns the one-hot vector of label.
func (e LabelEncoder) Encode(label string) ([]float32, error) {
	i, err := e.Index(label)
	if err != nil {
		return nil, err
	}
	vec := make([]float32, len(e.Categories))
	vec[i] = 1
	return vec, nil
}

// Len returns the number of categories.
func (e LabelEncoder) Len() int {
	return len(e.Categories)
}
