// Package source defines where batch classification reads abstracts from.
// Providers register themselves by name from their init functions.
package source

import (
	"context"

	"github.com/crimson-sun/skimmer/internal/model"
)

// Source defines the interface all abstract providers must implement.
type Source interface {
	// Stream sends abstracts as they are read and closes the channel when
	// the provider is exhausted or ctx is cancelled.
	Stream(ctx context.Context, cfg Config) (<-chan model.Abstract, error)

	// Query fetches a batch of abstracts matching the given parameters.
	Query(ctx context.Context, cfg Config, params QueryParams) ([]model.Abstract, error)
}

// Config holds provider-specific settings.
type Config struct {
	Provider string
	Path     string   // file: input path
	Endpoint string   // pubmed: E-utilities base URL
	APIKey   string   // pubmed: NCBI API key
	IDs      []string // pubmed: PMIDs
}

// QueryParams narrows a Query.
type QueryParams struct {
	IDs   []string // overrides Config.IDs when set
	Limit int
}
