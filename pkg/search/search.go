package search

import (
	"context"
	"errors"
)

var (
	// ErrBadStatus is returned when the search backend answers with a non-2xx status.
	ErrBadStatus = errors.New("search backend returned non-success status")
	// ErrDecode is returned when the search backend payload cannot be parsed.
	ErrDecode = errors.New("search backend returned an unparseable payload")
	// ErrTooLarge is returned when the response body exceeds the client limit.
	ErrTooLarge = errors.New("search backend response too large")
)

// Searcher defines the search collaborator used to discover companies.
// Every operation returns a finite, ordered sequence of raw records.
type Searcher interface {
	// SearchText runs a full-text query against index.
	SearchText(ctx context.Context, index string, query string, limit int) ([]Record, error)
	// SearchFilter runs a structured filter expression against index.
	SearchFilter(ctx context.Context, index string, filter string, limit int) ([]Record, error)
	// SearchFields runs a full-text query restricted to the given attributes.
	SearchFields(ctx context.Context, index string, query string, limit int, fields []string) ([]Record, error)
}
