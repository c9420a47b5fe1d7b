// Package search connects agents to a vector index. OpenSearch serves neural
// search and aggregations; chromem-go gives an in-process index for offline use.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAggregationUnsupported is returned by stores that cannot aggregate.
var ErrAggregationUnsupported = errors.New("aggregations are not supported by this store")

// Document is a single search hit.
type Document struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float64                `json:"score"`
}

// Store is the boundary the search tools talk to.
type Store interface {
	// SimilaritySearch returns at most size documents closest to query, best first.
	SimilaritySearch(ctx context.Context, query string, size int) ([]Document, error)

	// Aggregate runs the given aggregations object and returns the
	// aggregation results keyed by aggregation name.
	Aggregate(ctx context.Context, aggs json.RawMessage) (json.RawMessage, error)
}

// StatusError is returned when the search backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search backend returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
