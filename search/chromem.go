package search

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// Chromem is a Store over an in-process chromem-go collection. It supports
// similarity search only.
type Chromem struct {
	collection *chromem.Collection
}

// NewChromem opens (or creates) the named collection in db. embed computes
// embeddings for added documents and for queries.
func NewChromem(db *chromem.DB, name string, embed chromem.EmbeddingFunc) (*Chromem, error) {
	if db == nil {
		db = chromem.NewDB()
	}
	col, err := db.GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}
	return &Chromem{collection: col}, nil
}

// AddDocuments indexes docs. Metadata values are stored as strings.
func (c *Chromem) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		meta := make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = fmt.Sprint(v)
		}
		batch = append(batch, chromem.Document{ID: d.ID, Content: d.Content, Metadata: meta})
	}
	if err := c.collection.AddDocuments(ctx, batch, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (c *Chromem) Count() int {
	return c.collection.Count()
}

// SimilaritySearch implements Store. Scores are cosine similarities.
func (c *Chromem) SimilaritySearch(ctx context.Context, query string, size int) ([]Document, error) {
	n := min(size, c.collection.Count())
	if n <= 0 {
		return []Document{}, nil
	}
	results, err := c.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		meta := make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		docs = append(docs, Document{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: meta,
			Score:    float64(r.Similarity),
		})
	}
	return docs, nil
}

// Aggregate implements Store and always fails.
func (c *Chromem) Aggregate(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, ErrAggregationUnsupported
}
