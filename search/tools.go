package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	swarm "github.com/nulib/swarm-tools"
)

const (
	// SourceVariable is the context variable that receives similarity search hits.
	SourceVariable = "source"

	// DefaultSimilaritySize is the number of hits stored by similarity_search.
	DefaultSimilaritySize = 100
	// DefaultSearchSize is the number of hits returned by search.
	DefaultSearchSize = 20
)

// AggregateDescription lists the fields the aggregate tool can group on.
const AggregateDescription = `Perform a quantitative aggregation on the OpenSearch index.

Pass either a field name, which is counted with a terms aggregation, or a JSON
object of named OpenSearch aggregations.

Available fields:
    ['accession_number', 'api_link', 'api_model', 'ark', 'box_name', 'box_number', 'catalog_key', 'collection.title.keyword', 'contributor.label.keyword', 'create_date', 'creator.id', 'date_created', 'embedding_model', 'embedding_text_length', 'genre.id', 'id', 'indexed_at', 'language.id', 'legacy_identifier', 'library_unit', 'license.id', 'location.id', 'modified_date', 'preservation_level', 'provenance', 'published', 'publisher', 'related_url.label', 'rights_holder', 'rights_statement.id', 'scope_and_contents', 'series', 'source', 'status', 'style_period.label.keyword', 'style_period.variants', 'subject.id', 'subject.variants', 'table_of_contents', 'technique.id', 'technique.variants', 'terms_of_use', 'title.keyword', 'visibility', 'work_type']

Examples:
Query about the number of collections: collection.title.keyword
Query about the number of works by work type: work_type`

var queryParam = []swarm.Parameter{
	{Name: "query", Type: swarm.TypeString, Required: true, Description: "The search query."},
}

// SimilaritySearchFunction queries store and keeps the hits in the
// "source" context variable for the agents that follow.
func SimilaritySearchFunction(store Store, size int) swarm.AgentFunction {
	if size <= 0 {
		size = DefaultSimilaritySize
	}
	return swarm.MustAgentFunction(
		"similarity_search",
		"Query the search index for relevant documents.",
		func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			query, err := queryArg(args)
			if err != nil {
				return nil, err
			}
			docs, err := store.SimilaritySearch(ctx, query, size)
			if err != nil {
				return nil, err
			}
			data, err := json.Marshal(docs)
			if err != nil {
				return nil, err
			}
			return &swarm.Result{
				Value:            string(data),
				ContextVariables: map[string]interface{}{SourceVariable: docs},
			}, nil
		},
		queryParam,
	)
}

// SearchFunction returns the hits of a semantic search as JSON.
func SearchFunction(store Store, size int) swarm.AgentFunction {
	if size <= 0 {
		size = DefaultSearchSize
	}
	return swarm.MustAgentFunction(
		"search",
		"Perform a semantic search of Northwestern University Library digital collections. "+
			"When answering a search query, ground your answer in the context of the results "+
			"with references to the document's metadata.",
		func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			query, err := queryArg(args)
			if err != nil {
				return nil, err
			}
			return store.SimilaritySearch(ctx, query, size)
		},
		queryParam,
	)
}

// AggregateFunction runs an aggregation. Failures are reported to the model
// as {"error": "..."} rather than as tool errors.
func AggregateFunction(store Store) swarm.AgentFunction {
	return swarm.MustAgentFunction(
		"aggregate",
		AggregateDescription,
		func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			raw, _ := args["aggregation_query"].(string)
			result, err := runAggregation(ctx, store, raw)
			if err != nil {
				data, _ := json.Marshal(map[string]string{"error": err.Error()})
				return string(data), nil
			}
			return string(result), nil
		},
		[]swarm.Parameter{
			{Name: "aggregation_query", Type: swarm.TypeString, Required: true, Description: "A field name or a JSON object of aggregations."},
		},
	)
}

func runAggregation(ctx context.Context, store Store, raw string) (json.RawMessage, error) {
	aggs, err := ParseAggregation(raw)
	if err != nil {
		return nil, err
	}
	return store.Aggregate(ctx, aggs)
}

// ParseAggregation accepts a JSON object of aggregations or a bare field
// name, which becomes a terms aggregation named after the field.
func ParseAggregation(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("aggregation query is empty")
	}
	if strings.HasPrefix(raw, "{") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return nil, fmt.Errorf("invalid aggregation query: %w", err)
		}
		return json.RawMessage(raw), nil
	}
	field := strings.Trim(raw, `"'`)
	return json.Marshal(map[string]interface{}{
		field: map[string]interface{}{
			"terms": map[string]interface{}{"field": field},
		},
	})
}

func queryArg(args map[string]interface{}) (string, error) {
	q, ok := args["query"].(string)
	if !ok {
		return "", errors.New(`missing required argument "query"`)
	}
	return q, nil
}
