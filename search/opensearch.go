package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoModelID is returned when a neural query is attempted without a model id.
var ErrNoModelID = errors.New("opensearch model id is not configured")

const (
	// textField holds the document text of the index.
	textField = "id"

	maxErrorBody = 4 << 10
)

// OpenSearch is a Store backed by an OpenSearch domain with neural search.
type OpenSearch struct {
	cfg     Config
	baseURL string
	client  *http.Client
	signer  RequestSigner
	retry   RetryPolicy
	logger  *zap.Logger
}

// OpenSearchOption configures an OpenSearch store.
type OpenSearchOption func(*OpenSearch)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) OpenSearchOption {
	return func(o *OpenSearch) {
		if c != nil {
			o.client = c
		}
	}
}

// WithSigner signs every request. Without a signer requests are sent unsigned.
func WithSigner(s RequestSigner) OpenSearchOption {
	return func(o *OpenSearch) { o.signer = s }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) OpenSearchOption {
	return func(o *OpenSearch) { o.retry = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) OpenSearchOption {
	return func(o *OpenSearch) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBaseURL overrides the https://<host> address derived from the endpoint.
func WithBaseURL(u string) OpenSearchOption {
	return func(o *OpenSearch) { o.baseURL = strings.TrimRight(u, "/") }
}

// NewOpenSearch creates a store for the index described by cfg.
func NewOpenSearch(cfg Config, opts ...OpenSearchOption) *OpenSearch {
	o := &OpenSearch{
		cfg:     cfg,
		baseURL: "https://" + cfg.Host(),
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   DefaultRetryPolicy(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ClusterInfo is the subset of the root endpoint response used here.
type ClusterInfo struct {
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number       string `json:"number"`
		Distribution string `json:"distribution"`
	} `json:"version"`
}

// Info fetches the cluster name and version.
func (o *OpenSearch) Info(ctx context.Context) (*ClusterInfo, error) {
	var info ClusterInfo
	if err := o.do(ctx, http.MethodGet, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type neuralQuery struct {
	Query struct {
		Neural map[string]neuralClause `json:"neural"`
	} `json:"query"`
	Size   int `json:"size"`
	Source struct {
		Excludes []string `json:"excludes"`
	} `json:"_source"`
}

type neuralClause struct {
	QueryText string `json:"query_text"`
	ModelID   string `json:"model_id"`
	K         int    `json:"k"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string                 `json:"_id"`
			Score  float64                `json:"_score"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

// SimilaritySearch runs a neural query against the embedding field.
func (o *OpenSearch) SimilaritySearch(ctx context.Context, query string, size int) ([]Document, error) {
	if o.cfg.ModelID == "" {
		return nil, ErrNoModelID
	}
	if size <= 0 {
		size = 10
	}

	var body neuralQuery
	body.Query.Neural = map[string]neuralClause{
		"embedding": {QueryText: query, ModelID: o.cfg.ModelID, K: size},
	}
	body.Size = size
	body.Source.Excludes = []string{"embedding"}

	var resp searchResponse
	if err := o.do(ctx, http.MethodPost, "/"+o.cfg.IndexName()+"/_search", body, &resp); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		content, _ := hit.Source[textField].(string)
		docs = append(docs, Document{
			ID:       hit.ID,
			Content:  content,
			Metadata: hit.Source,
			Score:    hit.Score,
		})
	}
	o.logger.Debug("similarity search",
		zap.String("index", o.cfg.IndexName()),
		zap.String("query", query),
		zap.Int("hits", len(docs)),
	)
	return docs, nil
}

// Aggregate runs aggs without returning any hits.
func (o *OpenSearch) Aggregate(ctx context.Context, aggs json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(aggs) {
		return nil, fmt.Errorf("aggregations are not valid JSON")
	}
	body := struct {
		Size int             `json:"size"`
		Aggs json.RawMessage `json:"aggs"`
	}{Size: 0, Aggs: aggs}

	var resp searchResponse
	if err := o.do(ctx, http.MethodPost, "/"+o.cfg.IndexName()+"/_search", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Aggregations) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return resp.Aggregations, nil
}

// do sends one JSON request with retries and decodes the response into out.
func (o *OpenSearch) do(ctx context.Context, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return o.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if o.signer != nil {
			if err := o.signer.Sign(ctx, req, payload); err != nil {
				return err
			}
		}

		resp, err := o.client.Do(req)
		if err != nil {
			o.logger.Debug("opensearch request failed", zap.String("path", path), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			o.logger.Debug("opensearch returned error status",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
			)
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}
