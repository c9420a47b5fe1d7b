package search

import (
	"net/url"
	"os"
	"strings"
)

const (
	DefaultRegion = "us-east-1"
	DefaultIndex  = "dc-v2-work"

	// signingService is the SigV4 service name of Amazon OpenSearch domains.
	signingService = "es"
)

// Config locates an OpenSearch index.
type Config struct {
	// Endpoint is a host name or a URL of the domain.
	Endpoint string `yaml:"endpoint"`
	// ModelID is the deployed embedding model used by neural queries.
	ModelID string `yaml:"model_id"`
	Region  string `yaml:"region"`
	// Prefix is prepended to Index with a dash when set.
	Prefix string `yaml:"prefix"`
	Index  string `yaml:"index"`
}

// ConfigFromEnv reads OPENSEARCH_ENDPOINT, OPENSEARCH_MODEL_ID, AWS_REGION,
// ENV_PREFIX and OPENSEARCH_INDEX.
func ConfigFromEnv() Config {
	return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) Config {
	cfg := Config{
		Endpoint: getenv("OPENSEARCH_ENDPOINT"),
		ModelID:  getenv("OPENSEARCH_MODEL_ID"),
		Region:   getenv("AWS_REGION"),
		Prefix:   getenv("ENV_PREFIX"),
		Index:    getenv("OPENSEARCH_INDEX"),
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	return cfg
}

// IndexName joins the prefix and index with a dash, skipping empty parts.
func (c Config) IndexName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{c.Prefix, c.Index} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

// Host returns the network location of Endpoint, or Endpoint itself when it
// is not a URL.
func (c Config) Host() string {
	if u, err := url.Parse(c.Endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return c.Endpoint
}
