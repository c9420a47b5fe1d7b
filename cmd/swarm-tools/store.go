package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	swarm "github.com/nulib/swarm-tools"
	"github.com/nulib/swarm-tools/search"
)

// StoreFlags selects the vector store used by the search tools.
type StoreFlags struct {
	Store         string `help:"Vector store backend." enum:"auto,opensearch,chromem" default:"auto"`
	ChromemPath   string `name:"chromem-path" help:"Persist the chromem store in this directory. In memory when empty." type:"path"`
	Collection    string `help:"Chromem collection name." default:"works"`
	Embedder      string `help:"Embedding provider for chromem." enum:"ollama,openai" default:"ollama"`
	EmbedderModel string `name:"embedder-model" help:"Embedding model for chromem." default:"nomic-embed-text"`
}

// openStore connects the configured backend. auto picks OpenSearch when
// OPENSEARCH_ENDPOINT is set and chromem otherwise.
func (c *CLI) openStore(ctx context.Context) (search.Store, error) {
	cfg := search.ConfigFromEnv()
	backend := c.Store.Store
	if backend == "auto" {
		backend = "chromem"
		if cfg.Endpoint != "" {
			backend = "opensearch"
		}
	}

	switch backend {
	case "opensearch":
		return c.openSearch(ctx, cfg)
	default:
		return c.openChromem()
	}
}

func (c *CLI) openSearch(ctx context.Context, cfg search.Config) (*search.OpenSearch, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("OPENSEARCH_ENDPOINT is not set")
	}
	signer, err := search.LoadSigV4Signer(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("using opensearch",
		zap.String("host", cfg.Host()),
		zap.String("index", cfg.IndexName()),
		zap.String("region", cfg.Region),
	)
	return search.NewOpenSearch(cfg, search.WithSigner(signer), search.WithLogger(c.logger)), nil
}

func (c *CLI) openChromem() (*search.Chromem, error) {
	db := chromem.NewDB()
	if c.Store.ChromemPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(c.Store.ChromemPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}
	}

	store, err := search.NewChromem(db, c.Store.Collection, c.embeddingFunc())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("using chromem",
		zap.String("path", c.Store.ChromemPath),
		zap.String("collection", c.Store.Collection),
		zap.Int("documents", store.Count()),
	)
	return store, nil
}

func (c *CLI) embeddingFunc() chromem.EmbeddingFunc {
	if c.Store.Embedder == "openai" {
		return chromem.NewEmbeddingFuncOpenAI(c.cfg.OpenAIAPIKey, chromem.EmbeddingModelOpenAI(c.Store.EmbedderModel))
	}
	host := strings.TrimRight(c.cfg.OllamaHost, "/")
	if host == "" {
		host = swarm.DefaultOllamaHost
	}
	return chromem.NewEmbeddingFuncOllama(c.Store.EmbedderModel, host+"/api")
}
