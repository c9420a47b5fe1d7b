package swarm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// OpenAIClient defines the interface for chat completion API interactions
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openAIClientWrapper wraps the OpenAI client
type openAIClientWrapper struct {
	client openai.Client
}

// NewOpenAIClient creates a new OpenAI client wrapper
func NewOpenAIClient(apiKey string) OpenAIClient {
	if apiKey == "" {
		return nil
	}

	return &openAIClientWrapper{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// NewOpenAIClientWithBaseURL creates a new OpenAI client wrapper with a custom base URL.
// OpenAI-compatible servers such as Ollama's /v1 endpoint are reached this way.
func NewOpenAIClientWithBaseURL(apiKey string, baseURL string) OpenAIClient {
	if apiKey == "" {
		return nil
	}

	if baseURL == "" {
		return NewOpenAIClient(apiKey)
	}

	return &openAIClientWrapper{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)),
	}
}

// NewAzureOpenAIClient creates a new OpenAI client wrapper for Azure using an API key
func NewAzureOpenAIClient(apiKey, endpoint, apiVersion string) OpenAIClient {
	if apiKey == "" || endpoint == "" {
		return nil
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}

	return &openAIClientWrapper{
		client: openai.NewClient(
			azure.WithEndpoint(endpoint, apiVersion),
			azure.WithAPIKey(apiKey),
		),
	}
}

// NewAzureOpenAIClientWithCredential creates an Azure client that authenticates
// with Entra ID bearer tokens obtained from cred for the given scope.
func NewAzureOpenAIClientWithCredential(cred azcore.TokenCredential, endpoint, apiVersion, scope string) OpenAIClient {
	if cred == nil || endpoint == "" {
		return nil
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}
	if scope == "" {
		scope = DefaultAzureScope
	}

	return &openAIClientWrapper{
		client: openai.NewClient(
			azure.WithEndpoint(endpoint, apiVersion),
			option.WithMiddleware(bearerTokenMiddleware(cred, scope)),
		),
	}
}

func bearerTokenMiddleware(cred azcore.TokenCredential, scope string) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		token, err := cred.GetToken(req.Context(), policy.TokenRequestOptions{Scopes: []string{scope}})
		if err != nil {
			return nil, fmt.Errorf("failed to acquire azure token: %w", err)
		}
		req.Header.Del("api-key")
		req.Header.Set("Authorization", "Bearer "+token.Token)
		return next(req)
	}
}

// CreateChatCompletion implements OpenAIClient interface
func (c *openAIClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	return completion, nil
}
