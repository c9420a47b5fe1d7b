package swarm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAzureAPIVersion is used when AZURE_API_VERSION is unset.
	DefaultAzureAPIVersion = "2024-08-01-preview"

	// DefaultAzureScope is the Entra ID scope for Azure OpenAI tokens.
	DefaultAzureScope = "https://cognitiveservices.azure.com/.default"

	// DefaultOllamaHost is the local Ollama server address.
	DefaultOllamaHost = "http://localhost:11434"

	// ollamaAPIKey is sent to Ollama, which ignores it but the client requires one.
	ollamaAPIKey = "ollama"
)

// Provider names a chat completion backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderAzure  Provider = "azure"
	ProviderOllama Provider = "ollama"
)

// ErrNoProvider is returned when no backend can be derived from the configuration.
var ErrNoProvider = errors.New("no model provider configured")

// Config selects and authenticates the model backend and carries run defaults.
type Config struct {
	Provider Provider `yaml:"provider"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIAPIBase string `yaml:"openai_api_base"`

	AzureAPIKey     string `yaml:"azure_api_key"`
	AzureEndpoint   string `yaml:"azure_endpoint"`
	AzureAPIVersion string `yaml:"azure_api_version"`
	AzureScope      string `yaml:"azure_scope"`

	OllamaHost string `yaml:"ollama_host"`

	// Model overrides every agent's model. AZURE_DEPLOYMENT_NAME sets it for Azure.
	Model    string `yaml:"model"`
	MaxTurns int    `yaml:"max_turns"`
	Debug    bool   `yaml:"debug"`
}

// LoadConfig reads the given .env files (".env" when none are named;
// missing files are ignored) and then builds a Config from the environment.
// Variables already present in the environment win over .env entries.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return ConfigFromEnv(os.Getenv), nil
}

// ConfigFromEnv builds a Config from an environment lookup function.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		Provider:        Provider(strings.ToLower(getenv("SWARM_PROVIDER"))),
		OpenAIAPIKey:    getenv("OPENAI_API_KEY"),
		OpenAIAPIBase:   getenv("OPENAI_API_BASE"),
		AzureAPIKey:     getenv("AZURE_OPENAI_API_KEY"),
		AzureEndpoint:   firstNonEmpty(getenv("AZURE_ENDPOINT"), getenv("AZURE_OPENAI_API_BASE")),
		AzureAPIVersion: firstNonEmpty(getenv("AZURE_API_VERSION"), getenv("AZURE_OPENAI_API_VERSION")),
		AzureScope:      getenv("AZURE_ENDPOINT_SCOPE"),
		OllamaHost:      getenv("OLLAMA_HOST"),
		Model:           getenv("AZURE_DEPLOYMENT_NAME"),
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Provider = Provider(strings.ToLower(string(cfg.Provider)))
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AzureAPIVersion == "" {
		c.AzureAPIVersion = DefaultAzureAPIVersion
	}
	if c.AzureScope == "" {
		c.AzureScope = DefaultAzureScope
	}
	if c.Provider == "" {
		c.Provider = c.inferProvider()
	}
	if c.Provider == ProviderOllama && c.OllamaHost == "" {
		c.OllamaHost = DefaultOllamaHost
	}
}

func (c *Config) inferProvider() Provider {
	switch {
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI
	case c.AzureEndpoint != "":
		return ProviderAzure
	case c.OllamaHost != "":
		return ProviderOllama
	}
	return ""
}

// NewClient creates the model client described by cfg. Azure without an API
// key authenticates through azidentity's default credential chain.
func NewClient(cfg Config) (OpenAIClient, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNoProvider)
		}
		return NewOpenAIClientWithBaseURL(cfg.OpenAIAPIKey, cfg.OpenAIAPIBase), nil
	case ProviderAzure:
		if cfg.AzureEndpoint == "" {
			return nil, fmt.Errorf("%w: AZURE_ENDPOINT is not set", ErrNoProvider)
		}
		if cfg.AzureAPIKey != "" {
			return NewAzureOpenAIClient(cfg.AzureAPIKey, cfg.AzureEndpoint, cfg.AzureAPIVersion), nil
		}
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure credential: %w", err)
		}
		return NewAzureOpenAIClientWithCredential(cred, cfg.AzureEndpoint, cfg.AzureAPIVersion, cfg.AzureScope), nil
	case ProviderOllama:
		host := strings.TrimRight(firstNonEmpty(cfg.OllamaHost, DefaultOllamaHost), "/")
		if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
			host = "http://" + host
		}
		return NewOpenAIClientWithBaseURL(ollamaAPIKey, host+"/v1/"), nil
	case "":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProvider, cfg.Provider)
	}
}

// NewDefaultSwarm creates a Swarm from the environment and any .env file in
// the working directory.
func NewDefaultSwarm(opts ...Option) (*Swarm, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewSwarm(client, opts...), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
