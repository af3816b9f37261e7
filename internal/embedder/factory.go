package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds engine configuration.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string // Ollama server address
	CacheSize int
}

// New creates an engine with explicit configuration.
func New(cfg Config) (Engine, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderHash:
		return NewHashProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an engine based on environment variables.
// Priority:
// 1. SEMINDEX_EMBEDDING_PROVIDER (ollama, openai, hash)
// 2. OPENAI_API_KEY if set
// 3. Fall back to the hash provider
func NewFromEnv() (Engine, error) {
	cache := NewCache(10000)

	if provider := os.Getenv(EnvProvider); provider != "" {
		switch strings.ToLower(provider) {
		case ProviderOllama:
			return NewOllamaProvider("", "", cache)
		case ProviderOpenAI:
			return NewOpenAIProvider("", "", cache)
		case ProviderHash:
			return NewHashProvider(cache)
		default:
			return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
		}
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return NewOpenAIProvider("", "", cache)
	}

	return NewHashProvider(cache)
}

// DetectProvider returns the provider NewFromEnv would pick.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderHash
}
