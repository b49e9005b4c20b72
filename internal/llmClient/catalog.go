package llmclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderConfig selects and configures one backend.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// ClientFactory builds a backend from config.
type ClientFactory func(ctx context.Context, cfg ProviderConfig) (LLMClient, error)

// Catalog maps provider names to factories.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]ClientFactory
}

func NewCatalog() *Catalog {
	return &Catalog{factories: map[string]ClientFactory{}}
}

// Register adds or replaces a provider.
func (c *Catalog) Register(provider string, f ClientFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[normalizeProvider(provider)] = f
}

// Providers lists registered provider names in sorted order.
func (c *Catalog) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.factories))
	for k := range c.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the client for cfg.Provider.
func (c *Catalog) New(ctx context.Context, cfg ProviderConfig) (LLMClient, error) {
	name := normalizeProvider(cfg.Provider)
	c.mu.RLock()
	f, ok := c.factories[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llmclient: unknown provider %q (known: %s)", cfg.Provider, strings.Join(c.Providers(), ", "))
	}
	if name != "fake" && strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llmclient: provider %q requires an API key", name)
	}
	return f(ctx, cfg)
}

// DefaultCatalog registers every built-in backend.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register("gemini", func(ctx context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	})
	c.Register("anthropic", func(_ context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewAnthropicClient(cfg.APIKey, cfg.Model, anthropicOptions(cfg)...), nil
	})
	c.Register("openai", func(_ context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewOpenAIClient(cfg.APIKey, cfg.Model, openAIOptions(cfg)...), nil
	})
	c.Register("groq", func(_ context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewGroqClient(cfg.APIKey, cfg.Model, openAIOptions(cfg)...), nil
	})
	c.Register("fake", func(context.Context, ProviderConfig) (LLMClient, error) {
		return NewFakeClient(), nil
	})
	return c
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "google", "genai":
		return "gemini"
	case "claude":
		return "anthropic"
	}
	return p
}
