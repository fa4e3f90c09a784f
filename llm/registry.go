package llm

import (
	"context"
	"fmt"

	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
)

type LlmConfig struct {
	OpenAIKey       string
	AnthropicKey    string
	GeminiKey       string
	DeepSeekKey     string
	DeepSeekBaseURL string
	BatchID         string
	TellmURL        string
}

// Registry maps provider names to providers. Providers without a key are absent.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// NewRegistryFromConfig builds a provider for every configured key.
func NewRegistryFromConfig(ctx context.Context, cfg *LlmConfig, l logger.Logger) (*Registry, error) {
	r := NewRegistry()
	if cfg.OpenAIKey != "" {
		p, err := NewOpenAIProvider(cfg.OpenAIKey)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}
	if cfg.AnthropicKey != "" {
		p, err := NewAnthropicProvider(cfg.AnthropicKey)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}
	if cfg.GeminiKey != "" {
		p, err := NewGoogleProvider(ctx, cfg.GeminiKey)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}
	if cfg.DeepSeekKey != "" {
		baseURL := cfg.DeepSeekBaseURL
		if baseURL == "" {
			baseURL = DefaultDeepSeekBaseURL
		}
		p, err := NewOpenAICompatibleProvider(schema.ProviderDeepSeek, cfg.DeepSeekKey, baseURL)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}
	l.Info(fmt.Sprintf("Registered %d providers: %v", len(r.providers), r.Names()))
	return r, nil
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Names lists registered providers in catalogue order.
func (r *Registry) Names() []string {
	var names []string
	for _, p := range []string{schema.ProviderOpenAI, schema.ProviderAnthropic, schema.ProviderGoogle, schema.ProviderDeepSeek} {
		if _, ok := r.providers[p]; ok {
			names = append(names, p)
		}
	}
	return names
}

// Resolve finds the catalogue entry for a model id and the provider serving it.
func (r *Registry) Resolve(modelID string) (Provider, schema.Model, error) {
	model, ok := schema.LookupModel(modelID)
	if !ok {
		return nil, schema.Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
	}
	p, ok := r.providers[model.Provider]
	if !ok {
		return nil, model, fmt.Errorf("%w: %s", ErrMissingAPIKey, model.Provider)
	}
	return p, model, nil
}

// Available returns the catalogue entries whose provider is registered.
func (r *Registry) Available() []schema.Model {
	var models []schema.Model
	for _, m := range schema.Catalog {
		if _, ok := r.providers[m.Provider]; ok {
			models = append(models, m)
		}
	}
	return models
}
