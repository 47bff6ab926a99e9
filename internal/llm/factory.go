package llm

import (
	"fmt"
	"sort"
	"time"

	"contractparser/internal/config"
	"contractparser/internal/port"
)

// ProviderFactory is a function that creates an LLMProvider from a provider config.
type ProviderFactory func(cfg *config.LLMProviderConfig) (port.LLMProvider, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// retryBackoff is the delay before the first retry of a transient failure.
var retryBackoff = 500 * time.Millisecond

// NewProvider creates an LLMProvider from a provider config using the registered factory.
// Providers with a positive RateLimitRPM are wrapped in a client-side limiter,
// and MaxRetries applies to providers whose client does not retry on its own.
func NewProvider(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	_, native := p.(SelfRetrying)
	if cfg.RateLimitRPM > 0 {
		p = NewRateLimited(p, cfg.RateLimitRPM)
	}
	if cfg.MaxRetries > 0 && !native {
		p = NewRetrying(p, cfg.Provider, cfg.MaxRetries, retryBackoff)
	}
	return p, nil
}

// NamedProvider pairs a provider with the name used in logs and audit entries.
type NamedProvider struct {
	Name     string
	Provider port.LLMProvider
}

// NewChain builds the providers of an LLM config in fallback order.
func NewChain(cfg *config.LLMConfig) ([]NamedProvider, error) {
	var chain []NamedProvider
	for _, pc := range cfg.Chain() {
		p, err := NewProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("creating %s provider: %w", pc.Provider, err)
		}
		chain = append(chain, NamedProvider{Name: pc.Provider, Provider: p})
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no llm providers configured")
	}
	return chain, nil
}
