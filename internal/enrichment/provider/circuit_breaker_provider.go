package provider

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/config"
	"leadflow/pkg/circuitbreaker"
)

type CircuitBreakerProvider struct {
	provider DataProvider
	cb       *circuitbreaker.Wrapper
	name     string
}

// WrapWithCircuitBreaker returns p unchanged when breakers are disabled.
func WrapWithCircuitBreaker(p DataProvider, name string, cfg config.CircuitBreakerConfig) DataProvider {
	if !cfg.Enabled {
		return p
	}
	return NewCircuitBreakerProvider(p, name, circuitbreaker.FromSettings(name, cfg))
}

func NewCircuitBreakerProvider(provider DataProvider, name string, cfg circuitbreaker.Config) *CircuitBreakerProvider {
	return &CircuitBreakerProvider{
		provider: provider,
		cb:       circuitbreaker.NewWrapper(cfg),
		name:     name,
	}
}

// Fetch counts ErrNoMatch as a successful call so that unknown domains do
// not trip the breaker.
func (p *CircuitBreakerProvider) Fetch(ctx context.Context, domain string) (map[string]interface{}, error) {
	result, err := p.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		data, err := p.provider.Fetch(ctx, domain)
		if errors.Is(err, ErrNoMatch) {
			return nil, nil
		}
		return data, err
	})

	p.cb.RecordRequest(err == nil)

	if err != nil {
		if p.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for %s: %w", p.name, err)
		}
		return nil, err
	}

	if result == nil {
		return nil, ErrNoMatch
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("provider returned invalid result type")
	}
	return data, nil
}

func (p *CircuitBreakerProvider) State() string {
	return p.cb.State().String()
}

func (p *CircuitBreakerProvider) IsOpen() bool {
	return p.cb.IsOpen()
}
