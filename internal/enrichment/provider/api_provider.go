package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"leadflow/internal/constants"
	"leadflow/pkg/metrics"
)

const apiProviderName = "api"

// APIProvider queries a company lookup endpoint that takes the domain as a
// query parameter and authenticates with a bearer key.
type APIProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewAPIProvider(baseURL, apiKey string, timeout time.Duration) *APIProvider {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &APIProvider{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (p *APIProvider) Fetch(ctx context.Context, domain string) (map[string]interface{}, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveEnrichmentProviderDuration(apiProviderName, time.Since(start))
	}()

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid enrichment url: %w", err)
	}
	q := u.Query()
	q.Set("domain", domain)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.IncEnrichmentProviderRequest(apiProviderName, "error")
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.IncEnrichmentProviderRequest(apiProviderName, "no_match")
		return nil, ErrNoMatch
	}
	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		metrics.IncEnrichmentProviderRequest(apiProviderName, "error")
		return nil, fmt.Errorf("api returned status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.IncEnrichmentProviderRequest(apiProviderName, "error")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	metrics.IncEnrichmentProviderRequest(apiProviderName, "success")
	return result, nil
}
