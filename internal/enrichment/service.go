package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"leadflow/internal/config"
	"leadflow/internal/enrichment/provider"
	"leadflow/internal/leads"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/metrics"
	"leadflow/pkg/tracing"
)

// CompanyKey is the lead data key enrichment results are stored under.
const CompanyKey = "company"

// freeMailDomains carry no company information.
var freeMailDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "live.com": true, "icloud.com": true, "aol.com": true,
	"proton.me": true, "protonmail.com": true,
}

type Result struct {
	LeadID   string                 `json:"lead_id"`
	Domain   string                 `json:"domain"`
	Enriched bool                   `json:"enriched"`
	Company  map[string]interface{} `json:"company,omitempty"`
	Result   *leads.LeadResult      `json:"update,omitempty"`
}

// Lookup resolves company data for email addresses.
type Lookup struct {
	provider provider.DataProvider
	logger   logger.Logger
}

func NewLookup(p provider.DataProvider, log logger.Logger) *Lookup {
	return &Lookup{provider: p, logger: log}
}

type Service struct {
	lookup *Lookup
	leads  leads.Service
	logger logger.Logger
}

func NewService(lookup *Lookup, leadService leads.Service, log logger.Logger) *Service {
	return &Service{
		lookup: lookup,
		leads:  leadService,
		logger: log,
	}
}

// NewProvider assembles the lookup chain: HTTP API behind a circuit breaker,
// retried with a fixed delay, with results cached in Redis when a client is
// given.
func NewProvider(cfg config.EnrichmentConfig, cbCfg config.CircuitBreakerConfig, cache *redis.Client, log logger.Logger) provider.DataProvider {
	var p provider.DataProvider = provider.NewAPIProvider(cfg.URL, cfg.APIKey, cfg.Timeout)
	p = provider.WrapWithCircuitBreaker(p, "enrichment-api", cbCfg)
	p = provider.NewRetryProvider(p, cfg.MaxRetries, cfg.RetryDelay, log)
	if cache != nil {
		ttl := cfg.CacheTTL()
		p = provider.NewCacheProvider(p, cache, ttl, log)
	}
	return p
}

// Company returns company data for an email address, or nil when the domain
// is unknown or belongs to a free mail provider.
func (l *Lookup) Company(ctx context.Context, email string) (map[string]interface{}, error) {
	ctx, span := tracing.GetTracer("enrichment").Start(ctx, "enrichment.lookup")
	defer span.End()

	domain := DomainOf(email)
	if domain == "" || freeMailDomains[domain] {
		return nil, nil
	}

	company, err := l.provider.Fetch(ctx, domain)
	if errors.Is(err, provider.ErrNoMatch) {
		l.logger.DebugwCtx(ctx, "No enrichment match", "domain", domain)
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("enrich domain %s: %w", domain, err)
	}
	return company, nil
}

// EnrichLead looks up the lead's company and stores it in the lead data. The
// change goes through the lead service so lead_updated rules see it.
func (s *Service) EnrichLead(ctx context.Context, leadID string) (*Result, error) {
	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	res := &Result{LeadID: lead.ID, Domain: DomainOf(lead.Email)}
	company, err := s.lookup.Company(ctx, lead.Email)
	if err != nil {
		metrics.FallbackUsageTotal.WithLabelValues("enrichment", "none", "provider_error").Inc()
		s.logger.WarnwCtx(ctx, "Lead enrichment failed", "lead_id", lead.ID, "error", err)
		return nil, pkgerrors.ErrServiceUnavailable.WithCause(err).WithDetail("message", err.Error())
	}
	if company == nil {
		return res, nil
	}

	data := make(map[string]interface{}, len(lead.Data)+1)
	for k, v := range lead.Data {
		data[k] = v
	}
	data[CompanyKey] = company

	updated, err := s.leads.UpdateLead(ctx, lead.ID, leads.UpdateLeadRequest{Data: data})
	if err != nil {
		return nil, err
	}

	res.Enriched = true
	res.Company = company
	res.Result = updated
	s.logger.InfowCtx(ctx, "Lead enriched", "lead_id", lead.ID, "domain", res.Domain)
	return res, nil
}

// EnrichData returns the lead data entries to add for email.
func (l *Lookup) EnrichData(ctx context.Context, email string) (map[string]interface{}, error) {
	company, err := l.Company(ctx, email)
	if err != nil || company == nil {
		return nil, err
	}
	return map[string]interface{}{CompanyKey: company}, nil
}

func DomainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
