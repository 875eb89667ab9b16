package enrichment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/automation"
	"leadflow/internal/enrichment/provider"
	"leadflow/internal/leads"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type fakeProvider struct {
	data    map[string]interface{}
	err     error
	domains []string
}

func (p *fakeProvider) Fetch(_ context.Context, domain string) (map[string]interface{}, error) {
	p.domains = append(p.domains, domain)
	return p.data, p.err
}

type fakeLeads struct {
	leads.Service
	lead    *models.Lead
	updates []leads.UpdateLeadRequest
}

func (f *fakeLeads) GetLead(_ context.Context, id string) (*models.Lead, error) {
	if f.lead == nil || f.lead.ID != id {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return f.lead.Clone(), nil
}

func (f *fakeLeads) UpdateLead(_ context.Context, id string, req leads.UpdateLeadRequest) (*leads.LeadResult, error) {
	f.updates = append(f.updates, req)
	f.lead.Data = req.Data
	return &leads.LeadResult{Lead: f.lead.Clone(), Automation: []automation.Summary{{Trigger: automation.TriggerLeadUpdated}}}, nil
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "acme.com", DomainOf("Ada@ACME.com"))
	assert.Equal(t, "", DomainOf("no-at-sign"))
	assert.Equal(t, "", DomainOf("trailing@"))
}

func TestLookup_SkipsFreeMail(t *testing.T) {
	p := &fakeProvider{data: map[string]interface{}{"name": "Google"}}
	lookup := NewLookup(p, logger.NopLogger())

	company, err := lookup.Company(context.Background(), "someone@gmail.com")
	require.NoError(t, err)
	assert.Nil(t, company)
	assert.Empty(t, p.domains)
}

func TestEnrichData(t *testing.T) {
	p := &fakeProvider{data: map[string]interface{}{"name": "Acme"}}
	lookup := NewLookup(p, logger.NopLogger())

	data, err := lookup.EnrichData(context.Background(), "ada@acme.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"company": map[string]interface{}{"name": "Acme"}}, data)

	p.err = provider.ErrNoMatch
	data, err = lookup.EnrichData(context.Background(), "ada@unknown.org")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestEnrichLead(t *testing.T) {
	company := map[string]interface{}{"name": "Acme", "metrics": map[string]interface{}{"employees": 1200.0}}

	t.Run("stores company under data", func(t *testing.T) {
		ls := &fakeLeads{lead: &models.Lead{ID: "l1", Email: "ada@acme.com", Data: map[string]interface{}{"plan": "pro"}}}
		svc := NewService(NewLookup(&fakeProvider{data: company}, logger.NopLogger()), ls, logger.NopLogger())

		res, err := svc.EnrichLead(context.Background(), "l1")
		require.NoError(t, err)
		assert.True(t, res.Enriched)
		assert.Equal(t, "acme.com", res.Domain)
		require.Len(t, ls.updates, 1)
		assert.Equal(t, company, ls.updates[0].Data["company"])
		assert.Equal(t, "pro", ls.updates[0].Data["plan"])
	})

	t.Run("no match leaves lead untouched", func(t *testing.T) {
		ls := &fakeLeads{lead: &models.Lead{ID: "l1", Email: "ada@tiny.dev"}}
		svc := NewService(NewLookup(&fakeProvider{err: provider.ErrNoMatch}, logger.NopLogger()), ls, logger.NopLogger())

		res, err := svc.EnrichLead(context.Background(), "l1")
		require.NoError(t, err)
		assert.False(t, res.Enriched)
		assert.Empty(t, ls.updates)
	})

	t.Run("provider failure is unavailable", func(t *testing.T) {
		ls := &fakeLeads{lead: &models.Lead{ID: "l1", Email: "ada@acme.com"}}
		svc := NewService(NewLookup(&fakeProvider{err: errors.New("timeout")}, logger.NopLogger()), ls, logger.NopLogger())

		_, err := svc.EnrichLead(context.Background(), "l1")
		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, pkgerrors.ToHTTPStatus(err))
	})

	t.Run("unknown lead", func(t *testing.T) {
		svc := NewService(NewLookup(&fakeProvider{}, logger.NopLogger()), &fakeLeads{}, logger.NopLogger())

		_, err := svc.EnrichLead(context.Background(), "ghost")
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestEnrichRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ls := &fakeLeads{lead: &models.Lead{ID: "l1", Email: "ada@acme.com"}}
	svc := NewService(NewLookup(&fakeProvider{data: map[string]interface{}{"name": "Acme"}}, logger.NopLogger()), ls, logger.NopLogger())

	router := gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/leads/l1/enrich", nil))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/leads/nope/enrich", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
