package management

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/automation"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type memRepo struct {
	mu          sync.Mutex
	rules       map[string]automation.Rule
	templates   map[string]models.EmailTemplate
	campaigns   map[string]models.Campaign
	members     map[string][]string
	leads       map[string]models.Lead
	automations map[string]models.CampaignAutomation
	runs        []models.AutomationRun
}

func newMemRepo() *memRepo {
	return &memRepo{
		rules:       map[string]automation.Rule{},
		templates:   map[string]models.EmailTemplate{},
		campaigns:   map[string]models.Campaign{},
		members:     map[string][]string{},
		leads:       map[string]models.Lead{},
		automations: map[string]models.CampaignAutomation{},
	}
}

func notFound(id string) error { return pkgerrors.ErrNotFound.WithDetail("id", id) }

func (m *memRepo) CreateRule(_ context.Context, r *automation.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now()
	m.rules[r.ID] = *r
	return nil
}

func (m *memRepo) ListRules(context.Context) ([]automation.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []automation.Rule{}
	for _, r := range m.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) GetRule(_ context.Context, id string) (*automation.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, notFound(id)
	}
	return &r, nil
}

func (m *memRepo) UpdateRule(_ context.Context, r *automation.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[r.ID]; !ok {
		return notFound(r.ID)
	}
	m.rules[r.ID] = *r
	return nil
}

func (m *memRepo) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return notFound(id)
	}
	delete(m.rules, id)
	return nil
}

func (m *memRepo) ListActiveRules(ctx context.Context) ([]automation.Rule, error) {
	all, _ := m.ListRules(ctx)
	out := []automation.Rule{}
	for _, r := range all {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) CreateTemplate(_ context.Context, t *models.EmailTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.templates {
		if existing.Name == t.Name {
			return pkgerrors.ErrConflict.WithDetail("message", "template with name '"+t.Name+"' already exists")
		}
	}
	t.ID = uuid.NewString()
	m.templates[t.ID] = *t
	return nil
}

func (m *memRepo) ListTemplates(context.Context) ([]models.EmailTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.EmailTemplate{}
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

func (m *memRepo) GetTemplate(_ context.Context, id string) (*models.EmailTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, notFound(id)
	}
	return &t, nil
}

func (m *memRepo) UpdateTemplate(_ context.Context, t *models.EmailTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[t.ID]; !ok {
		return notFound(t.ID)
	}
	m.templates[t.ID] = *t
	return nil
}

func (m *memRepo) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return notFound(id)
	}
	delete(m.templates, id)
	return nil
}

func (m *memRepo) CreateCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	m.campaigns[c.ID] = *c
	return nil
}

func (m *memRepo) ListCampaigns(_ context.Context, limit, offset int) ([]models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Campaign{}
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	if offset >= len(out) {
		return []models.Campaign{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) GetCampaign(_ context.Context, id string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, notFound(id)
	}
	return &c, nil
}

func (m *memRepo) UpdateCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; !ok {
		return notFound(c.ID)
	}
	m.campaigns[c.ID] = *c
	return nil
}

func (m *memRepo) DeleteCampaign(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[id]; !ok {
		return notFound(id)
	}
	delete(m.campaigns, id)
	delete(m.members, id)
	return nil
}

func (m *memRepo) AddMember(_ context.Context, campaignID, leadID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[leadID]; !ok {
		return false, notFound(leadID)
	}
	for _, id := range m.members[campaignID] {
		if id == leadID {
			return false, nil
		}
	}
	m.members[campaignID] = append(m.members[campaignID], leadID)
	return true, nil
}

func (m *memRepo) RemoveMember(_ context.Context, campaignID, leadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.members[campaignID]
	for i, id := range ids {
		if id == leadID {
			m.members[campaignID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return notFound(leadID)
}

func (m *memRepo) ListMembers(_ context.Context, campaignID string) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Lead{}
	for _, id := range m.members[campaignID] {
		out = append(out, m.leads[id])
	}
	return out, nil
}

func (m *memRepo) CreateAutomation(_ context.Context, a *models.CampaignAutomation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	m.automations[a.ID] = *a
	return nil
}

func (m *memRepo) ListAutomations(_ context.Context, campaignID string) ([]models.CampaignAutomation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.CampaignAutomation{}
	for _, a := range m.automations {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) GetAutomation(_ context.Context, id string) (*models.CampaignAutomation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.automations[id]
	if !ok {
		return nil, notFound(id)
	}
	return &a, nil
}

func (m *memRepo) SetAutomationActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.automations[id]
	if !ok {
		return notFound(id)
	}
	a.Active = active
	m.automations[id] = a
	return nil
}

func (m *memRepo) DeleteAutomation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.automations[id]; !ok {
		return notFound(id)
	}
	delete(m.automations, id)
	return nil
}

func (m *memRepo) ListActiveAutomations(context.Context) ([]models.CampaignAutomation, error) {
	return nil, nil
}

func (m *memRepo) MarkRun(context.Context, string, time.Time) error { return nil }

func (m *memRepo) RecordRun(_ context.Context, run *models.AutomationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRepo) ListRuns(_ context.Context, filter RunFilter) ([]models.AutomationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AutomationRun{}
	for _, r := range m.runs {
		if filter.RuleID != "" && r.RuleID != filter.RuleID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type countingReloader struct {
	mu    sync.Mutex
	calls int
}

func (r *countingReloader) ReloadRules(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return nil
}

type capturingProducer struct {
	mu       sync.Mutex
	messages []models.MessageEnvelope
	topics   []string
}

func (p *capturingProducer) Publish(_ context.Context, topic string, msg models.MessageEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingProducer) Close() error { return nil }
