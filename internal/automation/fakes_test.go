package automation

import (
	"context"
	"errors"
	"sync"

	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type fakeTemplates struct {
	templates map[string]*models.EmailTemplate
}

func (f *fakeTemplates) GetTemplate(_ context.Context, id string) (*models.EmailTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("template_id", id)
	}
	return tpl, nil
}

type fakeLeads struct {
	saved []*models.Lead
	err   error
}

func (f *fakeLeads) UpdateLead(_ context.Context, lead *models.Lead) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, lead.Clone())
	return nil
}

type fakeCampaigns struct {
	campaigns map[string]*models.Campaign
	members   map[string]map[string]bool
	addErr    error
}

func newFakeCampaigns(ids ...string) *fakeCampaigns {
	f := &fakeCampaigns{
		campaigns: make(map[string]*models.Campaign),
		members:   make(map[string]map[string]bool),
	}
	for _, id := range ids {
		f.campaigns[id] = &models.Campaign{ID: id, Name: "Campaign " + id}
	}
	return f
}

func (f *fakeCampaigns) GetCampaign(_ context.Context, id string) (*models.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return c, nil
}

func (f *fakeCampaigns) AddMember(_ context.Context, campaignID, leadID string) (bool, error) {
	if f.addErr != nil {
		return false, f.addErr
	}
	if f.members[campaignID] == nil {
		f.members[campaignID] = make(map[string]bool)
	}
	if f.members[campaignID][leadID] {
		return false, nil
	}
	f.members[campaignID][leadID] = true
	return true, nil
}

type sentEmail struct {
	To, Subject, Body string
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sentEmail
	fail bool
}

func (f *fakeGateway) Send(_ context.Context, to, subject, body string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: body})
	return true
}

type fakeNotifier struct {
	notifications []TeamNotification
	err           error
}

func (f *fakeNotifier) NotifyTeam(_ context.Context, n TeamNotification) error {
	f.notifications = append(f.notifications, n)
	return f.err
}

type fakeRuleSource struct {
	rules map[TriggerKind][]Rule
	err   error
}

func (f *fakeRuleSource) RulesFor(_ context.Context, kind TriggerKind) ([]Rule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rules[kind], nil
}

type fakeRuleStore struct {
	rules []Rule
	calls int
	err   error
}

func (f *fakeRuleStore) ListActiveRules(_ context.Context) ([]Rule, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rules, nil
}

type fakeRuns struct {
	runs []*models.AutomationRun
}

func (f *fakeRuns) RecordRun(_ context.Context, run *models.AutomationRun) error {
	f.runs = append(f.runs, run)
	return nil
}

type executedAction struct {
	Action Action
	LeadID string
}

// recordingExecutor records every action and fails those listed in failOn.
type recordingExecutor struct {
	executed []executedAction
	failOn   map[ActionType]bool
}

func (r *recordingExecutor) Execute(_ context.Context, action Action, lead *models.Lead, _ map[string]interface{}) bool {
	r.executed = append(r.executed, executedAction{Action: action, LeadID: lead.ID})
	return !r.failOn[action.Type()]
}

type unknownAction struct{}

func (unknownAction) Type() ActionType { return "panic" }
func (unknownAction) Validate() error  { return nil }
func (unknownAction) isAction()        {}

var errStoreDown = errors.New("store down")
