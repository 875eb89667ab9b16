package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/automation"
	"leadflow/internal/events"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type memRepo struct {
	mu    sync.Mutex
	leads map[string]models.Lead
	order []string
}

func newMemRepo() *memRepo {
	return &memRepo{leads: map[string]models.Lead{}}
}

func (m *memRepo) CreateLead(_ context.Context, lead *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.Email == lead.Email {
			return pkgerrors.ErrConflict.WithDetail("message", "duplicate email")
		}
	}
	lead.ID = uuid.NewString()
	lead.CreatedAt = time.Now()
	m.leads[lead.ID] = *lead.Clone()
	m.order = append(m.order, lead.ID)
	return nil
}

func (m *memRepo) GetLead(_ context.Context, id string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return l.Clone(), nil
}

func (m *memRepo) ListLeads(_ context.Context, limit, offset int) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Lead{}
	for i, id := range m.order {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		if l, ok := m.leads[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateLead(_ context.Context, lead *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[lead.ID]; !ok {
		return pkgerrors.ErrNotFound.WithDetail("id", lead.ID)
	}
	m.leads[lead.ID] = *lead.Clone()
	return nil
}

func (m *memRepo) DeleteLead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[id]; !ok {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	delete(m.leads, id)
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []models.LeadEvent
	err    error
}

func (m *memEvents) Append(_ context.Context, event *models.LeadEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	event.ID = uuid.NewString()
	m.events = append(m.events, *event)
	return nil
}

func (m *memEvents) List(_ context.Context, q events.Query) ([]models.LeadEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LeadEvent{}
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.LeadID != q.LeadID || (q.EventType != "" && e.EventType != q.EventType) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memEvents) DeleteForLead(_ context.Context, leadID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.LeadID == leadID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

type triggerCall struct {
	Kind      automation.TriggerKind
	LeadID    string
	Fields    []string
	OldScore  float64
	EventType string
	EventData map[string]interface{}
}

type recordingTriggers struct {
	mu    sync.Mutex
	calls []triggerCall
}

func (r *recordingTriggers) record(call triggerCall) automation.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return automation.Summary{Trigger: call.Kind}
}

func (r *recordingTriggers) OnLeadCreated(_ context.Context, lead *models.Lead) automation.Summary {
	return r.record(triggerCall{Kind: automation.TriggerLeadCreated, LeadID: lead.ID})
}

func (r *recordingTriggers) OnLeadUpdated(_ context.Context, lead *models.Lead, fields []string) automation.Summary {
	return r.record(triggerCall{Kind: automation.TriggerLeadUpdated, LeadID: lead.ID, Fields: fields})
}

func (r *recordingTriggers) OnScoreChanged(_ context.Context, lead *models.Lead, oldScore float64) automation.Summary {
	return r.record(triggerCall{Kind: automation.TriggerScoreChanged, LeadID: lead.ID, OldScore: oldScore})
}

func (r *recordingTriggers) OnEvent(_ context.Context, lead *models.Lead, eventType string, data map[string]interface{}) automation.Summary {
	return r.record(triggerCall{Kind: automation.TriggerEventOccurred, LeadID: lead.ID, EventType: eventType, EventData: data})
}

func (r *recordingTriggers) kinds() []automation.TriggerKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []automation.TriggerKind{}
	for _, c := range r.calls {
		out = append(out, c.Kind)
	}
	return out
}

func (m *memEvents) CountSince(_ context.Context, since time.Time) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, e := range m.events {
		if !e.Timestamp.Before(since) {
			counts[e.LeadID]++
		}
	}
	return counts, nil
}
