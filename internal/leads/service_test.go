package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/automation"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type fixture struct {
	repo     *memRepo
	events   *memEvents
	triggers *recordingTriggers
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{repo: newMemRepo(), events: &memEvents{}, triggers: &recordingTriggers{}}
	f.svc = NewService(f.repo, f.events, f.triggers)
	return f
}

func (f *fixture) seed(t *testing.T, lead models.Lead) *models.Lead {
	t.Helper()
	require.NoError(t, f.repo.CreateLead(context.Background(), &lead))
	return &lead
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func TestCreateLead_FiresLeadCreated(t *testing.T) {
	f := newFixture()

	result, err := f.svc.CreateLead(context.Background(), CreateLeadRequest{Email: " ada@example.com ", Source: "website"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Lead.ID)
	assert.Equal(t, "ada@example.com", result.Lead.Email)
	assert.Equal(t, []automation.TriggerKind{automation.TriggerLeadCreated}, f.triggers.kinds())
	require.Len(t, result.Automation, 1)
}

func TestCreateLead_DuplicateEmailIsConflict(t *testing.T) {
	f := newFixture()
	f.seed(t, models.Lead{Email: "ada@example.com"})

	_, err := f.svc.CreateLead(context.Background(), CreateLeadRequest{Email: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Empty(t, f.triggers.kinds())
}

func TestUpdateLead_ReportsOnlyChangedFields(t *testing.T) {
	f := newFixture()
	lead := f.seed(t, models.Lead{Email: "ada@example.com", Company: "Acme", LeadScore: 40})

	result, err := f.svc.UpdateLead(context.Background(), lead.ID, UpdateLeadRequest{
		Company:  strPtr("Acme"),
		JobTitle: strPtr("CTO"),
	})
	require.NoError(t, err)
	assert.Equal(t, "CTO", result.Lead.JobTitle)

	require.Len(t, f.triggers.calls, 1)
	assert.Equal(t, automation.TriggerLeadUpdated, f.triggers.calls[0].Kind)
	assert.Equal(t, []string{"job_title"}, f.triggers.calls[0].Fields)
}

func TestUpdateLead_ScoreChangeFiresBothTriggers(t *testing.T) {
	f := newFixture()
	lead := f.seed(t, models.Lead{Email: "ada@example.com", LeadScore: 40})

	result, err := f.svc.UpdateLead(context.Background(), lead.ID, UpdateLeadRequest{LeadScore: floatPtr(85)})
	require.NoError(t, err)

	assert.Equal(t, []automation.TriggerKind{automation.TriggerLeadUpdated, automation.TriggerScoreChanged}, f.triggers.kinds())
	assert.Equal(t, 40.0, f.triggers.calls[1].OldScore)
	assert.Len(t, result.Automation, 2)

	stored, err := f.repo.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 85.0, stored.LeadScore)
}

func TestUpdateLead_SameScoreDoesNotFireScoreChanged(t *testing.T) {
	f := newFixture()
	lead := f.seed(t, models.Lead{Email: "ada@example.com", LeadScore: 40})

	_, err := f.svc.UpdateLead(context.Background(), lead.ID, UpdateLeadRequest{LeadScore: floatPtr(40)})
	require.NoError(t, err)

	require.Len(t, f.triggers.calls, 1)
	assert.Empty(t, f.triggers.calls[0].Fields)
}

func TestUpdateLead_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateLead(context.Background(), "missing", UpdateLeadRequest{})
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Empty(t, f.triggers.calls)
}

func TestTrackEvent_LogsThenFires(t *testing.T) {
	f := newFixture()
	lead := f.seed(t, models.Lead{Email: "ada@example.com"})

	props := map[string]interface{}{"page": "/pricing"}
	result, err := f.svc.TrackEvent(context.Background(), lead.ID, "page_view", TrackEventRequest{Properties: props})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "page_view", f.events.events[0].EventType)
	require.Len(t, f.triggers.calls, 1)
	assert.Equal(t, "page_view", f.triggers.calls[0].EventType)
	assert.Equal(t, props, f.triggers.calls[0].EventData)
}

func TestTrackEvent_LogFailureSkipsRules(t *testing.T) {
	f := newFixture()
	lead := f.seed(t, models.Lead{Email: "ada@example.com"})
	f.events.err = errors.New("mongo down")

	_, err := f.svc.TrackEvent(context.Background(), lead.ID, "page_view", TrackEventRequest{})
	require.Error(t, err)
	assert.Empty(t, f.triggers.calls)
}

func TestTrackEvent_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.TrackEvent(context.Background(), "l1", "  ", TrackEventRequest{})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = f.svc.TrackEvent(context.Background(), "missing", "page_view", TrackEventRequest{})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteLead_PurgesEvents(t *testing.T) {
	f := newFixture()
	lead := f.seed(t, models.Lead{Email: "ada@example.com"})
	_, err := f.svc.TrackEvent(context.Background(), lead.ID, "page_view", TrackEventRequest{})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteLead(context.Background(), lead.ID))
	assert.Empty(t, f.events.events)

	err = f.svc.DeleteLead(context.Background(), lead.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestIngest(t *testing.T) {
	tests := []struct {
		name     string
		payload  func(leadID string) models.LeadEventPayload
		wantKind automation.TriggerKind
		wantErr  func(error) bool
	}{
		{
			name:     "lead created",
			payload:  func(id string) models.LeadEventPayload { return models.LeadEventPayload{Kind: "lead_created", LeadID: id} },
			wantKind: automation.TriggerLeadCreated,
		},
		{
			name: "lead updated",
			payload: func(id string) models.LeadEventPayload {
				return models.LeadEventPayload{Kind: "lead_updated", LeadID: id, UpdatedFields: []string{"company"}}
			},
			wantKind: automation.TriggerLeadUpdated,
		},
		{
			name: "score changed",
			payload: func(id string) models.LeadEventPayload {
				return models.LeadEventPayload{Kind: "score_changed", LeadID: id, OldScore: floatPtr(10)}
			},
			wantKind: automation.TriggerScoreChanged,
		},
		{
			name: "score changed without old score",
			payload: func(id string) models.LeadEventPayload {
				return models.LeadEventPayload{Kind: "score_changed", LeadID: id}
			},
			wantErr: pkgerrors.IsValidation,
		},
		{
			name: "event occurred",
			payload: func(id string) models.LeadEventPayload {
				return models.LeadEventPayload{Kind: "event_occurred", LeadID: id, EventType: "webinar_joined"}
			},
			wantKind: automation.TriggerEventOccurred,
		},
		{
			name:    "unknown kind",
			payload: func(id string) models.LeadEventPayload { return models.LeadEventPayload{Kind: "lead_exploded", LeadID: id} },
			wantErr: pkgerrors.IsValidation,
		},
		{
			name:    "unknown lead",
			payload: func(string) models.LeadEventPayload { return models.LeadEventPayload{Kind: "lead_created", LeadID: "ghost"} },
			wantErr: pkgerrors.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			lead := f.seed(t, models.Lead{Email: "ada@example.com"})

			summary, err := f.svc.Ingest(context.Background(), tt.payload(lead.ID))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), err.Error())
				assert.Empty(t, f.triggers.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, summary.Trigger)
			assert.Equal(t, []automation.TriggerKind{tt.wantKind}, f.triggers.kinds())
		})
	}
}

func TestIngest_EventOccurredIsLogged(t *testing.T) {
	f := newFixture()
	lead := f.seed(t, models.Lead{Email: "ada@example.com"})

	_, err := f.svc.Ingest(context.Background(), models.LeadEventPayload{
		Kind: "event_occurred", LeadID: lead.ID, EventType: "email_opened",
	})
	require.NoError(t, err)

	events, err := f.svc.ListEvents(context.Background(), lead.ID, "email_opened", 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

type stubEnricher struct {
	data map[string]interface{}
	err  error
}

func (s stubEnricher) EnrichData(context.Context, string) (map[string]interface{}, error) {
	return s.data, s.err
}

func TestCreateLead_Enrichment(t *testing.T) {
	company := map[string]interface{}{"name": "Acme", "employees": 1200.0}

	t.Run("merged before rules run", func(t *testing.T) {
		f := newFixture()
		f.svc = NewService(f.repo, f.events, f.triggers, WithEnricher(stubEnricher{data: map[string]interface{}{"company": company}}))

		result, err := f.svc.CreateLead(context.Background(), CreateLeadRequest{
			Email: "ada@acme.com",
			Data:  map[string]interface{}{"plan": "pro"},
		})
		require.NoError(t, err)
		assert.Equal(t, company, result.Lead.Data["company"])
		assert.Equal(t, "pro", result.Lead.Data["plan"])
	})

	t.Run("caller data wins", func(t *testing.T) {
		f := newFixture()
		f.svc = NewService(f.repo, f.events, f.triggers, WithEnricher(stubEnricher{data: map[string]interface{}{"company": company}}))

		result, err := f.svc.CreateLead(context.Background(), CreateLeadRequest{
			Email: "ada@acme.com",
			Data:  map[string]interface{}{"company": "manual"},
		})
		require.NoError(t, err)
		assert.Equal(t, "manual", result.Lead.Data["company"])
	})

	t.Run("failure does not block creation", func(t *testing.T) {
		f := newFixture()
		f.svc = NewService(f.repo, f.events, f.triggers, WithEnricher(stubEnricher{err: errors.New("timeout")}))

		result, err := f.svc.CreateLead(context.Background(), CreateLeadRequest{Email: "ada@acme.com"})
		require.NoError(t, err)
		assert.Nil(t, result.Lead.Data)
		assert.Len(t, f.triggers.calls, 1)
	})
}
