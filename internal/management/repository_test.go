package management

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/automation"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

var (
	ruleCols       = []string{"id", "name", "description", "trigger_type", "conditions", "actions", "is_active", "created_at", "updated_at"}
	automationCols = []string{"id", "campaign_id", "template_id", "start_date", "frequency", "end_date", "is_active", "last_run_at", "created_at", "updated_at"}
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewRepository(db), mock
}

func TestCreateRule_AssignsIDAndStoresSpecs(t *testing.T) {
	repo, mock := newMockRepo(t)

	rule := &automation.Rule{
		Name:       "Hot lead",
		Trigger:    automation.TriggerScoreChanged,
		Conditions: []automation.Condition{{Field: "lead_score", Operator: automation.OpGreaterThan, Value: 80}},
		Actions:    automation.Actions{automation.SendEmail{TemplateID: "tpl-1"}},
		Active:     true,
	}

	mock.ExpectExec("INSERT INTO automation_rules").
		WithArgs(
			sqlmock.AnyArg(), "Hot lead", "", "score_changed",
			[]byte(`[{"field":"lead_score","operator":"greater_than","value":80}]`),
			[]byte(`[{"type":"send_email","params":{"template_id":"tpl-1"}}]`),
			true, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateRule(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())
}

func TestCreateTemplate_DuplicateNameIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO email_templates").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.CreateTemplate(context.Background(), &models.EmailTemplate{Name: "welcome", Subject: "Hi", Body: "x"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestGetRule_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .+ FROM automation_rules WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(ruleCols))

	_, err := repo.GetRule(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestListActiveRules_DecodesTypedActions(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM automation_rules WHERE is_active = TRUE").
		WillReturnRows(sqlmock.NewRows(ruleCols).
			AddRow("r1", "Welcome", "", "lead_created",
				[]byte(`[{"field":"source","operator":"equals","value":"website"}]`),
				[]byte(`[{"type":"send_email","params":{"template_id":"tpl-1"}},{"type":"add_to_campaign","params":{"campaign_id":"c1"}}]`),
				true, now, now))

	rules, err := repo.ListActiveRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)

	rule := rules[0]
	assert.Equal(t, automation.TriggerLeadCreated, rule.Trigger)
	require.Len(t, rule.Conditions, 1)
	assert.Equal(t, "website", rule.Conditions[0].Value)
	require.Len(t, rule.Actions, 2)
	assert.Equal(t, automation.SendEmail{TemplateID: "tpl-1"}, rule.Actions[0])
	assert.Equal(t, automation.AddToCampaign{CampaignID: "c1"}, rule.Actions[1])
}

func TestListActiveRules_CorruptActionsFail(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM automation_rules").
		WillReturnRows(sqlmock.NewRows(ruleCols).
			AddRow("r1", "Broken", "", "lead_created", []byte(`[]`),
				[]byte(`[{"type":"launch_rocket","params":{}}]`), true, now, now))

	_, err := repo.ListActiveRules(context.Background())
	assert.Error(t, err)
}

func TestAddMember_ReportsWhetherInserted(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO campaign_leads").
		WithArgs("c1", "l1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO campaign_leads").
		WithArgs("c1", "l1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddMember(context.Background(), "c1", "l1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddMember(context.Background(), "c1", "l1")
	require.NoError(t, err)
	assert.False(t, added, "existing membership is not an error")
}

func TestAddMember_MissingLeadIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO campaign_leads").
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	_, err := repo.AddMember(context.Background(), "c1", "ghost")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestListActiveAutomations_NullableColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	lastRun := start.Add(24 * time.Hour)

	mock.ExpectQuery("SELECT .+ FROM campaign_automations WHERE is_active = TRUE").
		WillReturnRows(sqlmock.NewRows(automationCols).
			AddRow("a1", "c1", "t1", start, "daily", nil, true, nil, start, start).
			AddRow("a2", "c1", "t1", start, "weekly", start.Add(720*time.Hour), true, lastRun, start, start))

	automations, err := repo.ListActiveAutomations(context.Background())
	require.NoError(t, err)
	require.Len(t, automations, 2)

	assert.Nil(t, automations[0].LastRunAt)
	assert.Nil(t, automations[0].Schedule.EndDate)
	assert.Equal(t, models.FrequencyDaily, automations[0].Schedule.Frequency)

	require.NotNil(t, automations[1].LastRunAt)
	assert.True(t, lastRun.Equal(*automations[1].LastRunAt))
	require.NotNil(t, automations[1].Schedule.EndDate)
}

func TestMarkRun_UnknownAutomation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE campaign_automations SET last_run_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRun(context.Background(), "gone", time.Now())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteTemplate_InUseIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM email_templates").
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.DeleteTemplate(context.Background(), "t1")
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestListRuns_BuildsFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM automation_runs WHERE kind = $1 AND rule_id = $2 ORDER BY created_at DESC LIMIT $3")).
		WithArgs("rule", "r1", 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "kind", "rule_id", "automation_id", "lead_id", "trigger_type",
			"status", "succeeded", "failed", "message", "created_at",
		}).AddRow("run-1", "rule", "r1", "", "l1", "lead_created", "success", 2, 0, "", time.Now()))

	runs, err := repo.ListRuns(context.Background(), RunFilter{Kind: "rule", RuleID: "r1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Succeeded)
}

func TestRecordRun(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO automation_runs").
		WithArgs(sqlmock.AnyArg(), "campaign", "", "a1", "", "", "success", 3, 1, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &models.AutomationRun{Kind: models.RunKindCampaign, AutomationID: "a1", Status: models.RunStatusSuccess, Succeeded: 3, Failed: 1}
	require.NoError(t, repo.RecordRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
}
