package segments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type pagedLeads struct {
	leads []models.Lead
	calls int
}

func (p *pagedLeads) ListLeads(_ context.Context, limit, offset int) ([]models.Lead, error) {
	p.calls++
	if offset >= len(p.leads) {
		return nil, nil
	}
	end := offset + limit
	if end > len(p.leads) {
		end = len(p.leads)
	}
	return p.leads[offset:end], nil
}

type fixedActivity struct {
	counts map[string]int64
	since  time.Time
	err    error
}

func (a *fixedActivity) CountSince(_ context.Context, since time.Time) (map[string]int64, error) {
	a.since = since
	return a.counts, a.err
}

func newTestService(t *testing.T, leads LeadLister, activity ActivityCounter) *Service {
	t.Helper()
	svc, err := NewService(leads, activity, logger.NopLogger())
	require.NoError(t, err)
	return svc
}

func TestCounts_LeadScore(t *testing.T) {
	leads := &pagedLeads{leads: []models.Lead{
		{ID: "1", LeadScore: 95},
		{ID: "2", LeadScore: 80},
		{ID: "3", LeadScore: 79.5},
		{ID: "4", LeadScore: 50},
		{ID: "5", LeadScore: 10},
	}}
	svc := newTestService(t, leads, nil)

	counts, err := svc.Counts(context.Background(), TypeLeadScore)
	require.NoError(t, err)

	assert.Equal(t, TypeLeadScore, counts.Type)
	assert.Equal(t, map[string]int{"hot": 2, "warm": 2, "cold": 1}, counts.Counts)
	assert.Equal(t, 5, counts.Total)
}

func TestCounts_CompanySizeReadsNestedEmployees(t *testing.T) {
	leads := &pagedLeads{leads: []models.Lead{
		{ID: "1", Data: map[string]interface{}{"company": map[string]interface{}{"employees": float64(5000)}}},
		{ID: "2", Data: map[string]interface{}{"company": map[string]interface{}{"metrics": map[string]interface{}{"employees": 120}}}},
		{ID: "3", Data: map[string]interface{}{"company": "Acme"}},
		{ID: "4"},
	}}
	svc := newTestService(t, leads, nil)

	counts, err := svc.Counts(context.Background(), TypeCompanySize)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"enterprise": 1, "mid_market": 1, "small_business": 2}, counts.Counts)
}

func TestCounts_EngagementUsesThirtyDayActivity(t *testing.T) {
	leads := &pagedLeads{leads: []models.Lead{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	activity := &fixedActivity{counts: map[string]int64{"a": 12, "b": 5}}
	svc := newTestService(t, leads, activity)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	counts, err := svc.Counts(context.Background(), TypeEngagement)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"highly_engaged": 1, "moderately_engaged": 1, "low_engaged": 1}, counts.Counts)
	assert.Equal(t, now.Add(-30*24*time.Hour), activity.since)
}

func TestCounts_ActivityErrorIsInternal(t *testing.T) {
	svc := newTestService(t, &pagedLeads{}, &fixedActivity{err: errors.New("mongo down")})

	_, err := svc.Counts(context.Background(), TypeEngagement)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, pkgerrors.ToHTTPStatus(err))
}

func TestCounts_PagesThroughAllLeads(t *testing.T) {
	leads := &pagedLeads{}
	for i := 0; i < pageSize+3; i++ {
		leads.leads = append(leads.leads, models.Lead{ID: fmt.Sprint(i), LeadScore: 90})
	}
	svc := newTestService(t, leads, nil)

	counts, err := svc.Counts(context.Background(), TypeLeadScore)
	require.NoError(t, err)
	assert.Equal(t, pageSize+3, counts.Counts["hot"])
	assert.Equal(t, 2, leads.calls)
}

func TestCounts_UnknownType(t *testing.T) {
	svc := newTestService(t, &pagedLeads{}, nil)

	_, err := svc.Counts(context.Background(), "zodiac")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestCounts_EmptyStoreReportsZeroes(t *testing.T) {
	svc := newTestService(t, &pagedLeads{}, nil)

	counts, err := svc.Counts(context.Background(), TypeLeadScore)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"hot": 0, "warm": 0, "cold": 0}, counts.Counts)
	assert.Zero(t, counts.Total)
}

func TestHandler_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(t, &pagedLeads{leads: []models.Lead{{ID: "1", LeadScore: 60}}}, nil)
	router := gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/segments/lead_score", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"type":"lead_score","counts":{"hot":0,"warm":1,"cold":0},"total":1}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/segments/unknown", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/segments", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "highly_engaged")
}
