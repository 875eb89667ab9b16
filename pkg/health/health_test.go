package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker struct {
	name string
	err  error
}

func (c staticChecker) Name() string                { return c.name }
func (c staticChecker) Check(context.Context) error { return c.err }

func TestRegistry_OverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{"no checkers", nil, StatusHealthy},
		{"all healthy", []Checker{staticChecker{name: "a"}, staticChecker{name: "b"}}, StatusHealthy},
		{"degraded", []Checker{staticChecker{name: "a"}, staticChecker{name: "b", err: &ErrDegraded{Reason: "slow"}}}, StatusDegraded},
		{"unhealthy wins", []Checker{
			staticChecker{name: "a", err: &ErrDegraded{Reason: "slow"}},
			staticChecker{name: "b", err: errors.New("down")},
		}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.checkers {
				r.Register(c)
			}
			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.checkers))
		})
	}
}

func TestHandler_StatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(c Checker) int {
		r := NewCheckerRegistry()
		r.Register(c)
		router := gin.New()
		router.GET("/health", r.Handler())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve(staticChecker{name: "ok"}))
	assert.Equal(t, http.StatusOK, serve(staticChecker{name: "slow", err: &ErrDegraded{Reason: "x"}}))
	assert.Equal(t, http.StatusServiceUnavailable, serve(staticChecker{name: "down", err: errors.New("x")}))
}

func TestPostgreSQLChecker(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	c := NewPostgreSQLChecker(db)
	assert.NoError(t, c.Check(context.Background()))
	assert.ErrorContains(t, c.Check(context.Background()), "postgresql ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChecker_DegradesWhenDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisChecker(client)
	assert.NoError(t, c.Check(context.Background()))

	mr.Close()
	var degraded *ErrDegraded
	assert.ErrorAs(t, c.Check(context.Background()), &degraded)
}

func TestBreakerChecker(t *testing.T) {
	state := "closed"
	c := NewBreakerChecker("enrichment-api", func() string { return state })
	assert.Equal(t, "breaker:enrichment-api", c.Name())
	assert.NoError(t, c.Check(context.Background()))

	state = "open"
	var degraded *ErrDegraded
	assert.ErrorAs(t, c.Check(context.Background()), &degraded)
}
