package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePredicate(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{name: "numeric comparison", expr: `lead.lead_score > 80.0`},
		{name: "string method", expr: `lead.email.endsWith("@acme.com")`},
		{name: "syntax error", expr: `lead.lead_score >>> 1`, wantError: true},
		{name: "undefined variable", expr: `payload.status == "active"`, wantError: true},
		{name: "non bool result", expr: `1 + 2`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidatePredicate(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluatePredicate(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	facts := map[string]interface{}{
		"email":             "ada@acme.com",
		"lead_score":        85.0,
		"company_employees": 1200.0,
		"recent_events":     int64(12),
		"data":              map[string]interface{}{"tier": "gold"},
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"hot", `lead.lead_score >= 80.0`, true},
		{"not warm", `lead.lead_score >= 50.0 && lead.lead_score < 80.0`, false},
		{"enterprise", `has(lead.company_employees) && lead.company_employees >= 1000.0`, true},
		{"int compared with double literal", `lead.recent_events >= 10.0`, true},
		{"nested data", `has(lead.data.tier) && lead.data.tier == "gold"`, true},
		{"missing optional fact", `has(lead.phone) && lead.phone != ""`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluatePredicate(context.Background(), tt.expr, facts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluatePredicate_MissingKeyErrors(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.EvaluatePredicate(context.Background(), `lead.phone == ""`, map[string]interface{}{})
	assert.Error(t, err)
}

func TestCompileExpression_Caches(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	p1, err := eval.CompileExpression(`lead.lead_score > 1.0`)
	require.NoError(t, err)
	p2, err := eval.CompileExpression(`lead.lead_score > 1.0`)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Len(t, eval.programs, 1)
}

func TestPredicateExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range PredicateExamples {
		assert.NoError(t, eval.ValidatePredicate(expr), name)
	}
}
