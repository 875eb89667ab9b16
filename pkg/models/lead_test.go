package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadSetField(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   interface{}
		applied bool
		check   func(t *testing.T, l *Lead)
	}{
		{"string field", "company", "Acme", true, func(t *testing.T, l *Lead) { assert.Equal(t, "Acme", l.Company) }},
		{"nil clears string", "phone", nil, true, func(t *testing.T, l *Lead) { assert.Equal(t, "", l.Phone) }},
		{"score from float", "lead_score", 75.5, true, func(t *testing.T, l *Lead) { assert.Equal(t, 75.5, l.LeadScore) }},
		{"score from numeric string", "lead_score", "42", true, func(t *testing.T, l *Lead) { assert.Equal(t, 42.0, l.LeadScore) }},
		{"score rejects text", "lead_score", "high", false, func(t *testing.T, l *Lead) { assert.Equal(t, 10.0, l.LeadScore) }},
		{"unknown field skipped", "favourite_color", "blue", false, func(t *testing.T, l *Lead) {}},
		{"wrong type skipped", "company", 12, false, func(t *testing.T, l *Lead) { assert.Equal(t, "Initech", l.Company) }},
		{"data map", "data", map[string]interface{}{"tier": "gold"}, true, func(t *testing.T, l *Lead) { assert.Equal(t, "gold", l.Data["tier"]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := &Lead{Company: "Initech", Phone: "555", LeadScore: 10}
			assert.Equal(t, tt.applied, lead.SetField(tt.field, tt.value))
			tt.check(t, lead)
		})
	}
}

func TestLeadClone(t *testing.T) {
	lead := &Lead{ID: "1", Data: map[string]interface{}{"a": 1}}
	c := lead.Clone()
	c.Data["a"] = 2
	assert.Equal(t, 1, lead.Data["a"])
}

func TestFrequencyValid(t *testing.T) {
	assert.True(t, FrequencyWeekly.Valid())
	assert.False(t, Frequency("hourly").Valid())
}

func TestValidateMessageEnvelope(t *testing.T) {
	assert.Error(t, ValidateMessageEnvelope(nil))
	assert.Error(t, ValidateMessageEnvelope(&MessageEnvelope{Type: EnvelopeTypeLeadEvent, Payload: map[string]interface{}{}}))
	assert.Error(t, ValidateMessageEnvelope(&MessageEnvelope{ID: "m1", Payload: map[string]interface{}{}}))
	assert.Error(t, ValidateMessageEnvelope(&MessageEnvelope{ID: "m1", Type: EnvelopeTypeLeadEvent}))

	env := NewEnvelope(EnvelopeTypeLeadEvent, "crm", nil)
	assert.NoError(t, ValidateMessageEnvelope(&env))
}
