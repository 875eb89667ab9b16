package templating

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leadflow/pkg/models"
)

func TestRender(t *testing.T) {
	tpl := &models.EmailTemplate{
		Subject:   "Hi {first_name}",
		Body:      "Welcome {first_name} {last_name} from {company}. Ref {ticket}",
		Variables: []string{"first_name", "last_name", "company"},
	}

	tests := []struct {
		name        string
		vars        map[string]interface{}
		wantSubject string
		wantBody    string
	}{
		{
			name:        "all variables present",
			vars:        map[string]interface{}{"first_name": "Ana", "last_name": "Lopez", "company": "Acme"},
			wantSubject: "Hi Ana",
			wantBody:    "Welcome Ana Lopez from Acme. Ref {ticket}",
		},
		{
			name:        "missing variable renders empty",
			vars:        map[string]interface{}{"last_name": "Lopez"},
			wantSubject: "Hi ",
			wantBody:    "Welcome  Lopez from . Ref {ticket}",
		},
		{
			name:        "nil value renders empty",
			vars:        map[string]interface{}{"first_name": nil},
			wantSubject: "Hi ",
			wantBody:    "Welcome   from . Ref {ticket}",
		},
		{
			name:        "undeclared placeholder untouched",
			vars:        map[string]interface{}{"first_name": "Ana", "ticket": "T-1"},
			wantSubject: "Hi Ana",
			wantBody:    "Welcome Ana  from . Ref {ticket}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := Render(tpl, tt.vars)
			assert.Equal(t, tt.wantSubject, subject)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestRenderDoesNotMutateTemplate(t *testing.T) {
	tpl := &models.EmailTemplate{Subject: "Hi {first_name}", Variables: []string{"first_name"}}
	Render(tpl, map[string]interface{}{"first_name": "Ana"})
	assert.Equal(t, "Hi {first_name}", tpl.Subject)
}

func TestRenderNoVariables(t *testing.T) {
	tpl := &models.EmailTemplate{Subject: "Hi {first_name}", Body: "plain"}
	subject, body := Render(tpl, map[string]interface{}{"first_name": "Ana"})
	assert.Equal(t, "Hi {first_name}", subject)
	assert.Equal(t, "plain", body)
}

func TestStringify(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "75", Stringify(75.0))
	assert.Equal(t, "75.5", Stringify(75.5))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "2024-03-01T12:00:00Z", Stringify(ts))
	assert.Equal(t, `["email","lead_score"]`, Stringify([]string{"email", "lead_score"}))
}
