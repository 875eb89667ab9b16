package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type Lead struct {
	ID        string                 `json:"id"`
	Email     string                 `json:"email"`
	FirstName string                 `json:"first_name"`
	LastName  string                 `json:"last_name"`
	Phone     string                 `json:"phone,omitempty"`
	Company   string                 `json:"company,omitempty"`
	JobTitle  string                 `json:"job_title,omitempty"`
	Source    string                 `json:"source,omitempty"`
	LeadScore float64                `json:"lead_score"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Clone returns a copy whose Data map can be mutated independently.
func (l *Lead) Clone() *Lead {
	c := *l
	if l.Data != nil {
		c.Data = make(map[string]interface{}, len(l.Data))
		for k, v := range l.Data {
			c.Data[k] = v
		}
	}
	return &c
}

// SetField assigns a recognised lead attribute. It reports false for unknown
// names and for values of the wrong type; the lead is left unchanged then.
func (l *Lead) SetField(name string, value interface{}) bool {
	switch name {
	case "first_name":
		return setString(&l.FirstName, value)
	case "last_name":
		return setString(&l.LastName, value)
	case "email":
		return setString(&l.Email, value)
	case "phone":
		return setString(&l.Phone, value)
	case "company":
		return setString(&l.Company, value)
	case "job_title":
		return setString(&l.JobTitle, value)
	case "source":
		return setString(&l.Source, value)
	case "lead_score":
		score, ok := toFloat(value)
		if ok {
			l.LeadScore = score
		}
		return ok
	case "data":
		data, ok := value.(map[string]interface{})
		if ok {
			l.Data = data
		}
		return ok
	default:
		return false
	}
}

func setString(dst *string, value interface{}) bool {
	switch v := value.(type) {
	case string:
		*dst = v
		return true
	case nil:
		*dst = ""
		return true
	default:
		return false
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
