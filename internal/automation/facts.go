package automation

import (
	"time"

	"leadflow/pkg/models"
)

// baseFacts is the fact map shared by every trigger kind.
func baseFacts(lead *models.Lead) map[string]interface{} {
	return map[string]interface{}{
		"id":         lead.ID,
		"first_name": lead.FirstName,
		"last_name":  lead.LastName,
		"email":      lead.Email,
		"phone":      lead.Phone,
		"company":    lead.Company,
		"job_title":  lead.JobTitle,
		"lead_score": lead.LeadScore,
	}
}

func LeadCreatedFacts(lead *models.Lead) map[string]interface{} {
	facts := baseFacts(lead)
	facts["created_at"] = isoTime(lead.CreatedAt)
	return facts
}

func LeadUpdatedFacts(lead *models.Lead, updatedFields []string) map[string]interface{} {
	facts := baseFacts(lead)
	facts["updated_at"] = isoTime(lead.UpdatedAt)
	fields := make([]interface{}, len(updatedFields))
	for i, f := range updatedFields {
		fields[i] = f
	}
	facts["updated_fields"] = fields
	return facts
}

func ScoreChangedFacts(lead *models.Lead, oldScore float64) map[string]interface{} {
	facts := baseFacts(lead)
	facts["old_score"] = oldScore
	facts["score_change"] = lead.LeadScore - oldScore
	return facts
}

func EventFacts(lead *models.Lead, eventType string, eventData map[string]interface{}, at time.Time) map[string]interface{} {
	facts := baseFacts(lead)
	facts["event_type"] = eventType
	facts["event_data"] = eventData
	facts["event_time"] = isoTime(at)
	return facts
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
