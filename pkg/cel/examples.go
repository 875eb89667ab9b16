package cel

// PredicateExamples shows the expression forms used for lead segments.
var PredicateExamples = map[string]string{
	"score_threshold":   `lead.lead_score >= 80.0`,
	"score_range":       `lead.lead_score >= 50.0 && lead.lead_score < 80.0`,
	"string_equals":     `lead.source == "website"`,
	"email_domain":      `lead.email.endsWith("@example.com")`,
	"optional_fact":     `has(lead.company_employees) && lead.company_employees >= 1000.0`,
	"in_list":           `lead.job_title in ["CTO", "VP Engineering"]`,
	"nested_data":       `has(lead.data.tier) && lead.data.tier == "gold"`,
	"integer_vs_double": `lead.recent_events >= 10`,
}
