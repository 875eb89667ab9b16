package segments

// Segment is a named CEL predicate over lead facts. Within a Type the
// first matching segment wins, so the last one is normally a catch-all.
type Segment struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

type Type struct {
	Name     string    `json:"name"`
	Segments []Segment `json:"segments"`
	// NeedsActivity marks types that read the recent_events fact.
	NeedsActivity bool `json:"-"`
}

const (
	TypeLeadScore   = "lead_score"
	TypeCompanySize = "company_size"
	TypeEngagement  = "engagement"
)

// BuiltinTypes are the segment types served by the API.
var BuiltinTypes = []Type{
	{
		Name: TypeLeadScore,
		Segments: []Segment{
			{Name: "hot", Expression: `lead.lead_score >= 80.0`},
			{Name: "warm", Expression: `lead.lead_score >= 50.0`},
			{Name: "cold", Expression: `true`},
		},
	},
	{
		Name: TypeCompanySize,
		Segments: []Segment{
			{Name: "enterprise", Expression: `lead.company_employees >= 1000.0`},
			{Name: "mid_market", Expression: `lead.company_employees >= 50.0`},
			{Name: "small_business", Expression: `true`},
		},
	},
	{
		Name:          TypeEngagement,
		NeedsActivity: true,
		Segments: []Segment{
			{Name: "highly_engaged", Expression: `lead.recent_events >= 10.0`},
			{Name: "moderately_engaged", Expression: `lead.recent_events >= 5.0`},
			{Name: "low_engaged", Expression: `true`},
		},
	},
}
