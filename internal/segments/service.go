package segments

import (
	"context"
	"fmt"
	"time"

	"leadflow/internal/logger"
	"leadflow/pkg/cel"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

const (
	pageSize           = 500
	engagementLookback = 30 * 24 * time.Hour
)

type LeadLister interface {
	ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error)
}

type ActivityCounter interface {
	CountSince(ctx context.Context, since time.Time) (map[string]int64, error)
}

type Counts struct {
	Type   string         `json:"type"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

type Service struct {
	leads     LeadLister
	activity  ActivityCounter
	evaluator *cel.Evaluator
	types     map[string]Type
	now       func() time.Time
	logger    logger.Logger
}

// NewService compiles every segment expression up front; a bad expression
// is a startup error. activity may be nil, in which case every lead has
// zero recent events.
func NewService(leads LeadLister, activity ActivityCounter, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	s := &Service{
		leads:     leads,
		activity:  activity,
		evaluator: evaluator,
		types:     make(map[string]Type, len(BuiltinTypes)),
		now:       time.Now,
		logger:    log,
	}
	for _, t := range BuiltinTypes {
		for _, seg := range t.Segments {
			if _, err := evaluator.CompileExpression(seg.Expression); err != nil {
				return nil, fmt.Errorf("segment %s/%s: %w", t.Name, seg.Name, err)
			}
		}
		s.types[t.Name] = t
	}
	return s, nil
}

func (s *Service) Types() []Type {
	return BuiltinTypes
}

// Counts places every lead in exactly one segment of segmentType.
func (s *Service) Counts(ctx context.Context, segmentType string) (*Counts, error) {
	t, ok := s.types[segmentType]
	if !ok {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "invalid segment type: "+segmentType)
	}

	var activity map[string]int64
	if t.NeedsActivity && s.activity != nil {
		var err error
		activity, err = s.activity.CountSince(ctx, s.now().Add(-engagementLookback))
		if err != nil {
			return nil, pkgerrors.ErrInternal.WithCause(err)
		}
	}

	result := &Counts{Type: t.Name, Counts: make(map[string]int, len(t.Segments))}
	for _, seg := range t.Segments {
		result.Counts[seg.Name] = 0
	}

	for offset := 0; ; offset += pageSize {
		page, err := s.leads.ListLeads(ctx, pageSize, offset)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
		}
		for i := range page {
			name, err := s.classify(ctx, t, Facts(&page[i], activity[page[i].ID]))
			if err != nil {
				return nil, err
			}
			result.Counts[name]++
			result.Total++
		}
		if len(page) < pageSize {
			break
		}
	}
	return result, nil
}

func (s *Service) classify(ctx context.Context, t Type, facts map[string]interface{}) (string, error) {
	for _, seg := range t.Segments {
		ok, err := s.evaluator.EvaluatePredicate(ctx, seg.Expression, facts)
		if err != nil {
			return "", pkgerrors.ErrInternal.WithCause(err).WithDetail("segment", seg.Name)
		}
		if ok {
			return seg.Name, nil
		}
	}
	last := t.Segments[len(t.Segments)-1]
	return last.Name, nil
}

// Facts is the fact map segment expressions see. company_employees reads
// data.company.employees or data.company.metrics.employees and defaults to 0.
func Facts(lead *models.Lead, recentEvents int64) map[string]interface{} {
	data := lead.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return map[string]interface{}{
		"id":                lead.ID,
		"email":             lead.Email,
		"first_name":        lead.FirstName,
		"last_name":         lead.LastName,
		"company":           lead.Company,
		"job_title":         lead.JobTitle,
		"source":            lead.Source,
		"lead_score":        lead.LeadScore,
		"data":              data,
		"company_employees": companyEmployees(data),
		"recent_events":     float64(recentEvents),
	}
}

func companyEmployees(data map[string]interface{}) float64 {
	company, ok := data["company"].(map[string]interface{})
	if !ok {
		return 0
	}
	if n, ok := number(company["employees"]); ok {
		return n
	}
	if m, ok := company["metrics"].(map[string]interface{}); ok {
		if n, ok := number(m["employees"]); ok {
			return n
		}
	}
	return 0
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
