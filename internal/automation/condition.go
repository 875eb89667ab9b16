package automation

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"leadflow/internal/templating"
)

type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}

func (o Operator) numeric() bool {
	return o == OpGreaterThan || o == OpLessThan
}

type Condition struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

// EvaluationError reports a condition that could not be evaluated against
// the facts it was given. The rule owning the condition does not match.
type EvaluationError struct {
	Field    string
	Operator Operator
	Fact     interface{}
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("cannot evaluate %s %s against %v: %v", e.Field, e.Operator, e.Fact, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Validate checks a condition at construction time.
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return &ValidationError{Field: "field", Message: "condition field is required"}
	}
	if !c.Operator.Valid() {
		return &ValidationError{
			Field:   "operator",
			Message: fmt.Sprintf("unknown operator %q (valid: equals, contains, greater_than, less_than)", c.Operator),
		}
	}
	if c.Operator.numeric() {
		if _, err := parseNumber(c.Value); err != nil {
			return &ValidationError{
				Field:   "value",
				Message: fmt.Sprintf("operator %s requires a numeric value, got %v", c.Operator, c.Value),
			}
		}
	}
	return nil
}

// Evaluate tests the condition against a fact map. A field missing from the
// facts never matches and is not an error.
func (c Condition) Evaluate(facts map[string]interface{}) (bool, error) {
	fact, ok := facts[c.Field]
	if !ok {
		return false, nil
	}

	switch c.Operator {
	case OpEquals:
		return reflect.DeepEqual(normalize(fact), normalize(c.Value)), nil
	case OpContains:
		return strings.Contains(containsText(fact), templating.Stringify(c.Value)), nil
	case OpGreaterThan, OpLessThan:
		left, err := parseNumber(fact)
		if err != nil {
			return false, &EvaluationError{Field: c.Field, Operator: c.Operator, Fact: fact, Err: err}
		}
		right, err := parseNumber(c.Value)
		if err != nil {
			return false, &EvaluationError{Field: c.Field, Operator: c.Operator, Fact: fact, Err: err}
		}
		if c.Operator == OpGreaterThan {
			return left > right, nil
		}
		return left < right, nil
	default:
		return false, &EvaluationError{
			Field:    c.Field,
			Operator: c.Operator,
			Fact:     fact,
			Err:      fmt.Errorf("unknown operator"),
		}
	}
}

// EvaluateAll is the conjunction of conds. An empty list matches.
func EvaluateAll(conds []Condition, facts map[string]interface{}) (bool, error) {
	for _, cond := range conds {
		ok, err := cond.Evaluate(facts)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func parseNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(n)), 64)
	}
}

// normalize widens numbers to float64 so that values decoded from JSON
// compare equal to values built in Go. Strings are never coerced.
func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case nil, string, bool, float64:
		return v
	case float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f := reflect.ValueOf(n)
		if f.CanInt() {
			return float64(f.Int())
		}
		if f.CanUint() {
			return float64(f.Uint())
		}
		return f.Float()
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, item := range n {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]interface{}, len(n))
		for i, item := range n {
			out[i] = item
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, item := range n {
			out[k] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// containsText renders a whole float fact with a trailing ".0" so that a score
// of 75 contains both "75" and "75.0".
func containsText(fact interface{}) string {
	text := templating.Stringify(fact)
	if f, ok := fact.(float64); ok && !math.IsInf(f, 0) && f == math.Trunc(f) && !strings.ContainsAny(text, ".e") {
		return text + ".0"
	}
	return text
}
