package templating

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"leadflow/pkg/models"
)

// Render substitutes every declared variable of tpl into its subject and
// body. A placeholder is the variable name in braces, e.g. {first_name}.
// Declared variables missing from vars render as the empty string;
// placeholders that are not declared are left as they are.
func Render(tpl *models.EmailTemplate, vars map[string]interface{}) (subject, body string) {
	subject, body = tpl.Subject, tpl.Body
	if len(tpl.Variables) == 0 {
		return subject, body
	}

	pairs := make([]string, 0, len(tpl.Variables)*2)
	for _, name := range tpl.Variables {
		pairs = append(pairs, "{"+name+"}", Stringify(vars[name]))
	}
	r := strings.NewReplacer(pairs...)

	return r.Replace(subject), r.Replace(body)
}

// Stringify is the string form used for template values and for substring
// matching in conditions. nil is the empty string.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case json.Number:
		return val.String()
	case []string, []interface{}, map[string]interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
