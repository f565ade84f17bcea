package template

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	apperrors "notification-workers/internal/common/errors"
)

// placeholderPattern matches {{ variable }} placeholders. Identifiers start
// with an ASCII letter or underscore followed by letters, digits or
// underscores; anything else is left untouched in the output.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Renderer performs flat variable substitution on template strings. No
// control-flow constructs are supported.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// ExtractVariables returns the sorted set of distinct placeholder names in
// the template string. An empty template yields an empty set.
func (r *Renderer) ExtractVariables(templateString string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(templateString, -1)
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		seen[m[1]] = struct{}{}
	}

	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// ValidateVariables checks that every placeholder in the template has a key
// in data. Extra keys in data are ignored. The returned slice holds the
// missing names in sorted order.
func (r *Renderer) ValidateVariables(templateString string, data map[string]interface{}) (bool, []string) {
	required := r.ExtractVariables(templateString)

	var missing []string
	for _, v := range required {
		if _, ok := data[v]; !ok {
			missing = append(missing, v)
		}
	}

	return len(missing) == 0, missing
}

// Render substitutes every placeholder with its value from data. Strict
// mode: a placeholder absent from data fails with MISSING_VARIABLES rather
// than emitting a blank or leaving the placeholder literal.
func (r *Renderer) Render(templateString string, data map[string]interface{}) (string, error) {
	ok, missing := r.ValidateVariables(templateString, data)
	if !ok {
		return "", apperrors.NewMissingVariablesError(missing)
	}

	rendered := placeholderPattern.ReplaceAllStringFunc(templateString, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return formatValue(data[name])
	})

	return rendered, nil
}

// formatValue converts a template value to its canonical string form:
// strings verbatim, booleans as true/false, numbers in plain decimal
// notation without an exponent.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// joinVariables merges variable sets, deduplicating and sorting. Used to
// combine body and subject variables.
func joinVariables(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, v := range set {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
