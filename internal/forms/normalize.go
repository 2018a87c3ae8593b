package forms

import (
	"fmt"
	"strings"
)

// Submission is a normalized payload: canonical field name to value, with
// absent optional fields simply missing from the map.
type Submission struct {
	Form   FormType
	Values map[string]string
}

// Get returns the value for a canonical field name
func (s *Submission) Get(name string) (string, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// ValidationError reports required canonical fields that could not be
// satisfied by any accepted alias. Raw carries the original payload so an
// operator can see what the form actually sent.
type ValidationError struct {
	Form    FormType
	Missing []string
	Raw     map[string]interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form %s missing required fields: %s", e.Form, strings.Join(e.Missing, ", "))
}

// Normalize maps a raw payload onto the canonical field set for the given
// form type. For each canonical field the accepted aliases are scanned in
// declared order and the first non-empty match wins; later aliases are
// ignored even when also present. Unknown keys are ignored. Nested values
// are not iterated. When any required field ends up absent or empty the
// whole payload is rejected with a ValidationError naming the missing
// canonical fields.
func Normalize(raw map[string]interface{}, ft FormType) (*Submission, error) {
	if !ft.Valid() {
		return nil, fmt.Errorf("unknown form type: %q", ft)
	}

	sub := &Submission{
		Form:   ft,
		Values: make(map[string]string),
	}

	var missing []string
	for _, field := range Fields(ft) {
		value, ok := resolveAlias(raw, field.Aliases)
		if ok {
			sub.Values[field.Name] = value
		} else if field.Required {
			missing = append(missing, field.Name)
		}
	}

	if len(missing) > 0 {
		return nil, &ValidationError{Form: ft, Missing: missing, Raw: raw}
	}

	return sub, nil
}

// resolveAlias scans aliases in priority order and returns the first value
// present in raw that is more than whitespace.
func resolveAlias(raw map[string]interface{}, aliases []string) (string, bool) {
	for _, alias := range aliases {
		v, ok := raw[alias]
		if !ok || v == nil {
			continue
		}
		s := coerceValue(v)
		if strings.TrimSpace(s) == "" {
			continue
		}
		return s, true
	}
	return "", false
}

// coerceValue renders a raw payload value as a string. Form bodies arrive as
// strings; JSON bodies may carry numbers or booleans for the same field, so
// scalars are formatted rather than rejected. Composite values stay opaque.
func coerceValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64, float32, int, int32, int64, uint, uint32, uint64, bool:
		return fmt.Sprintf("%v", t)
	default:
		// Maps and slices are not flattened; their textual form is still
		// better diagnosis material than silently dropping the key.
		return fmt.Sprintf("%v", t)
	}
}
