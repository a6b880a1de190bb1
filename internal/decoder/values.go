package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// displayText renders a scalar payload value as a string. Structured values
// fall back to their canonical JSON form.
func displayText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return canonicalJSON(v)
	}
}

// joinList renders a sequence as a comma separated string of its elements.
func joinList(v any) (string, error) {
	var items []string
	switch t := v.(type) {
	case []any:
		items = make([]string, 0, len(t))
		for _, item := range t {
			s, err := displayText(item)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
	case []string:
		items = t
	default:
		return "", fmt.Errorf("expected a list, got %T", v)
	}
	return strings.Join(items, ", "), nil
}

// canonicalJSON serializes v with sorted map keys and without HTML escaping.
func canonicalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// rawString never fails; it is used where a lossy rendering beats none.
func rawString(v any) string {
	if s, err := canonicalJSON(v); err == nil {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// variant looks up a single enum variant in a JSON-shaped value. Variant keys
// are compared case-insensitively because adapters differ in capitalization.
func variant(v any, name string) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for key, inner := range m {
		if strings.EqualFold(key, name) {
			return inner, true
		}
	}
	return nil, false
}

// unitVariant returns the tag of a field-less enum value, either delivered as a
// bare string or as a single-key object.
func unitVariant(v any) (string, error) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", fmt.Errorf("empty variant")
		}
		return t, nil
	case map[string]any:
		if len(t) != 1 {
			return "", fmt.Errorf("expected single variant, got %d keys", len(t))
		}
		for key := range t {
			return key, nil
		}
	}
	return "", fmt.Errorf("unexpected variant shape %T", v)
}

func toUint8(v any) (uint8, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.ReplaceAll(t, ",", "")
	case float64:
		if t < 0 || t > 255 || t != float64(int(t)) {
			return 0, fmt.Errorf("value out of range: %v", t)
		}
		return uint8(t), nil
	case int:
		if t < 0 || t > 255 {
			return 0, fmt.Errorf("value out of range: %d", t)
		}
		return uint8(t), nil
	default:
		return 0, fmt.Errorf("unexpected number type %T", v)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}
