package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// builtins is the fixed converter vocabulary available to field mappings.
var builtins = map[string]Func{
	"toUpperCase":  toUpperCase,
	"toLowerCase":  toLowerCase,
	"trim":         trim,
	"toString":     toString,
	"toNumber":     toNumber,
	"toBoolean":    toBoolean,
	"formatDate":   formatDate,
	"mapGender":    mapGender,
	"generateUUID": generateUUID,
}

// stringify coerces any scalar to its string form. Explicit nulls become
// the empty string.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toUpperCase(v any) (any, error) {
	return strings.ToUpper(stringify(v)), nil
}

func toLowerCase(v any) (any, error) {
	return strings.ToLower(stringify(v)), nil
}

func trim(v any) (any, error) {
	return strings.TrimSpace(stringify(v)), nil
}

func toString(v any) (any, error) {
	return stringify(v), nil
}

// toNumber converts numeric types and numeric strings to float64.
// Booleans and non-numeric strings fail.
func toNumber(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return nil, fmt.Errorf("cannot convert empty string to number")
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to number", n)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to number", v)
	}
}

// toBoolean accepts booleans, numbers (0 is false, anything else true) and
// the string set {true,false,1,0,yes,no} case-insensitively.
func toBoolean(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case int64:
		return b != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("cannot convert %q to boolean", b)
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

// dateLayouts are tried in order by formatDate for string input.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	time.RFC1123,
}

// formatDate parses a timestamp and re-emits it as RFC 3339 UTC. Numeric
// input is interpreted as a Unix epoch (milliseconds when it is too large
// to be plausible seconds).
func formatDate(v any) (any, error) {
	switch d := v.(type) {
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(time.RFC3339), nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as a date", d)
	case float64:
		return epochToRFC3339(int64(d)), nil
	case int:
		return epochToRFC3339(int64(d)), nil
	case int64:
		return epochToRFC3339(d), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to a date", v)
	}
}

func epochToRFC3339(epoch int64) string {
	// Epochs past the year 33658 in seconds are really milliseconds.
	if epoch > 1e12 {
		return time.UnixMilli(epoch).UTC().Format(time.RFC3339)
	}
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}

// genderAliases normalizes the common spellings. Matching is trimmed and
// case-insensitive.
var genderAliases = map[string]string{
	"m":           "male",
	"male":        "male",
	"man":         "male",
	"f":           "female",
	"female":      "female",
	"woman":       "female",
	"o":           "other",
	"other":       "other",
	"non-binary":  "other",
	"nonbinary":   "other",
	"u":           "unknown",
	"unknown":     "unknown",
	"undisclosed": "unknown",
	"unspecified": "unknown",
}

// mapGender normalizes gender values. Unrecognized input passes through
// unchanged; this converter is intentionally lenient and never fails.
func mapGender(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if normalized, ok := genderAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return normalized, nil
	}
	return v, nil
}

// generateUUID ignores its input and emits a fresh random v4 identifier.
func generateUUID(any) (any, error) {
	return uuid.NewString(), nil
}
