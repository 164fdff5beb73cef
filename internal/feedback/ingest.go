package feedback

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ParseOrdinal converts a raw stored answer into an Ordinal. Values other than
// 1, 2 or 3 (including nil and floats with a fraction) become NoAnswer.
func ParseOrdinal(raw any) Ordinal {
	var n int64
	switch v := raw.(type) {
	case nil:
		return NoAnswer
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != float64(int64(v)) {
			return NoAnswer
		}
		n = int64(v)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 8)
		if err != nil {
			return NoAnswer
		}
		n = i
	default:
		return NoAnswer
	}
	o := Ordinal(n)
	if n < int64(Poor) || n > int64(Good) {
		return NoAnswer
	}
	return o
}

// ParseAnswers validates a raw answer map once, at ingestion.
func ParseAnswers(raw map[string]any) map[string]Ordinal {
	answers := make(map[string]Ordinal, len(raw))
	for field, v := range raw {
		answers[field] = ParseOrdinal(v)
	}
	return answers
}

// CGPAString renders a stored CGPA bracket value as text without coercion.
// Floating-point values keep their decimal point, so a stored 1.0 reads
// "1.0" and is not mistaken for bracket "1".
func CGPAString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return fmt.Sprint(v)
	}
}

var upper = cases.Upper(language.Und)

// NormalizeSectionName trims and uppercases a section name for set membership.
func NormalizeSectionName(name string) string {
	return upper.String(strings.TrimSpace(name))
}
