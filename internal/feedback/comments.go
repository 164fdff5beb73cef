package feedback

import "strings"

// Comments returns the free-text comments worth classifying: trimmed,
// non-empty and longer than a single word.
func Comments(rows []ResponseRow) []string {
	var out []string
	for _, r := range rows {
		c := strings.TrimSpace(r.Comment)
		if len(strings.Fields(c)) < 2 {
			continue
		}
		out = append(out, c)
	}
	return out
}
