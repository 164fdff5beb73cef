package scoring

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

// OfferingScorecard is the complete score of one faculty-course offering.
type OfferingScorecard struct {
	Offering       feedback.OfferingKey `json:"offering"`
	Sections       []SectionScore       `json:"sections"`
	Overall        int                  `json:"overall"`
	Rating         Rating               `json:"rating"`
	Segments       Segmentation         `json:"segments"`
	TotalResponses int                  `json:"total_responses"`
}

// Section returns the named section score, if it was scored.
func (c OfferingScorecard) Section(name string) (SectionScore, bool) {
	for _, s := range c.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return SectionScore{}, false
}

// ScoreOffering scores rows for the offering identified by key. Rows are
// filtered again on course code and on staff id or alternate staff id, so
// stray whitespace or case differences upstream do not leak other offerings in.
func (m *Model) ScoreOffering(rows []feedback.ResponseRow, schema feedback.Schema, key feedback.OfferingKey) (OfferingScorecard, error) {
	if strings.TrimSpace(key.StaffID) == "" {
		return OfferingScorecard{}, fmt.Errorf("staff id: %w", feedback.ErrMissingIdentifier)
	}
	if strings.TrimSpace(key.CourseCode) == "" {
		return OfferingScorecard{}, fmt.Errorf("course code: %w", feedback.ErrMissingIdentifier)
	}
	if schema.Empty() {
		return OfferingScorecard{}, feedback.ErrMissingReferenceData
	}

	matched := FilterOffering(rows, key.CourseCode, key.StaffID)
	if len(matched) == 0 {
		return OfferingScorecard{}, fmt.Errorf("%s: %w", key, feedback.ErrNoMatchingResponses)
	}

	res := m.Score(matched, schema)
	return OfferingScorecard{
		Offering:       key,
		Sections:       res.Sections,
		Overall:        res.Overall,
		Rating:         Classify(res.Overall),
		Segments:       m.ScoreSegments(matched, schema),
		TotalResponses: len(matched),
	}, nil
}

// FilterOffering keeps rows whose course matches and whose staff id or
// alternate staff id matches.
func FilterOffering(rows []feedback.ResponseRow, courseCode, staffID string) []feedback.ResponseRow {
	var out []feedback.ResponseRow
	for _, r := range rows {
		if !feedback.SameID(r.CourseCode, courseCode) {
			continue
		}
		if !MatchesStaff(r, staffID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MatchesStaff reports whether the row belongs to staffID through either id column.
func MatchesStaff(r feedback.ResponseRow, staffID string) bool {
	if feedback.SameID(r.StaffID, staffID) {
		return true
	}
	return strings.TrimSpace(r.AltStaffID) != "" && feedback.SameID(r.AltStaffID, staffID)
}
