package scoring

import (
	"strings"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

var bracketLabels = [3]string{"1", "2", "3"}

// Segments partitions a row set by self-reported CGPA bracket.
type Segments struct {
	Brackets [3][]feedback.ResponseRow
	Unknown  []feedback.ResponseRow
}

// Segment splits rows on the trimmed CGPA bracket string. Only the exact
// strings "1", "2" and "3" are recognized; "1.0" and the like land in Unknown.
func Segment(rows []feedback.ResponseRow) Segments {
	var s Segments
	for _, r := range rows {
		switch strings.TrimSpace(r.CGPABracket) {
		case bracketLabels[0]:
			s.Brackets[0] = append(s.Brackets[0], r)
		case bracketLabels[1]:
			s.Brackets[1] = append(s.Brackets[1], r)
		case bracketLabels[2]:
			s.Brackets[2] = append(s.Brackets[2], r)
		default:
			s.Unknown = append(s.Unknown, r)
		}
	}
	return s
}

// Known returns the number of rows with a recognized bracket.
func (s Segments) Known() int {
	return len(s.Brackets[0]) + len(s.Brackets[1]) + len(s.Brackets[2])
}

// Percentage returns bracket i's share of the known-bracket rows (i is 0-based).
func (s Segments) Percentage(i int) int {
	return Percent(len(s.Brackets[i]), s.Known())
}

// BracketScore is a full re-score of one CGPA bracket.
type BracketScore struct {
	Bracket    string         `json:"bracket"`
	Responses  int            `json:"responses"`
	Percentage int            `json:"percentage"`
	Sections   []SectionScore `json:"sections"`
	Overall    int            `json:"overall"`
	Rating     Rating         `json:"rating"`
}

// Segmentation holds the three bracket scorecards and their summary counts.
type Segmentation struct {
	Brackets         []BracketScore `json:"brackets"`
	KnownResponses   int            `json:"known_responses"`
	UnknownResponses int            `json:"unknown_responses"`
}

// ScoreSegments re-runs the model on each CGPA bracket of rows.
func (m *Model) ScoreSegments(rows []feedback.ResponseRow, schema feedback.Schema) Segmentation {
	segs := Segment(rows)
	out := Segmentation{
		KnownResponses:   segs.Known(),
		UnknownResponses: len(segs.Unknown),
	}
	for i, label := range bracketLabels {
		res := m.Score(segs.Brackets[i], schema)
		out.Brackets = append(out.Brackets, BracketScore{
			Bracket:    label,
			Responses:  len(segs.Brackets[i]),
			Percentage: segs.Percentage(i),
			Sections:   res.Sections,
			Overall:    res.Overall,
			Rating:     Classify(res.Overall),
		})
	}
	return out
}
