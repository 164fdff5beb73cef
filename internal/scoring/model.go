// Package scoring turns response rows into question, section and overall
// quality scores. Everything here is pure: no I/O, no shared state.
package scoring

import (
	"math"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

// DefaultExcludedSections are reported individually but never feed OverallScore.
var DefaultExcludedSections = []string{
	"COURSE CONTENT AND STRUCTURE",
	"STUDENT-CENTRIC FACTORS",
}

// QuestionScore is the weighted percentage for one question over a row set.
type QuestionScore struct {
	QuestionID string `json:"question_id"`
	Field      string `json:"field"`
	Text       string `json:"text,omitempty"`
	Counts     [3]int `json:"counts"`
	Responses  int    `json:"responses"`
	Score      int    `json:"score"`
}

// WeightedSum returns the accumulated points of the tallied answers.
func (q QuestionScore) WeightedSum() int {
	return q.Counts[1]*feedback.Fair.Points() + q.Counts[2]*feedback.Good.Points()
}

// SectionScore is the rounded mean of a section's question scores.
type SectionScore struct {
	Name      string          `json:"name"`
	Score     int             `json:"score"`
	Excluded  bool            `json:"excluded"`
	Questions []QuestionScore `json:"questions"`
}

// Result is a fully scored row set.
type Result struct {
	Sections  []SectionScore `json:"sections"`
	Overall   int            `json:"overall"`
	Responses int            `json:"responses"`
}

// Model scores row sets against a survey schema.
type Model struct {
	excluded map[string]struct{}
}

// Option configures a Model.
type Option func(*Model)

// WithExcludedSections replaces the set of section names kept out of OverallScore.
// Names are compared trimmed and uppercased.
func WithExcludedSections(names ...string) Option {
	return func(m *Model) {
		m.excluded = make(map[string]struct{}, len(names))
		for _, n := range names {
			m.excluded[feedback.NormalizeSectionName(n)] = struct{}{}
		}
	}
}

// NewModel creates a scoring model with the default exclusion set.
func NewModel(opts ...Option) *Model {
	m := &Model{}
	WithExcludedSections(DefaultExcludedSections...)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Excluded reports whether the named section is kept out of OverallScore.
func (m *Model) Excluded(section string) bool {
	_, ok := m.excluded[feedback.NormalizeSectionName(section)]
	return ok
}

// ScoreQuestion tallies the answers stored under field. Rows without a valid
// ordinal do not count toward the denominator.
func ScoreQuestion(rows []feedback.ResponseRow, field string) QuestionScore {
	qs := QuestionScore{Field: field}
	for _, r := range rows {
		o, _ := r.Answer(field)
		if !o.Valid() {
			continue
		}
		qs.Counts[o-1]++
	}
	qs.Responses = qs.Counts[0] + qs.Counts[1] + qs.Counts[2]
	qs.Score = roundQuestion(qs.WeightedSum(), qs.Responses*feedback.MaxPoints)
	return qs
}

// ScoreSection scores every question of sec whose field appears in rows and
// averages the results. ok is false when no question of the section could be
// scored, in which case the section takes no part in any average.
func (m *Model) ScoreSection(rows []feedback.ResponseRow, sec feedback.Section) (SectionScore, bool) {
	ss := SectionScore{
		Name:     sec.Name,
		Excluded: m.Excluded(sec.Name),
	}
	sum := 0
	for _, q := range sec.Questions {
		if !fieldPresent(rows, q.Field) {
			continue
		}
		qs := ScoreQuestion(rows, q.Field)
		qs.QuestionID = q.ID
		qs.Text = q.Text
		ss.Questions = append(ss.Questions, qs)
		sum += qs.Score
	}
	if len(ss.Questions) == 0 {
		return ss, false
	}
	ss.Score = roundSection(sum, len(ss.Questions))
	return ss, true
}

// ScoreOverall averages the section scores of all non-excluded sections.
func (m *Model) ScoreOverall(rows []feedback.ResponseRow, sections []feedback.Section) int {
	return m.Score(rows, feedback.Schema{Sections: sections}).Overall
}

// Score computes every section score and the exclusion-aware overall score.
func (m *Model) Score(rows []feedback.ResponseRow, schema feedback.Schema) Result {
	res := Result{Responses: len(rows)}
	for _, sec := range schema.Sections {
		ss, ok := m.ScoreSection(rows, sec)
		if !ok {
			continue
		}
		res.Sections = append(res.Sections, ss)
	}
	res.Overall = overall(res.Sections)
	return res
}

func overall(sections []SectionScore) int {
	sum, n := 0, 0
	for _, ss := range sections {
		if ss.Excluded {
			continue
		}
		sum += ss.Score
		n++
	}
	return roundOverall(sum, n)
}

func fieldPresent(rows []feedback.ResponseRow, field string) bool {
	for _, r := range rows {
		if _, ok := r.Answer(field); ok {
			return true
		}
	}
	return false
}

// roundQuestion converts accumulated points into a percentage of maxPossible.
func roundQuestion(weightedSum, maxPossible int) int {
	if maxPossible <= 0 {
		return 0
	}
	return roundHalfAwayFromZero(float64(weightedSum*100) / float64(maxPossible))
}

// roundSection averages integer question scores.
func roundSection(sum, n int) int {
	return Mean(sum, n)
}

// roundOverall averages integer section scores.
func roundOverall(sum, n int) int {
	return Mean(sum, n)
}

// Mean returns round(sum/n), or 0 when n is 0.
func Mean(sum, n int) int {
	if n <= 0 {
		return 0
	}
	return roundHalfAwayFromZero(float64(sum) / float64(n))
}

// Percent returns round(part/whole·100), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return roundHalfAwayFromZero(float64(part*100) / float64(whole))
}

// WeightedPercent is the question formula applied to pre-accumulated counts.
func WeightedPercent(weightedSum, responses int) int {
	return roundQuestion(weightedSum, responses*feedback.MaxPoints)
}

func roundHalfAwayFromZero(x float64) int {
	return int(math.Round(x))
}
