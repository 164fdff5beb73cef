// Package feedback defines the survey reference data and response rows
// consumed by the scoring engine.
package feedback

import "strings"

// Ordinal is a validated answer tier. NoAnswer marks a null or unrecognized value.
type Ordinal int8

const (
	NoAnswer Ordinal = 0
	Poor     Ordinal = 1
	Fair     Ordinal = 2
	Good     Ordinal = 3
)

// Valid reports whether o is one of the three answer tiers.
func (o Ordinal) Valid() bool {
	return o >= Poor && o <= Good
}

// Points returns the weight of an answer tier: 1→0, 2→1, 3→2.
func (o Ordinal) Points() int {
	if !o.Valid() {
		return 0
	}
	return int(o) - 1
}

// MaxPoints is the weight of the best answer tier.
const MaxPoints = 2

// Option is one selectable answer of a question.
type Option struct {
	Label Ordinal `json:"label" yaml:"label"`
	Text  string  `json:"text" yaml:"text"`
}

// Points returns the option's weight, derived from its label.
func (o Option) Points() int {
	return o.Label.Points()
}

// Question is a single survey item. Field names the response-row key it reads.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Field   string   `json:"field" yaml:"field"`
	Options []Option `json:"options,omitempty" yaml:"options"`
}

// Section groups questions under a reporting heading.
type Section struct {
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Schema is the full question set of a survey, grouped by section.
type Schema struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// Empty reports whether the schema has no scorable question.
func (s Schema) Empty() bool {
	for _, sec := range s.Sections {
		if len(sec.Questions) > 0 {
			return false
		}
	}
	return true
}

// Questions returns every question across all sections in schema order.
func (s Schema) Questions() []Question {
	var qs []Question
	for _, sec := range s.Sections {
		qs = append(qs, sec.Questions...)
	}
	return qs
}

// ResponseRow is one respondent's answers plus the offering context it belongs to.
type ResponseRow struct {
	Degree       string             `json:"degree"`
	AcademicYear string             `json:"academic_year"`
	Semester     string             `json:"semester"`
	OfferingDept string             `json:"offering_dept"`
	CourseCode   string             `json:"course_code"`
	StaffID      string             `json:"staff_id"`
	AltStaffID   string             `json:"alt_staff_id,omitempty"`
	Comment      string             `json:"comment,omitempty"`
	CGPABracket  string             `json:"cgpa_bracket,omitempty"`
	Answers      map[string]Ordinal `json:"answers"`
}

// Answer returns the ordinal stored for field and whether the field exists on the row.
func (r ResponseRow) Answer(field string) (Ordinal, bool) {
	o, ok := r.Answers[field]
	return o, ok
}

// OfferingKey identifies one faculty-course offering within a filter context.
type OfferingKey struct {
	Degree       string `json:"degree,omitempty"`
	AcademicYear string `json:"academic_year,omitempty"`
	Semester     string `json:"semester,omitempty"`
	OfferingDept string `json:"offering_dept,omitempty"`
	CourseCode   string `json:"course_code"`
	StaffID      string `json:"staff_id"`
}

// String renders the key for logs.
func (k OfferingKey) String() string {
	return k.CourseCode + "/" + k.StaffID
}

// SameID compares identifiers the way upstream data entry demands:
// surrounding whitespace and letter case are ignored.
func SameID(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Department is reference data describing where an offering department sits
// in the institution.
type Department struct {
	Code     string `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	School   string `json:"school" yaml:"school"`
}

// NormalizeID folds an identifier for map lookups.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
