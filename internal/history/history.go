// Package history builds a faculty member's feedback history across academic
// years, semesters and courses.
//
// Unlike the roll-up package, history works from raw answer counts: all rows
// sharing an (academic year, semester, course) key are pooled before any
// percentage is taken, and the group overall is a flat mean over questions.
package history

import (
	"fmt"
	"sort"
	"strings"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
)

// QuestionTally is the pooled answer count of one question in a history group.
type QuestionTally struct {
	QuestionID  string `json:"question_id"`
	Field       string `json:"field"`
	WeightedSum int    `json:"weighted_sum"`
	Responses   int    `json:"responses"`
	Score       int    `json:"score"`
}

// OfferingSummary is one (academic year, semester, course) group.
type OfferingSummary struct {
	AcademicYear string          `json:"academic_year"`
	Semester     string          `json:"semester"`
	CourseCode   string          `json:"course_code"`
	Responses    int             `json:"responses"`
	Questions    []QuestionTally `json:"questions"`
	Overall      int             `json:"overall"`
	Rating       scoring.Rating  `json:"rating"`
}

// YearTrend summarises every group of one academic year.
type YearTrend struct {
	AcademicYear string         `json:"academic_year"`
	Offerings    int            `json:"offerings"`
	Courses      int            `json:"courses"`
	Responses    int            `json:"responses"`
	Overall      int            `json:"overall"`
	Rating       scoring.Rating `json:"rating"`
}

// CourseSummary summarises every group of one course across years.
type CourseSummary struct {
	CourseCode string         `json:"course_code"`
	Offerings  int            `json:"offerings"`
	Responses  int            `json:"responses"`
	Overall    int            `json:"overall"`
	Rating     scoring.Rating `json:"rating"`
}

// History is the complete feedback history of one staff member.
type History struct {
	StaffID   string            `json:"staff_id"`
	Offerings []OfferingSummary `json:"offerings"`
	Yearly    []YearTrend       `json:"yearly"`
	Courses   []CourseSummary   `json:"courses"`
}

type groupKey struct {
	year, semester, course string
}

// Aggregate builds the history of staffID from rows spanning many offerings.
// Rows belonging to other staff are ignored.
func Aggregate(staffID string, rows []feedback.ResponseRow, schema feedback.Schema) (History, error) {
	if strings.TrimSpace(staffID) == "" {
		return History{}, fmt.Errorf("staff id: %w", feedback.ErrMissingIdentifier)
	}
	if schema.Empty() {
		return History{}, feedback.ErrMissingReferenceData
	}

	groups := map[groupKey][]feedback.ResponseRow{}
	for _, r := range rows {
		if !scoring.MatchesStaff(r, staffID) {
			continue
		}
		k := groupKey{
			year:     strings.TrimSpace(r.AcademicYear),
			semester: strings.TrimSpace(r.Semester),
			course:   feedback.NormalizeID(r.CourseCode),
		}
		groups[k] = append(groups[k], r)
	}
	if len(groups) == 0 {
		return History{}, fmt.Errorf("staff %s: %w", staffID, feedback.ErrNoMatchingResponses)
	}

	questions := schema.Questions()
	h := History{StaffID: strings.TrimSpace(staffID)}
	for k, grp := range groups {
		h.Offerings = append(h.Offerings, summarize(k, grp, questions))
	}
	sortOfferings(h.Offerings)
	h.Yearly = yearly(h.Offerings)
	h.Courses = courses(h.Offerings)
	return h, nil
}

func summarize(k groupKey, rows []feedback.ResponseRow, questions []feedback.Question) OfferingSummary {
	s := OfferingSummary{
		AcademicYear: k.year,
		Semester:     k.semester,
		CourseCode:   k.course,
		Responses:    len(rows),
	}
	sum := 0
	for _, q := range questions {
		qt := QuestionTally{QuestionID: q.ID, Field: q.Field}
		for _, r := range rows {
			o, _ := r.Answer(q.Field)
			if !o.Valid() {
				continue
			}
			qt.WeightedSum += o.Points()
			qt.Responses++
		}
		if qt.Responses == 0 {
			continue
		}
		qt.Score = scoring.WeightedPercent(qt.WeightedSum, qt.Responses)
		s.Questions = append(s.Questions, qt)
		sum += qt.Score
	}
	s.Overall = scoring.Mean(sum, len(s.Questions))
	s.Rating = scoring.Classify(s.Overall)
	return s
}

// sortOfferings orders by academic year desc, semester desc, course asc.
func sortOfferings(offerings []OfferingSummary) {
	sort.Slice(offerings, func(i, j int) bool {
		a, b := offerings[i], offerings[j]
		if a.AcademicYear != b.AcademicYear {
			return a.AcademicYear > b.AcademicYear
		}
		if a.Semester != b.Semester {
			return a.Semester > b.Semester
		}
		return a.CourseCode < b.CourseCode
	})
}

func yearly(offerings []OfferingSummary) []YearTrend {
	type acc struct {
		trend   YearTrend
		sum     int
		courses map[string]struct{}
	}
	byYear := map[string]*acc{}
	var order []string
	for _, o := range offerings {
		a, ok := byYear[o.AcademicYear]
		if !ok {
			a = &acc{trend: YearTrend{AcademicYear: o.AcademicYear}, courses: map[string]struct{}{}}
			byYear[o.AcademicYear] = a
			order = append(order, o.AcademicYear)
		}
		a.trend.Offerings++
		a.trend.Responses += o.Responses
		a.sum += o.Overall
		a.courses[o.CourseCode] = struct{}{}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(order)))
	out := make([]YearTrend, 0, len(order))
	for _, y := range order {
		a := byYear[y]
		a.trend.Courses = len(a.courses)
		a.trend.Overall = scoring.Mean(a.sum, a.trend.Offerings)
		a.trend.Rating = scoring.Classify(a.trend.Overall)
		out = append(out, a.trend)
	}
	return out
}

func courses(offerings []OfferingSummary) []CourseSummary {
	type acc struct {
		summary CourseSummary
		sum     int
	}
	byCourse := map[string]*acc{}
	var order []string
	for _, o := range offerings {
		a, ok := byCourse[o.CourseCode]
		if !ok {
			a = &acc{summary: CourseSummary{CourseCode: o.CourseCode}}
			byCourse[o.CourseCode] = a
			order = append(order, o.CourseCode)
		}
		a.summary.Offerings++
		a.summary.Responses += o.Responses
		a.sum += o.Overall
	}

	sort.Strings(order)
	out := make([]CourseSummary, 0, len(order))
	for _, c := range order {
		a := byCourse[c]
		a.summary.Overall = scoring.Mean(a.sum, a.summary.Offerings)
		a.summary.Rating = scoring.Classify(a.summary.Overall)
		out = append(out, a.summary)
	}
	return out
}
