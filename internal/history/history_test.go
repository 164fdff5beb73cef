package history_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/history"
)

var schema = feedback.Schema{Sections: []feedback.Section{
	{Name: "Teaching", Questions: []feedback.Question{{ID: "T1", Field: "q1"}}},
	{Name: "COURSE CONTENT AND STRUCTURE", Questions: []feedback.Question{{ID: "C1", Field: "q2"}}},
}}

// offering builds rows for one offering with the given q1 answer counts.
func offering(year, sem, course string, poor, fair, good int) []feedback.ResponseRow {
	var rows []feedback.ResponseRow
	add := func(n int, o feedback.Ordinal) {
		for i := 0; i < n; i++ {
			rows = append(rows, feedback.ResponseRow{
				AcademicYear: year,
				Semester:     sem,
				CourseCode:   course,
				StaffID:      "S1",
				Answers:      map[string]feedback.Ordinal{"q1": o},
			})
		}
	}
	add(poor, feedback.Poor)
	add(fair, feedback.Fair)
	add(good, feedback.Good)
	return rows
}

func concat(sets ...[]feedback.ResponseRow) []feedback.ResponseRow {
	var out []feedback.ResponseRow
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

func TestAggregate_PoolsCountsWithinGroup(t *testing.T) {
	// {0,5,5} + {0,0,10}: 35 points of 40 possible = 87.5 → 88.
	rows := concat(
		offering("2024-25", "ODD", "CS101", 0, 5, 5),
		offering("2024-25", "ODD", "CS101", 0, 0, 10),
	)

	h, err := history.Aggregate("S1", rows, schema)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(h.Offerings) != 1 {
		t.Fatalf("len(Offerings) = %d, want 1", len(h.Offerings))
	}
	g := h.Offerings[0]
	if g.Responses != 20 {
		t.Errorf("Responses = %d, want 20", g.Responses)
	}
	if g.Questions[0].WeightedSum != 35 || g.Questions[0].Responses != 20 {
		t.Errorf("tally = %d/%d, want 35/20", g.Questions[0].WeightedSum, g.Questions[0].Responses)
	}
	if g.Overall != 88 {
		t.Errorf("Overall = %d, want 88", g.Overall)
	}
}

func TestAggregate_AccumulationDiffersFromAveraging(t *testing.T) {
	// One fair answer scores 50 alone; three good answers score 100 alone.
	// Averaging those would give 75, pooling gives 7/8 = 87.5 → 88.
	rows := concat(
		offering("2024-25", "ODD", "CS101", 0, 1, 0),
		offering("2024-25", "ODD", "CS101", 0, 0, 3),
	)

	h, err := history.Aggregate("S1", rows, schema)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got := h.Offerings[0].Overall; got != 88 {
		t.Errorf("Overall = %d, want 88 (pooled), not 75 (averaged)", got)
	}
}

func TestAggregate_FlatMeanIgnoresSectionExclusion(t *testing.T) {
	rows := []feedback.ResponseRow{
		{AcademicYear: "2024-25", Semester: "ODD", CourseCode: "CS101", StaffID: "S1",
			Answers: map[string]feedback.Ordinal{"q1": feedback.Good, "q2": feedback.Poor}},
	}
	h, err := history.Aggregate("S1", rows, schema)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got := h.Offerings[0].Overall; got != 50 {
		t.Errorf("Overall = %d, want 50 (excluded section counts in history)", got)
	}
}

func TestAggregate_SortOrderAndTrends(t *testing.T) {
	rows := concat(
		offering("2023-24", "EVEN", "CS201", 0, 0, 4), // 100
		offering("2024-25", "ODD", "CS101", 0, 4, 0),  // 50
		offering("2024-25", "EVEN", "CS301", 4, 0, 0), // 0
		offering("2024-25", "EVEN", "CS101", 0, 2, 2), // 75
		offering("2023-24", "EVEN", "CS101", 0, 0, 2), // 100
	)
	// Another lecturer's rows never leak in.
	other := offering("2024-25", "ODD", "CS101", 9, 0, 0)
	for i := range other {
		other[i].StaffID = "S2"
	}
	rows = append(rows, other...)

	h, err := history.Aggregate(" s1 ", rows, schema)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	wantOrder := []struct{ year, sem, course string }{
		{"2024-25", "ODD", "CS101"},
		{"2024-25", "EVEN", "CS101"},
		{"2024-25", "EVEN", "CS301"},
		{"2023-24", "EVEN", "CS101"},
		{"2023-24", "EVEN", "CS201"},
	}
	if len(h.Offerings) != len(wantOrder) {
		t.Fatalf("len(Offerings) = %d, want %d", len(h.Offerings), len(wantOrder))
	}
	for i, w := range wantOrder {
		o := h.Offerings[i]
		if o.AcademicYear != w.year || o.Semester != w.sem || o.CourseCode != w.course {
			t.Errorf("Offerings[%d] = %s %s %s, want %s %s %s",
				i, o.AcademicYear, o.Semester, o.CourseCode, w.year, w.sem, w.course)
		}
	}
	if h.Offerings[0].Overall != 50 {
		t.Errorf("2024-25 ODD CS101 = %d, want 50 (S2 rows excluded)", h.Offerings[0].Overall)
	}

	if len(h.Yearly) != 2 {
		t.Fatalf("len(Yearly) = %d, want 2", len(h.Yearly))
	}
	y0, y1 := h.Yearly[0], h.Yearly[1]
	// (50 + 75 + 0) / 3 = 41.67 → 42
	if y0.AcademicYear != "2024-25" || y0.Overall != 42 || y0.Courses != 2 || y0.Offerings != 3 {
		t.Errorf("Yearly[0] = %+v, want 2024-25 42 over 3 offerings of 2 courses", y0)
	}
	if y1.AcademicYear != "2023-24" || y1.Overall != 100 || y1.Courses != 2 {
		t.Errorf("Yearly[1] = %+v, want 2023-24 100 with 2 courses", y1)
	}

	wantCourses := []struct {
		code      string
		offerings int
		responses int
		overall   int
	}{
		// (50 + 75 + 100) / 3 = 75
		{"CS101", 3, 10, 75},
		{"CS201", 1, 4, 100},
		{"CS301", 1, 4, 0},
	}
	if len(h.Courses) != len(wantCourses) {
		t.Fatalf("len(Courses) = %d, want %d", len(h.Courses), len(wantCourses))
	}
	for i, w := range wantCourses {
		c := h.Courses[i]
		if c.CourseCode != w.code || c.Offerings != w.offerings || c.Responses != w.responses || c.Overall != w.overall {
			t.Errorf("Courses[%d] = %+v, want %+v", i, c, w)
		}
	}
}

func TestAggregate_Errors(t *testing.T) {
	rows := offering("2024-25", "ODD", "CS101", 0, 1, 0)

	if _, err := history.Aggregate("  ", rows, schema); !errors.Is(err, feedback.ErrMissingIdentifier) {
		t.Errorf("blank staff: error = %v, want ErrMissingIdentifier", err)
	}
	if _, err := history.Aggregate("S1", rows, feedback.Schema{}); !errors.Is(err, feedback.ErrMissingReferenceData) {
		t.Errorf("no schema: error = %v, want ErrMissingReferenceData", err)
	}
	if _, err := history.Aggregate("S9", rows, schema); !errors.Is(err, feedback.ErrNoMatchingResponses) {
		t.Errorf("unknown staff: error = %v, want ErrNoMatchingResponses", err)
	}
}
