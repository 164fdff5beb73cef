package rollup_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/rollup"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
)

func card(dept, course string, overall int, sections ...scoring.SectionScore) scoring.OfferingScorecard {
	return scoring.OfferingScorecard{
		Offering: feedback.OfferingKey{OfferingDept: dept, CourseCode: course, StaffID: "S-" + course},
		Sections: sections,
		Overall:  overall,
		Rating:   scoring.Classify(overall),
	}
}

func section(name string, score int, questions ...scoring.QuestionScore) scoring.SectionScore {
	return scoring.SectionScore{Name: name, Score: score, Questions: questions}
}

func question(id string, score, responses int) scoring.QuestionScore {
	return scoring.QuestionScore{QuestionID: id, Score: score, Responses: responses}
}

func TestStrategiesAreIndependent(t *testing.T) {
	cards := []scoring.OfferingScorecard{
		card("CSE", "CS101", 79),
		card("CSE", "CS102", 81),
	}

	avg := rollup.Average("CSE", cards)
	if avg.Overall != 80 {
		t.Errorf("Average().Overall = %d, want 80", avg.Overall)
	}
	if avg.Rating != scoring.Complied {
		t.Errorf("Average().Rating = %q, want Complied", avg.Rating)
	}

	tc := rollup.CountThreshold("CSE", cards)
	if tc.Percent != 50 {
		t.Errorf("CountThreshold().Percent = %d, want 50", tc.Percent)
	}
	if tc.AtOrAbove != 1 || tc.Below != 1 || tc.Total != 2 {
		t.Errorf("counts = %d/%d/%d, want 1/1/2", tc.AtOrAbove, tc.Below, tc.Total)
	}
}

func TestAverage_OneOfferingOneVote(t *testing.T) {
	big := card("CSE", "CS101", 90, section("Teaching", 90, question("T1", 90, 500)))
	small := card("CSE", "CS102", 60, section("Teaching", 60, question("T1", 60, 3)))

	avg := rollup.Average("CSE", []scoring.OfferingScorecard{big, small})

	sec, ok := avg.Section("Teaching")
	if !ok {
		t.Fatal("Teaching section missing")
	}
	if sec.Score != 75 {
		t.Errorf("Teaching = %d, want 75 regardless of response counts", sec.Score)
	}
	if len(sec.Questions) != 1 || sec.Questions[0].Score != 75 {
		t.Errorf("Questions = %+v, want T1 = 75", sec.Questions)
	}
}

func TestAverage_SectionsOnlyCountOfferingsThatScoredThem(t *testing.T) {
	cards := []scoring.OfferingScorecard{
		card("CSE", "CS101", 80, section("Teaching", 80), section("Labs", 70)),
		card("CSE", "CS102", 60, section("Teaching", 60)),
	}
	avg := rollup.Average("CSE", cards)

	labs, ok := avg.Section("Labs")
	if !ok {
		t.Fatal("Labs section missing")
	}
	if labs.Score != 70 || labs.Offerings != 1 {
		t.Errorf("Labs = %d over %d offerings, want 70 over 1", labs.Score, labs.Offerings)
	}
	if avg.Sections[0].Name != "Teaching" {
		t.Errorf("first section = %q, want Teaching (first-seen order)", avg.Sections[0].Name)
	}
}

func TestAverage_Empty(t *testing.T) {
	avg := rollup.Average("EMPTY", nil)
	if avg.Overall != 0 || avg.Offerings != 0 || len(avg.Sections) != 0 {
		t.Errorf("Average(nil) = %+v, want zero values", avg)
	}
}

func TestAverageByDepartment(t *testing.T) {
	cards := []scoring.OfferingScorecard{
		card("mech ", "ME101", 70),
		card("CSE", "CS101", 90),
		card("MECH", "ME102", 61),
	}
	got := rollup.AverageByDepartment(cards)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "CSE" || got[1].Name != "MECH" {
		t.Errorf("order = %q, %q; want CSE, MECH", got[0].Name, got[1].Name)
	}
	if got[1].Overall != 66 || got[1].Offerings != 2 {
		t.Errorf("MECH = %d over %d, want 66 over 2", got[1].Overall, got[1].Offerings)
	}
}

func TestCountByCategory_SumsCounts(t *testing.T) {
	depts := []feedback.Department{
		{Code: "CSE", Category: "ENGINEERING"},
		{Code: "MECH", Category: "ENGINEERING"},
		{Code: "ENG", Category: "ARTS"},
	}
	cards := []scoring.OfferingScorecard{
		// CSE: 1 of 1 → 100%.
		card("CSE", "CS101", 85),
		// MECH: 1 of 3 → 33%.
		card("MECH", "ME101", 80),
		card("MECH", "ME102", 50),
		card("MECH", "ME103", 79),
		// ENG: 0 of 1.
		card("ENG", "EN101", 40),
		// HIST has no reference entry.
		card("HIST", "HI101", 95),
	}

	report := rollup.CountByCategory("SoE", cards, depts)

	if len(report.Categories) != 3 {
		t.Fatalf("len(Categories) = %d, want 3", len(report.Categories))
	}
	eng := report.Categories[1]
	if eng.Category != "ENGINEERING" {
		t.Fatalf("Categories[1] = %q, want ENGINEERING", eng.Category)
	}
	// Summed counts 2 of 4 = 50%, not the mean of 100% and 33%.
	if eng.Totals.AtOrAbove != 2 || eng.Totals.Total != 4 || eng.Totals.Percent != 50 {
		t.Errorf("ENGINEERING totals = %+v, want 2 of 4 = 50%%", eng.Totals)
	}
	if len(eng.Departments) != 2 {
		t.Errorf("ENGINEERING departments = %d, want 2", len(eng.Departments))
	}
	if report.Categories[2].Category != rollup.Uncategorised {
		t.Errorf("Categories[2] = %q, want %q", report.Categories[2].Category, rollup.Uncategorised)
	}
	if report.School.Total != 6 || report.School.AtOrAbove != 3 || report.School.Percent != 50 {
		t.Errorf("School = %+v, want 3 of 6 = 50%%", report.School)
	}
}

func TestNewSchoolReport(t *testing.T) {
	cards := []scoring.OfferingScorecard{
		card("CSE", "CS101", 79),
		card("CSE", "CS102", 81),
		card("MECH", "ME101", 60),
	}
	failures := []rollup.OfferingFailure{
		{Offering: feedback.OfferingKey{CourseCode: "ME999", StaffID: "S9"}, Reason: "fetch failed"},
	}

	report := rollup.NewSchoolReport("SoE", nil, cards, failures)

	if report.Overall.Overall != 73 {
		t.Errorf("school Overall = %d, want 73 (mean of 79, 81, 60)", report.Overall.Overall)
	}
	if len(report.Departments) != 2 {
		t.Errorf("len(Departments) = %d, want 2", len(report.Departments))
	}
	if report.Coverage.Succeeded != 3 || report.Coverage.Excluded != 1 || !report.Coverage.Partial() {
		t.Errorf("Coverage = %+v, want 3 succeeded 1 excluded", report.Coverage)
	}
	if err := report.Coverage.Err(); !errors.Is(err, feedback.ErrPartialRollupFailure) {
		t.Errorf("Coverage.Err() = %v, want ErrPartialRollupFailure", err)
	}
	if report.Threshold.School.Total != 3 {
		t.Errorf("threshold total = %d, want 3 (failures excluded)", report.Threshold.School.Total)
	}
}

func TestNewDepartmentReport(t *testing.T) {
	dept := feedback.Department{Code: "CSE", Name: "Computer Science"}
	cards := []scoring.OfferingScorecard{card("CSE", "CS101", 90)}

	report := rollup.NewDepartmentReport(dept, cards, nil)

	if report.Averages.Name != "Computer Science" {
		t.Errorf("Averages.Name = %q", report.Averages.Name)
	}
	if report.Threshold.Percent != 100 {
		t.Errorf("Threshold.Percent = %d, want 100", report.Threshold.Percent)
	}
	if report.Coverage.Partial() || report.Coverage.Err() != nil {
		t.Error("Coverage reports partial with no failures")
	}
}
