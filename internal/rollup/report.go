package rollup

import (
	"fmt"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
)

// OfferingFailure records an offering left out of a roll-up and why.
type OfferingFailure struct {
	Offering feedback.OfferingKey `json:"offering"`
	Reason   string               `json:"reason"`
}

// Coverage reports how many contributing offerings made it into a roll-up.
type Coverage struct {
	Succeeded int               `json:"succeeded"`
	Excluded  int               `json:"excluded"`
	Failures  []OfferingFailure `json:"failures,omitempty"`
}

// Partial reports whether any offering was excluded.
func (c Coverage) Partial() bool {
	return c.Excluded > 0
}

// Err returns an error wrapping feedback.ErrPartialRollupFailure when any
// offering was excluded, nil otherwise.
func (c Coverage) Err() error {
	if !c.Partial() {
		return nil
	}
	return fmt.Errorf("%d of %d offerings excluded: %w",
		c.Excluded, c.Succeeded+c.Excluded, feedback.ErrPartialRollupFailure)
}

func newCoverage(cards []scoring.OfferingScorecard, failures []OfferingFailure) Coverage {
	return Coverage{
		Succeeded: len(cards),
		Excluded:  len(failures),
		Failures:  failures,
	}
}

// DepartmentReport is the full roll-up of one department.
type DepartmentReport struct {
	Department feedback.Department         `json:"department"`
	Averages   Averages                    `json:"averages"`
	Threshold  ThresholdCount              `json:"threshold"`
	Offerings  []scoring.OfferingScorecard `json:"offerings"`
	Coverage   Coverage                    `json:"coverage"`
}

// NewDepartmentReport builds both roll-up strategies over the department's
// successfully scored offerings.
func NewDepartmentReport(dept feedback.Department, cards []scoring.OfferingScorecard, failures []OfferingFailure) DepartmentReport {
	name := dept.Name
	if name == "" {
		name = dept.Code
	}
	return DepartmentReport{
		Department: dept,
		Averages:   Average(name, cards),
		Threshold:  CountThreshold(name, cards),
		Offerings:  cards,
		Coverage:   newCoverage(cards, failures),
	}
}

// SchoolReport is the roll-up of every department in a school.
type SchoolReport struct {
	School      string          `json:"school"`
	Departments []Averages      `json:"departments"`
	Overall     Averages        `json:"overall"`
	Threshold   ThresholdReport `json:"threshold"`
	Coverage    Coverage        `json:"coverage"`
}

// NewSchoolReport builds the per-department averaging table, a school-wide
// average over all offerings, and the category threshold counts.
func NewSchoolReport(school string, depts []feedback.Department, cards []scoring.OfferingScorecard, failures []OfferingFailure) SchoolReport {
	return SchoolReport{
		School:      school,
		Departments: AverageByDepartment(cards),
		Overall:     Average(school, cards),
		Threshold:   CountByCategory(school, cards, depts),
		Coverage:    newCoverage(cards, failures),
	}
}
