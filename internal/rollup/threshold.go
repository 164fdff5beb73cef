package rollup

import (
	"sort"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
)

// Uncategorised collects departments the reference data does not classify.
const Uncategorised = "UNCATEGORISED"

// ThresholdCount is the threshold-counting roll-up of a group of offerings.
type ThresholdCount struct {
	Name      string `json:"name"`
	Total     int    `json:"total"`
	AtOrAbove int    `json:"count_ge_80"`
	Below     int    `json:"count_lt_80"`
	Percent   int    `json:"percent_ge_80"`
}

func (c *ThresholdCount) add(overall int) {
	c.Total++
	if overall >= scoring.ComplianceThreshold {
		c.AtOrAbove++
	} else {
		c.Below++
	}
	c.Percent = scoring.Percent(c.AtOrAbove, c.Total)
}

func (c *ThresholdCount) merge(o ThresholdCount) {
	c.Total += o.Total
	c.AtOrAbove += o.AtOrAbove
	c.Below += o.Below
	c.Percent = scoring.Percent(c.AtOrAbove, c.Total)
}

// CountThreshold classifies each card by its overall score against the
// compliance threshold.
func CountThreshold(name string, cards []scoring.OfferingScorecard) ThresholdCount {
	tc := ThresholdCount{Name: name}
	for _, c := range cards {
		tc.add(c.Overall)
	}
	return tc
}

// CategoryCount totals the threshold counts of the departments in one category.
type CategoryCount struct {
	Category    string           `json:"category"`
	Totals      ThresholdCount   `json:"totals"`
	Departments []ThresholdCount `json:"departments"`
}

// ThresholdReport is the threshold-counting view of a school.
type ThresholdReport struct {
	Departments []ThresholdCount `json:"departments"`
	Categories  []CategoryCount  `json:"categories"`
	School      ThresholdCount   `json:"school"`
}

// CountByCategory counts per department, then sums department counts into
// their category and into the school total. Percentages at each level come
// from the summed counts, never from averaging lower-level percentages.
func CountByCategory(school string, cards []scoring.OfferingScorecard, depts []feedback.Department) ThresholdReport {
	category := map[string]string{}
	for _, d := range depts {
		category[feedback.NormalizeID(d.Code)] = d.Category
	}

	groups := groupByDepartment(cards)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	report := ThresholdReport{School: ThresholdCount{Name: school}}
	byCategory := map[string]*CategoryCount{}
	for _, name := range names {
		dc := CountThreshold(name, groups[name])
		report.Departments = append(report.Departments, dc)
		report.School.merge(dc)

		cat := category[name]
		if cat == "" {
			cat = Uncategorised
		}
		cc, ok := byCategory[cat]
		if !ok {
			cc = &CategoryCount{Category: cat, Totals: ThresholdCount{Name: cat}}
			byCategory[cat] = cc
		}
		cc.Totals.merge(dc)
		cc.Departments = append(cc.Departments, dc)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		report.Categories = append(report.Categories, *byCategory[cat])
	}
	return report
}
