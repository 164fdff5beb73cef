// Package rollup combines offering scorecards into department, category and
// school statistics. Two strategies live here and are never interchangeable:
// averaging (what is the typical score) and threshold counting (what share of
// offerings meets the bar).
package rollup

import (
	"sort"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
)

// QuestionAverage is the mean of one question's scores across offerings.
type QuestionAverage struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text,omitempty"`
	Score      int    `json:"score"`
	Offerings  int    `json:"offerings"`
}

// SectionAverage is the mean of one section's scores across offerings.
type SectionAverage struct {
	Name      string            `json:"name"`
	Score     int               `json:"score"`
	Excluded  bool              `json:"excluded"`
	Offerings int               `json:"offerings"`
	Questions []QuestionAverage `json:"questions"`
}

// Averages is an averaging roll-up over a group of offerings.
type Averages struct {
	Name      string           `json:"name"`
	Offerings int              `json:"offerings"`
	Sections  []SectionAverage `json:"sections"`
	Overall   int              `json:"overall"`
	Rating    scoring.Rating   `json:"rating"`
}

// Section returns the named section average.
func (a Averages) Section(name string) (SectionAverage, bool) {
	for _, s := range a.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return SectionAverage{}, false
}

type accumulator struct {
	sum, n int
}

func (a *accumulator) add(v int) {
	a.sum += v
	a.n++
}

func (a accumulator) mean() int {
	return scoring.Mean(a.sum, a.n)
}

// Average computes the averaging roll-up of cards. Every value is a mean of the
// already-rounded per-offering scores, so each offering weighs the same no
// matter how many students answered it.
func Average(name string, cards []scoring.OfferingScorecard) Averages {
	type sectionAcc struct {
		accumulator
		excluded  bool
		questions map[string]*accumulator
		qOrder    []string
		qText     map[string]string
	}

	sections := map[string]*sectionAcc{}
	var order []string
	var total accumulator

	for _, card := range cards {
		total.add(card.Overall)
		for _, ss := range card.Sections {
			acc, ok := sections[ss.Name]
			if !ok {
				acc = &sectionAcc{
					excluded:  ss.Excluded,
					questions: map[string]*accumulator{},
					qText:     map[string]string{},
				}
				sections[ss.Name] = acc
				order = append(order, ss.Name)
			}
			acc.add(ss.Score)
			for _, qs := range ss.Questions {
				id := qs.QuestionID
				if id == "" {
					id = qs.Field
				}
				qa, ok := acc.questions[id]
				if !ok {
					qa = &accumulator{}
					acc.questions[id] = qa
					acc.qOrder = append(acc.qOrder, id)
					acc.qText[id] = qs.Text
				}
				qa.add(qs.Score)
			}
		}
	}

	out := Averages{
		Name:      name,
		Offerings: len(cards),
		Overall:   total.mean(),
	}
	out.Rating = scoring.Classify(out.Overall)
	for _, sec := range order {
		acc := sections[sec]
		sa := SectionAverage{
			Name:      sec,
			Score:     acc.mean(),
			Excluded:  acc.excluded,
			Offerings: acc.n,
		}
		for _, id := range acc.qOrder {
			qa := acc.questions[id]
			sa.Questions = append(sa.Questions, QuestionAverage{
				QuestionID: id,
				Text:       acc.qText[id],
				Score:      qa.mean(),
				Offerings:  qa.n,
			})
		}
		out.Sections = append(out.Sections, sa)
	}
	return out
}

// AverageByDepartment runs Average once per offering department, sorted by
// department name.
func AverageByDepartment(cards []scoring.OfferingScorecard) []Averages {
	groups := groupByDepartment(cards)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Averages, 0, len(names))
	for _, name := range names {
		out = append(out, Average(name, groups[name]))
	}
	return out
}

func groupByDepartment(cards []scoring.OfferingScorecard) map[string][]scoring.OfferingScorecard {
	groups := map[string][]scoring.OfferingScorecard{}
	for _, c := range cards {
		dept := feedback.NormalizeID(c.Offering.OfferingDept)
		groups[dept] = append(groups[dept], c)
	}
	return groups
}
