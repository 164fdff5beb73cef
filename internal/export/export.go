// Package export renders reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-feedback/internal/history"
	"github.com/p-n-ai/pai-feedback/internal/rollup"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
)

// ContentType is the MIME type of the workbooks written here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// workbook wraps an excelize file with a bold header style and a row cursor per sheet.
type workbook struct {
	f      *excelize.File
	header int
	next   map[string]int
}

func newWorkbook(first string) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		_ = f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &workbook{f: f, header: header, next: map[string]int{first: 1}}, nil
}

func (w *workbook) sheet(name string) error {
	if _, ok := w.next[name]; ok {
		return nil
	}
	if _, err := w.f.NewSheet(name); err != nil {
		return err
	}
	w.next[name] = 1
	return nil
}

func (w *workbook) row(sheet string, values ...any) error {
	if err := w.sheet(sheet); err != nil {
		return err
	}
	n := w.next[sheet]
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		return err
	}
	w.next[sheet] = n + 1
	return nil
}

func (w *workbook) headerRow(sheet string, values ...any) error {
	if err := w.row(sheet, values...); err != nil {
		return err
	}
	n := w.next[sheet] - 1
	if err := w.f.SetRowStyle(sheet, n, n, w.header); err != nil {
		return err
	}
	return w.f.SetColWidth(sheet, "A", "A", 18)
}

func (w *workbook) write(out io.Writer) error {
	defer func() { _ = w.f.Close() }()
	w.f.SetActiveSheet(0)
	if err := w.f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// sectionNames returns section names in first-seen order across every averages table.
func sectionNames(tables ...rollup.Averages) []string {
	seen := map[string]bool{}
	var names []string
	for _, t := range tables {
		for _, s := range t.Sections {
			if !seen[s.Name] {
				seen[s.Name] = true
				names = append(names, s.Name)
			}
		}
	}
	return names
}

func averagesRow(a rollup.Averages, sections []string) []any {
	values := []any{a.Name, a.Offerings}
	for _, name := range sections {
		if s, ok := a.Section(name); ok {
			values = append(values, s.Score)
		} else {
			values = append(values, "")
		}
	}
	return append(values, a.Overall, string(a.Rating))
}

func averagesHeader(first string, sections []string) []any {
	values := []any{first, "Offerings"}
	for _, s := range sections {
		values = append(values, s)
	}
	return append(values, "Overall", "Rating")
}

func cardRow(c scoring.OfferingScorecard, sections []string) []any {
	values := []any{c.Offering.CourseCode, c.Offering.StaffID, c.TotalResponses}
	for _, name := range sections {
		if s, ok := c.Section(name); ok {
			values = append(values, s.Score)
		} else {
			values = append(values, "")
		}
	}
	return append(values, c.Overall, string(c.Rating))
}

func thresholdRow(label string, c rollup.ThresholdCount) []any {
	return []any{label, c.Name, c.Total, c.AtOrAbove, c.Below, c.Percent}
}

var thresholdHeader = []any{"Level", "Name", "Offerings", "Score >= 80", "Score < 80", "% >= 80"}

func (w *workbook) failures(cov rollup.Coverage) error {
	if len(cov.Failures) == 0 {
		return nil
	}
	if err := w.headerRow("Excluded", "Course", "Staff", "Department", "Reason"); err != nil {
		return err
	}
	for _, f := range cov.Failures {
		if err := w.row("Excluded", f.Offering.CourseCode, f.Offering.StaffID, f.Offering.OfferingDept, f.Reason); err != nil {
			return err
		}
	}
	return nil
}

// WriteDepartment writes a department report: a summary sheet, one row per
// offering, and the excluded offerings if any.
func WriteDepartment(out io.Writer, rep rollup.DepartmentReport) error {
	w, err := newWorkbook("Summary")
	if err != nil {
		return err
	}

	sections := sectionNames(rep.Averages)
	if err := w.headerRow("Summary", averagesHeader("Department", sections)...); err != nil {
		return err
	}
	if err := w.row("Summary", averagesRow(rep.Averages, sections)...); err != nil {
		return err
	}
	if err := w.headerRow("Summary", thresholdHeader...); err != nil {
		return err
	}
	if err := w.row("Summary", thresholdRow("Department", rep.Threshold)...); err != nil {
		return err
	}

	header := []any{"Course", "Staff", "Responses"}
	for _, s := range sections {
		header = append(header, s)
	}
	header = append(header, "Overall", "Rating")
	if err := w.headerRow("Offerings", header...); err != nil {
		return err
	}
	for _, c := range rep.Offerings {
		if err := w.row("Offerings", cardRow(c, sections)...); err != nil {
			return err
		}
	}

	if err := w.failures(rep.Coverage); err != nil {
		return err
	}
	return w.write(out)
}

// WriteSchool writes a school report: the per-department averaging table
// with a school row, the threshold counts by category, and the excluded
// offerings if any.
func WriteSchool(out io.Writer, rep rollup.SchoolReport) error {
	w, err := newWorkbook("Averages")
	if err != nil {
		return err
	}

	tables := append([]rollup.Averages{rep.Overall}, rep.Departments...)
	sections := sectionNames(tables...)
	if err := w.headerRow("Averages", averagesHeader("Department", sections)...); err != nil {
		return err
	}
	for _, d := range rep.Departments {
		if err := w.row("Averages", averagesRow(d, sections)...); err != nil {
			return err
		}
	}
	if err := w.row("Averages", averagesRow(rep.Overall, sections)...); err != nil {
		return err
	}

	if err := w.headerRow("Threshold", thresholdHeader...); err != nil {
		return err
	}
	for _, cat := range rep.Threshold.Categories {
		for _, d := range cat.Departments {
			if err := w.row("Threshold", thresholdRow("Department", d)...); err != nil {
				return err
			}
		}
		if err := w.row("Threshold", thresholdRow("Category", cat.Totals)...); err != nil {
			return err
		}
	}
	if err := w.row("Threshold", thresholdRow("School", rep.Threshold.School)...); err != nil {
		return err
	}

	if err := w.failures(rep.Coverage); err != nil {
		return err
	}
	return w.write(out)
}

// WriteHistory writes a staff history: one sheet per view.
func WriteHistory(out io.Writer, h history.History) error {
	w, err := newWorkbook("Offerings")
	if err != nil {
		return err
	}

	if err := w.headerRow("Offerings", "Academic Year", "Semester", "Course", "Responses", "Overall", "Rating"); err != nil {
		return err
	}
	for _, o := range h.Offerings {
		if err := w.row("Offerings", o.AcademicYear, o.Semester, o.CourseCode, o.Responses, o.Overall, string(o.Rating)); err != nil {
			return err
		}
	}

	if err := w.headerRow("Yearly", "Academic Year", "Offerings", "Courses", "Responses", "Overall", "Rating"); err != nil {
		return err
	}
	for _, y := range h.Yearly {
		if err := w.row("Yearly", y.AcademicYear, y.Offerings, y.Courses, y.Responses, y.Overall, string(y.Rating)); err != nil {
			return err
		}
	}

	if err := w.headerRow("Courses", "Course", "Offerings", "Responses", "Overall", "Rating"); err != nil {
		return err
	}
	for _, c := range h.Courses {
		if err := w.row("Courses", c.CourseCode, c.Offerings, c.Responses, c.Overall, string(c.Rating)); err != nil {
			return err
		}
	}
	return w.write(out)
}
