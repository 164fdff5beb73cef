package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/store"
)

func row(course, staff, dept string) feedback.ResponseRow {
	return feedback.ResponseRow{
		Degree:       "UG",
		AcademicYear: "2023",
		Semester:     "1",
		OfferingDept: dept,
		CourseCode:   course,
		StaffID:      staff,
		Answers:      map[string]feedback.Ordinal{"q1": feedback.Good},
	}
}

func TestFilter_Match(t *testing.T) {
	r := row(" cs101 ", "S1", "CS")
	r.AltStaffID = "alt9"

	tests := []struct {
		name   string
		filter store.Filter
		want   bool
	}{
		{"empty filter", store.Filter{}, true},
		{"case and whitespace", store.Filter{CourseCode: "CS101", StaffID: " s1"}, true},
		{"alternate staff id", store.Filter{StaffID: "ALT9"}, true},
		{"other staff", store.Filter{StaffID: "S2"}, false},
		{"other semester", store.Filter{Semester: "2"}, false},
		{"context fields", store.Filter{Degree: "ug", AcademicYear: "2023", OfferingDept: "cs"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(r); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_BlankAltStaffNeverMatches(t *testing.T) {
	r := row("CS101", "S1", "CS")
	if (store.Filter{StaffID: "S2"}).Match(r) {
		t.Error("blank alternate id should not match another staff")
	}
}

func TestFilter_ForOffering(t *testing.T) {
	f := store.Filter{Degree: "UG", Semester: "1"}
	got := f.ForOffering(feedback.OfferingKey{CourseCode: "CS101", StaffID: "S1"})
	if got.Degree != "UG" || got.Semester != "1" || got.CourseCode != "CS101" || got.StaffID != "S1" {
		t.Errorf("ForOffering() = %+v", got)
	}
	if f.CourseCode != "" {
		t.Error("ForOffering() modified receiver")
	}
}

func TestMemoryStore_FetchResponses(t *testing.T) {
	s := store.NewMemoryStore(row("CS101", "S1", "CS"), row("CS102", "S1", "CS"))
	s.Add(row("CS101", "S2", "CS"))

	got, err := s.FetchResponses(context.Background(), store.Filter{CourseCode: "cs101"})
	if err != nil {
		t.Fatalf("FetchResponses() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("FetchResponses() returned %d rows, want 2", len(got))
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := store.NewMemoryStore(row("CS101", "S1", "CS"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FetchResponses(ctx, store.Filter{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchResponses() error = %v, want context.Canceled", err)
	}
}

func TestMemoryStore_ListOfferings(t *testing.T) {
	s := store.NewMemoryStore(
		row("CS102", "S1", "CS"),
		row("CS101", "S2", "CS"),
		row("cs101 ", "s2", "CS"),
		row("CS101", "S1", "CS"),
		row("", "S3", "CS"),
		row("EE100", "S4", "EE"),
	)

	got, err := s.ListOfferings(context.Background(), store.Filter{OfferingDept: "CS", Semester: "1"})
	if err != nil {
		t.Fatalf("ListOfferings() error = %v", err)
	}

	want := []string{"CS101/S1", "CS101/S2", "CS102/S1"}
	if len(got) != len(want) {
		t.Fatalf("ListOfferings() = %v, want %v", got, want)
	}
	for i, k := range got {
		if k.String() != want[i] {
			t.Errorf("offering[%d] = %s, want %s", i, k, want[i])
		}
		if k.Semester != "1" || k.OfferingDept != "CS" {
			t.Errorf("offering[%d] lost filter context: %+v", i, k)
		}
	}
}

func TestMemoryStore_ListOfferingsFillsDepartment(t *testing.T) {
	s := store.NewMemoryStore(row("EE100", "S4", "EE"))

	got, err := s.ListOfferings(context.Background(), store.Filter{})
	if err != nil {
		t.Fatalf("ListOfferings() error = %v", err)
	}
	if len(got) != 1 || got[0].OfferingDept != "EE" {
		t.Errorf("ListOfferings() = %+v, want department EE", got)
	}
}
