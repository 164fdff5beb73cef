package feedback

import (
	"reflect"
	"testing"
)

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Ordinal
	}{
		{"nil", nil, NoAnswer},
		{"int 1", 1, Poor},
		{"int64 3", int64(3), Good},
		{"float 2", 2.0, Fair},
		{"float fraction", 2.5, NoAnswer},
		{"string", " 3 ", Good},
		{"string junk", "three", NoAnswer},
		{"zero", 0, NoAnswer},
		{"four", 4, NoAnswer},
		{"negative", -1, NoAnswer},
		{"bool", true, NoAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseOrdinal(tt.raw); got != tt.want {
				t.Errorf("ParseOrdinal(%v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestOrdinalPoints(t *testing.T) {
	want := map[Ordinal]int{NoAnswer: 0, Poor: 0, Fair: 1, Good: 2}
	for o, p := range want {
		if got := o.Points(); got != p {
			t.Errorf("Ordinal(%d).Points() = %d, want %d", o, got, p)
		}
	}
	if got := (Option{Label: Good, Text: "Agree"}).Points(); got != 2 {
		t.Errorf("Option.Points() = %d, want 2", got)
	}
}

func TestCGPAString(t *testing.T) {
	tests := []struct {
		raw  any
		want string
	}{
		{nil, ""},
		{"2", "2"},
		{1.0, "1.0"},
		{1.5, "1.5"},
		{int64(3), "3"},
	}
	for _, tt := range tests {
		if got := CGPAString(tt.raw); got != tt.want {
			t.Errorf("CGPAString(%v) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeSectionName(t *testing.T) {
	if got := NormalizeSectionName("  Student-Centric factors "); got != "STUDENT-CENTRIC FACTORS" {
		t.Errorf("NormalizeSectionName() = %q", got)
	}
}

func TestComments(t *testing.T) {
	rows := []ResponseRow{
		{Comment: "Great teaching style"},
		{Comment: "good"},
		{Comment: "   "},
		{Comment: ""},
		{Comment: "  needs more   examples "},
	}
	want := []string{"Great teaching style", "needs more   examples"}
	if got := Comments(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("Comments() = %q, want %q", got, want)
	}
}

func TestSchema(t *testing.T) {
	if !(Schema{}).Empty() {
		t.Error("zero Schema should be empty")
	}
	s := Schema{Sections: []Section{{Name: "A"}, {Name: "B", Questions: []Question{{ID: "1"}, {ID: "2"}}}}}
	if s.Empty() {
		t.Error("Schema with questions reported empty")
	}
	if got := len(s.Questions()); got != 2 {
		t.Errorf("len(Questions()) = %d, want 2", got)
	}
}

func TestSameID(t *testing.T) {
	if !SameID(" cs101 ", "CS101") {
		t.Error("SameID should ignore case and whitespace")
	}
	if SameID("CS101", "CS102") {
		t.Error("SameID matched different ids")
	}
}
