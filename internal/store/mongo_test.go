package store

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

func TestMongoFilter(t *testing.T) {
	q := mongoFilter(Filter{CourseCode: " cs.101 ", StaffID: "S1"})

	re, ok := q["course_code"].(primitive.Regex)
	if !ok {
		t.Fatalf("course_code = %T, want primitive.Regex", q["course_code"])
	}
	if re.Pattern != `^\s*cs\.101\s*$` || re.Options != "i" {
		t.Errorf("course_code regex = %+v", re)
	}
	if _, ok := q["degree"]; ok {
		t.Error("empty degree should not filter")
	}
	or, ok := q["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("$or = %v, want staff and alternate staff clauses", q["$or"])
	}
}

func TestResponseDoc_Row(t *testing.T) {
	doc := responseDoc{
		CourseCode: "CS101",
		StaffID:    "S1",
		CGPA:       1.0,
		Answers:    bson.M{"q1": int32(3), "q2": 2.0, "q3": nil, "q4": "x"},
	}
	r := doc.row()

	if r.CGPABracket != "1.0" {
		t.Errorf("CGPABracket = %q, want 1.0", r.CGPABracket)
	}
	want := map[string]feedback.Ordinal{"q1": feedback.Good, "q2": feedback.Fair, "q3": feedback.NoAnswer, "q4": feedback.NoAnswer}
	for field, o := range want {
		if r.Answers[field] != o {
			t.Errorf("Answers[%s] = %d, want %d", field, r.Answers[field], o)
		}
	}
}
