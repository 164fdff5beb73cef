package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

// responseDoc is the stored shape of one response document.
type responseDoc struct {
	Degree       string `bson:"degree"`
	AcademicYear string `bson:"academic_year"`
	Semester     string `bson:"semester"`
	OfferingDept string `bson:"offering_dept"`
	CourseCode   string `bson:"course_code"`
	StaffID      string `bson:"staff_id"`
	AltStaffID   string `bson:"alt_staff_id"`
	Comment      string `bson:"comment"`
	CGPA         any    `bson:"cgpa"`
	Answers      bson.M `bson:"answers"`
}

func (d responseDoc) row() feedback.ResponseRow {
	answers := make(map[string]feedback.Ordinal, len(d.Answers))
	for field, v := range d.Answers {
		answers[field] = feedback.ParseOrdinal(v)
	}
	return feedback.ResponseRow{
		Degree:       d.Degree,
		AcademicYear: d.AcademicYear,
		Semester:     d.Semester,
		OfferingDept: d.OfferingDept,
		CourseCode:   d.CourseCode,
		StaffID:      d.StaffID,
		AltStaffID:   d.AltStaffID,
		Comment:      d.Comment,
		CGPABracket:  feedback.CGPAString(d.CGPA),
		Answers:      answers,
	}
}

// MongoStore is a MongoDB-backed ResponseStore.
type MongoStore struct {
	responses *mongo.Collection
	pageSize  int32
}

// NewMongoStore creates a store reading from collection in db.
func NewMongoStore(db *mongo.Database, collection string, pageSize int) *MongoStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MongoStore{
		responses: db.Collection(collection),
		pageSize:  int32(pageSize),
	}
}

// mongoFilter builds a query matching f, comparing trimmed values case-insensitively.
func mongoFilter(f Filter) bson.M {
	q := bson.M{}
	set := func(field, v string) {
		if v != "" {
			q[field] = exactFold(v)
		}
	}
	set("degree", f.Degree)
	set("academic_year", f.AcademicYear)
	set("semester", f.Semester)
	set("offering_dept", f.OfferingDept)
	set("course_code", f.CourseCode)
	if f.StaffID != "" {
		q["$or"] = bson.A{
			bson.M{"staff_id": exactFold(f.StaffID)},
			bson.M{"alt_staff_id": exactFold(f.StaffID)},
		}
	}
	return q
}

func exactFold(v string) primitive.Regex {
	return primitive.Regex{
		Pattern: `^\s*` + regexp.QuoteMeta(strings.TrimSpace(v)) + `\s*$`,
		Options: "i",
	}
}

func (s *MongoStore) FetchResponses(ctx context.Context, f Filter) ([]feedback.ResponseRow, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetBatchSize(s.pageSize)

	cur, err := s.responses.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find responses: %w", err)
	}
	defer cur.Close(ctx)

	var out []feedback.ResponseRow
	for cur.Next(ctx) {
		var doc responseDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		out = append(out, doc.row())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return out, nil
}

func (s *MongoStore) ListOfferings(ctx context.Context, f Filter) ([]feedback.OfferingKey, error) {
	opts := options.Find().
		SetProjection(bson.M{"course_code": 1, "staff_id": 1, "offering_dept": 1}).
		SetBatchSize(s.pageSize)

	cur, err := s.responses.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find offerings: %w", err)
	}
	defer cur.Close(ctx)

	var found []feedback.ResponseRow
	for cur.Next(ctx) {
		var doc responseDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode offering: %w", err)
		}
		found = append(found, doc.row())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate offerings: %w", err)
	}
	return distinctOfferings(f, found), nil
}
