// Package store provides gateways that fetch response rows from a backing
// data store. Every gateway returns fully materialized, validated rows.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

// DefaultPageSize is the number of rows fetched per round trip.
const DefaultPageSize = 500

// Filter narrows a fetch. Empty fields do not filter.
type Filter struct {
	Degree       string `json:"degree,omitempty"`
	AcademicYear string `json:"academic_year,omitempty"`
	Semester     string `json:"semester,omitempty"`
	OfferingDept string `json:"offering_dept,omitempty"`
	CourseCode   string `json:"course_code,omitempty"`
	StaffID      string `json:"staff_id,omitempty"`
}

// ForOffering narrows f to a single offering.
func (f Filter) ForOffering(k feedback.OfferingKey) Filter {
	f.CourseCode = k.CourseCode
	f.StaffID = k.StaffID
	return f
}

// Key returns the offering key implied by the filter.
func (f Filter) Key() feedback.OfferingKey {
	return feedback.OfferingKey{
		Degree:       f.Degree,
		AcademicYear: f.AcademicYear,
		Semester:     f.Semester,
		OfferingDept: f.OfferingDept,
		CourseCode:   f.CourseCode,
		StaffID:      f.StaffID,
	}
}

// Match reports whether r satisfies every non-empty field of f. The staff id
// matches either id column.
func (f Filter) Match(r feedback.ResponseRow) bool {
	if !matchField(f.Degree, r.Degree) ||
		!matchField(f.AcademicYear, r.AcademicYear) ||
		!matchField(f.Semester, r.Semester) ||
		!matchField(f.OfferingDept, r.OfferingDept) ||
		!matchField(f.CourseCode, r.CourseCode) {
		return false
	}
	if f.StaffID == "" {
		return true
	}
	return feedback.SameID(f.StaffID, r.StaffID) ||
		(strings.TrimSpace(r.AltStaffID) != "" && feedback.SameID(f.StaffID, r.AltStaffID))
}

func matchField(want, got string) bool {
	return want == "" || feedback.SameID(want, got)
}

// ResponseStore fetches response rows and discovers offerings.
type ResponseStore interface {
	// FetchResponses returns every row matching f.
	FetchResponses(ctx context.Context, f Filter) ([]feedback.ResponseRow, error)
	// ListOfferings returns the distinct (course, staff) offerings matching f.
	ListOfferings(ctx context.Context, f Filter) ([]feedback.OfferingKey, error)
}

// MemoryStore is an in-memory ResponseStore for development and tests.
type MemoryStore struct {
	rows []feedback.ResponseRow
	mu   sync.RWMutex
}

// NewMemoryStore creates a store holding rows.
func NewMemoryStore(rows ...feedback.ResponseRow) *MemoryStore {
	return &MemoryStore{rows: append([]feedback.ResponseRow{}, rows...)}
}

// Add appends rows to the store.
func (s *MemoryStore) Add(rows ...feedback.ResponseRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

func (s *MemoryStore) FetchResponses(ctx context.Context, f Filter) ([]feedback.ResponseRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []feedback.ResponseRow
	for _, r := range s.rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListOfferings(ctx context.Context, f Filter) ([]feedback.OfferingKey, error) {
	rows, err := s.FetchResponses(ctx, f)
	if err != nil {
		return nil, err
	}
	return distinctOfferings(f, rows), nil
}

// distinctOfferings collapses rows into offering keys carrying f's context,
// sorted by course then staff.
func distinctOfferings(f Filter, rows []feedback.ResponseRow) []feedback.OfferingKey {
	seen := map[[2]string]struct{}{}
	var keys []feedback.OfferingKey
	for _, r := range rows {
		course := strings.TrimSpace(r.CourseCode)
		staff := strings.TrimSpace(r.StaffID)
		if course == "" || staff == "" {
			continue
		}
		id := [2]string{feedback.NormalizeID(course), feedback.NormalizeID(staff)}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		k := f.Key()
		k.CourseCode = course
		k.StaffID = staff
		if k.OfferingDept == "" {
			k.OfferingDept = strings.TrimSpace(r.OfferingDept)
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CourseCode != keys[j].CourseCode {
			return keys[i].CourseCode < keys[j].CourseCode
		}
		return keys[i].StaffID < keys[j].StaffID
	})
	return keys
}
