package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

const dbTimeout = 30 * time.Second

// Schema creates the response table read by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS feedback_responses (
	id            BIGSERIAL PRIMARY KEY,
	degree        TEXT NOT NULL DEFAULT '',
	academic_year TEXT NOT NULL DEFAULT '',
	semester      TEXT NOT NULL DEFAULT '',
	offering_dept TEXT NOT NULL DEFAULT '',
	course_code   TEXT NOT NULL,
	staff_id      TEXT NOT NULL,
	alt_staff_id  TEXT NOT NULL DEFAULT '',
	comment       TEXT NOT NULL DEFAULT '',
	cgpa          TEXT,
	answers       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS feedback_responses_offering_idx
	ON feedback_responses (upper(trim(course_code)), upper(trim(staff_id)));
`

// filterClause matches the six Filter fields, passed as $1..$6. Empty
// parameters disable their condition.
const filterClause = `
	($1 = '' OR upper(trim(degree)) = upper(trim($1)))
	AND ($2 = '' OR upper(trim(academic_year)) = upper(trim($2)))
	AND ($3 = '' OR upper(trim(semester)) = upper(trim($3)))
	AND ($4 = '' OR upper(trim(offering_dept)) = upper(trim($4)))
	AND ($5 = '' OR upper(trim(course_code)) = upper(trim($5)))
	AND ($6 = '' OR upper(trim(staff_id)) = upper(trim($6))
		OR (trim(alt_staff_id) <> '' AND upper(trim(alt_staff_id)) = upper(trim($6))))`

// PostgresStore is a PostgreSQL-backed ResponseStore.
type PostgresStore struct {
	pool     *pgxpool.Pool
	pageSize int
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPageSize sets the number of rows fetched per query.
func WithPageSize(n int) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewPostgresStore creates a store reading from the feedback_responses table.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	s := &PostgresStore{pool: pool, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate creates the response table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create response schema: %w", err)
	}
	return nil
}

func filterArgs(f Filter) []any {
	return []any{f.Degree, f.AcademicYear, f.Semester, f.OfferingDept, f.CourseCode, f.StaffID}
}

// FetchResponses pages through matching rows by primary key until exhausted.
func (s *PostgresStore) FetchResponses(ctx context.Context, f Filter) ([]feedback.ResponseRow, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `SELECT id, degree, academic_year, semester, offering_dept, course_code,
	                 staff_id, alt_staff_id, comment, cgpa, answers
	          FROM feedback_responses
	          WHERE ` + filterClause + `
	            AND id > $7
	          ORDER BY id
	          LIMIT $8`

	var out []feedback.ResponseRow
	var lastID int64
	for {
		args := append(filterArgs(f), lastID, s.pageSize)
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query responses: %w", err)
		}

		n := 0
		for rows.Next() {
			var r feedback.ResponseRow
			var cgpa *string
			var answers []byte
			if err := rows.Scan(
				&lastID,
				&r.Degree,
				&r.AcademicYear,
				&r.Semester,
				&r.OfferingDept,
				&r.CourseCode,
				&r.StaffID,
				&r.AltStaffID,
				&r.Comment,
				&cgpa,
				&answers,
			); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan response: %w", err)
			}
			if cgpa != nil {
				r.CGPABracket = *cgpa
			}
			r.Answers, err = decodeAnswers(answers)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode answers of response %d: %w", lastID, err)
			}
			out = append(out, r)
			n++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate responses: %w", err)
		}
		if n < s.pageSize {
			return out, nil
		}
	}
}

func (s *PostgresStore) ListOfferings(ctx context.Context, f Filter) ([]feedback.OfferingKey, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT trim(course_code), trim(staff_id), trim(offering_dept)
		 FROM feedback_responses
		 WHERE `+filterClause,
		filterArgs(f)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query offerings: %w", err)
	}
	defer rows.Close()

	var found []feedback.ResponseRow
	for rows.Next() {
		var r feedback.ResponseRow
		if err := rows.Scan(&r.CourseCode, &r.StaffID, &r.OfferingDept); err != nil {
			return nil, fmt.Errorf("scan offering: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offerings: %w", err)
	}
	return distinctOfferings(f, found), nil
}

// Insert stores rows in a single batch.
func (s *PostgresStore) Insert(ctx context.Context, rows ...feedback.ResponseRow) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, r := range rows {
		answers, err := json.Marshal(r.Answers)
		if err != nil {
			return fmt.Errorf("marshal answers: %w", err)
		}
		batch.Queue(
			`INSERT INTO feedback_responses
			   (degree, academic_year, semester, offering_dept, course_code, staff_id, alt_staff_id, comment, cgpa, answers)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`,
			r.Degree, r.AcademicYear, r.Semester, r.OfferingDept, r.CourseCode,
			r.StaffID, r.AltStaffID, r.Comment, nullIfEmpty(r.CGPABracket), string(answers),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}
	return nil
}

// decodeAnswers validates stored answer values once, at the store boundary.
func decodeAnswers(data []byte) (map[string]feedback.Ordinal, error) {
	if len(data) == 0 {
		return map[string]feedback.Ordinal{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return feedback.ParseAnswers(raw), nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
