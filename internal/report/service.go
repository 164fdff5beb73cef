// Package report orchestrates fetching, scoring and rolling up feedback for
// offerings, departments, schools and staff histories.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/history"
	"github.com/p-n-ai/pai-feedback/internal/reference"
	"github.com/p-n-ai/pai-feedback/internal/rollup"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
	"github.com/p-n-ai/pai-feedback/internal/sentiment"
	"github.com/p-n-ai/pai-feedback/internal/store"
)

// DefaultConcurrency bounds the per-offering fan-out of a roll-up.
const DefaultConcurrency = 5

// ErrSentimentDisabled is returned when no classifier is configured.
var ErrSentimentDisabled = errors.New("sentiment classification is not configured")

// Reference supplies the question schema and department classification.
type Reference interface {
	Schema(ctx context.Context) (feedback.Schema, error)
	Departments(ctx context.Context) ([]feedback.Department, error)
}

// Service computes reports from a response store and reference data.
type Service struct {
	store       store.ResponseStore
	ref         Reference
	model       *scoring.Model
	concurrency int
	runs        RunLogger
	classifier  *sentiment.Classifier
}

// Option configures a Service.
type Option func(*Service)

// WithModel sets the scoring model, e.g. one with custom excluded sections.
func WithModel(m *scoring.Model) Option {
	return func(s *Service) {
		if m != nil {
			s.model = m
		}
	}
}

// WithConcurrency bounds how many offerings are fetched and scored at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRunLogger records every roll-up run.
func WithRunLogger(l RunLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.runs = l
		}
	}
}

// WithClassifier enables comment sentiment classification.
func WithClassifier(c *sentiment.Classifier) Option {
	return func(s *Service) {
		s.classifier = c
	}
}

// NewService creates a report service.
func NewService(st store.ResponseStore, ref Reference, opts ...Option) *Service {
	s := &Service{
		store:       st,
		ref:         ref,
		model:       scoring.NewModel(),
		concurrency: DefaultConcurrency,
		runs:        NopRunLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireOffering(f store.Filter) error {
	if strings.TrimSpace(f.StaffID) == "" {
		return fmt.Errorf("staff id: %w", feedback.ErrMissingIdentifier)
	}
	if strings.TrimSpace(f.CourseCode) == "" {
		return fmt.Errorf("course code: %w", feedback.ErrMissingIdentifier)
	}
	return nil
}

// Offering scores the single offering identified by f's course code and staff id.
func (s *Service) Offering(ctx context.Context, f store.Filter) (scoring.OfferingScorecard, error) {
	if err := requireOffering(f); err != nil {
		return scoring.OfferingScorecard{}, err
	}
	schema, err := s.ref.Schema(ctx)
	if err != nil {
		return scoring.OfferingScorecard{}, err
	}
	return s.scoreOffering(ctx, f, schema)
}

func (s *Service) scoreOffering(ctx context.Context, f store.Filter, schema feedback.Schema) (scoring.OfferingScorecard, error) {
	rows, err := s.store.FetchResponses(ctx, f)
	if err != nil {
		return scoring.OfferingScorecard{}, fmt.Errorf("fetch %s: %w", f.Key(), err)
	}
	return s.model.ScoreOffering(rows, schema, f.Key())
}

// Department rolls up every offering of f.OfferingDept.
func (s *Service) Department(ctx context.Context, f store.Filter) (rollup.DepartmentReport, error) {
	if strings.TrimSpace(f.OfferingDept) == "" {
		return rollup.DepartmentReport{}, fmt.Errorf("department: %w", feedback.ErrMissingIdentifier)
	}
	schema, err := s.ref.Schema(ctx)
	if err != nil {
		return rollup.DepartmentReport{}, err
	}
	depts, err := s.ref.Departments(ctx)
	if err != nil {
		return rollup.DepartmentReport{}, err
	}
	dept := findDepartment(depts, f.OfferingDept)

	run := s.startRun("department", f)
	keys, err := s.store.ListOfferings(ctx, f)
	if err != nil {
		return rollup.DepartmentReport{}, s.failRun(ctx, run, fmt.Errorf("list offerings: %w", err))
	}
	if len(keys) == 0 {
		return rollup.DepartmentReport{}, s.failRun(ctx, run, fmt.Errorf("department %s: %w", dept.Code, feedback.ErrNoMatchingResponses))
	}

	cards, failures, err := s.scoreAll(ctx, f, schema, keys)
	if err != nil {
		return rollup.DepartmentReport{}, s.failRun(ctx, run, err)
	}
	rep := rollup.NewDepartmentReport(dept, cards, failures)
	if err := allExcluded(rep.Coverage); err != nil {
		return rep, s.failRun(ctx, withCoverage(run, rep.Coverage), fmt.Errorf("department %s: %w", dept.Code, err))
	}
	s.finishRun(ctx, run, rep.Coverage)
	return rep, nil
}

// School rolls up every offering of every department the reference data
// places in school.
func (s *Service) School(ctx context.Context, f store.Filter, school string) (rollup.SchoolReport, error) {
	if strings.TrimSpace(school) == "" {
		return rollup.SchoolReport{}, fmt.Errorf("school: %w", feedback.ErrMissingIdentifier)
	}
	schema, err := s.ref.Schema(ctx)
	if err != nil {
		return rollup.SchoolReport{}, err
	}
	all, err := s.ref.Departments(ctx)
	if err != nil {
		return rollup.SchoolReport{}, err
	}
	depts := reference.InSchool(all, school)
	if len(depts) == 0 {
		return rollup.SchoolReport{}, fmt.Errorf("departments of school %s: %w", school, feedback.ErrMissingReferenceData)
	}

	run := s.startRun("school", f)
	run.Scope["school"] = school

	var keys []feedback.OfferingKey
	for _, d := range depts {
		df := f
		df.OfferingDept = d.Code
		found, err := s.store.ListOfferings(ctx, df)
		if err != nil {
			return rollup.SchoolReport{}, s.failRun(ctx, run, fmt.Errorf("list offerings of %s: %w", d.Code, err))
		}
		keys = append(keys, found...)
	}
	if len(keys) == 0 {
		return rollup.SchoolReport{}, s.failRun(ctx, run, fmt.Errorf("school %s: %w", school, feedback.ErrNoMatchingResponses))
	}

	cards, failures, err := s.scoreAll(ctx, f, schema, keys)
	if err != nil {
		return rollup.SchoolReport{}, s.failRun(ctx, run, err)
	}
	rep := rollup.NewSchoolReport(school, depts, cards, failures)
	if err := allExcluded(rep.Coverage); err != nil {
		return rep, s.failRun(ctx, withCoverage(run, rep.Coverage), fmt.Errorf("school %s: %w", school, err))
	}
	s.finishRun(ctx, run, rep.Coverage)
	return rep, nil
}

// History aggregates every response a staff member received, narrowed by
// f's other fields.
func (s *Service) History(ctx context.Context, f store.Filter) (history.History, error) {
	if strings.TrimSpace(f.StaffID) == "" {
		return history.History{}, fmt.Errorf("staff id: %w", feedback.ErrMissingIdentifier)
	}
	schema, err := s.ref.Schema(ctx)
	if err != nil {
		return history.History{}, err
	}
	rows, err := s.store.FetchResponses(ctx, f)
	if err != nil {
		return history.History{}, fmt.Errorf("fetch history of %s: %w", f.StaffID, err)
	}
	return history.Aggregate(f.StaffID, rows, schema)
}

// Sentiment classifies the comments left for one offering.
func (s *Service) Sentiment(ctx context.Context, f store.Filter) (sentiment.Classification, error) {
	if s.classifier == nil {
		return sentiment.Classification{}, ErrSentimentDisabled
	}
	if err := requireOffering(f); err != nil {
		return sentiment.Classification{}, err
	}
	rows, err := s.store.FetchResponses(ctx, f)
	if err != nil {
		return sentiment.Classification{}, fmt.Errorf("fetch %s: %w", f.Key(), err)
	}
	rows = scoring.FilterOffering(rows, f.CourseCode, f.StaffID)
	if len(rows) == 0 {
		return sentiment.Classification{}, fmt.Errorf("%s: %w", f.Key(), feedback.ErrNoMatchingResponses)
	}
	return s.classifier.Classify(ctx, f.Key(), rows)
}

// scoreAll fetches and scores each offering on a bounded worker group. A
// failing offering is recorded and skipped; only cancellation of ctx fails
// the whole call. Results keep the order of keys.
func (s *Service) scoreAll(ctx context.Context, base store.Filter, schema feedback.Schema, keys []feedback.OfferingKey) ([]scoring.OfferingScorecard, []rollup.OfferingFailure, error) {
	type result struct {
		card scoring.OfferingScorecard
		err  error
	}
	results := make([]result, len(keys))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f := base.ForOffering(key)
			f.OfferingDept = key.OfferingDept
			card, err := s.scoreOffering(ctx, f, schema)
			results[i] = result{card: card, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var cards []scoring.OfferingScorecard
	var failures []rollup.OfferingFailure
	for i, r := range results {
		if r.err != nil {
			slog.Warn("offering excluded from roll-up",
				"course_code", keys[i].CourseCode,
				"staff_id", keys[i].StaffID,
				"department", keys[i].OfferingDept,
				"error", r.err,
			)
			failures = append(failures, rollup.OfferingFailure{Offering: keys[i], Reason: r.err.Error()})
			continue
		}
		cards = append(cards, r.card)
	}
	return cards, failures, nil
}

// allExcluded fails a roll-up in which no offering could be scored. Its
// averages would read as a genuine zero score.
func allExcluded(cov rollup.Coverage) error {
	if cov.Succeeded > 0 || cov.Excluded == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", feedback.ErrNoMatchingResponses, cov.Err())
}

func findDepartment(depts []feedback.Department, code string) feedback.Department {
	for _, d := range depts {
		if feedback.SameID(d.Code, code) {
			return d
		}
	}
	return feedback.Department{Code: feedback.NormalizeID(code)}
}

func (s *Service) startRun(kind string, f store.Filter) Run {
	scope := map[string]string{}
	for k, v := range map[string]string{
		"degree":        f.Degree,
		"academic_year": f.AcademicYear,
		"semester":      f.Semester,
		"offering_dept": f.OfferingDept,
	} {
		if v != "" {
			scope[k] = v
		}
	}
	return Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Scope:     scope,
		StartedAt: time.Now(),
	}
}

func withCoverage(run Run, cov rollup.Coverage) Run {
	run.Succeeded = cov.Succeeded
	run.Excluded = cov.Excluded
	run.Failures = cov.Failures
	return run
}

func (s *Service) finishRun(ctx context.Context, run Run, cov rollup.Coverage) {
	run = withCoverage(run, cov)
	if err := cov.Err(); err != nil {
		run.Error = err.Error()
	}
	s.logRun(ctx, run)
}

func (s *Service) failRun(ctx context.Context, run Run, err error) error {
	run.Error = err.Error()
	s.logRun(ctx, run)
	return err
}

func (s *Service) logRun(ctx context.Context, run Run) {
	run.Duration = time.Since(run.StartedAt)
	if err := s.runs.LogRun(ctx, run); err != nil {
		slog.Warn("failed to log report run", "run_id", run.ID, "error", err)
		return
	}
	slog.Info("report run finished",
		"run_id", run.ID,
		"kind", run.Kind,
		"succeeded", run.Succeeded,
		"excluded", run.Excluded,
		"duration_ms", run.Duration.Milliseconds(),
	)
}
