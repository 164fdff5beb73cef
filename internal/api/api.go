// Package api exposes reports over HTTP as JSON or XLSX.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/p-n-ai/pai-feedback/internal/export"
	"github.com/p-n-ai/pai-feedback/internal/feedback"
	"github.com/p-n-ai/pai-feedback/internal/history"
	"github.com/p-n-ai/pai-feedback/internal/report"
	"github.com/p-n-ai/pai-feedback/internal/rollup"
	"github.com/p-n-ai/pai-feedback/internal/scoring"
	"github.com/p-n-ai/pai-feedback/internal/sentiment"
	"github.com/p-n-ai/pai-feedback/internal/store"
)

// Reporter computes the reports served here. *report.Service implements it.
type Reporter interface {
	Offering(ctx context.Context, f store.Filter) (scoring.OfferingScorecard, error)
	Department(ctx context.Context, f store.Filter) (rollup.DepartmentReport, error)
	School(ctx context.Context, f store.Filter, school string) (rollup.SchoolReport, error)
	History(ctx context.Context, f store.Filter) (history.History, error)
	Sentiment(ctx context.Context, f store.Filter) (sentiment.Classification, error)
}

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// PartialHeader is set on roll-up responses that excluded at least one offering.
const PartialHeader = "X-Rollup-Partial"

type handler struct {
	reports Reporter
	checks  []Check
}

// NewMux creates the HTTP router with health, readiness and report endpoints.
func NewMux(reports Reporter, checks ...Check) *http.ServeMux {
	h := &handler{reports: reports, checks: checks}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
	mux.HandleFunc("GET /v1/offerings/{course}/{staff}", h.offering)
	mux.HandleFunc("GET /v1/offerings/{course}/{staff}/sentiment", h.sentiment)
	mux.HandleFunc("GET /v1/departments/{dept}", h.department)
	mux.HandleFunc("GET /v1/schools/{school}", h.school)
	mux.HandleFunc("GET /v1/staff/{staff}/history", h.history)
	return mux
}

// filterFrom reads the shared context filters from the query string.
func filterFrom(r *http.Request) store.Filter {
	q := r.URL.Query()
	return store.Filter{
		Degree:       q.Get("degree"),
		AcademicYear: q.Get("year"),
		Semester:     q.Get("semester"),
		OfferingDept: q.Get("dept"),
	}
}

func wantsXLSX(r *http.Request) bool {
	return r.URL.Query().Get("format") == "xlsx"
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range h.checks {
		if err := c.Probe(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		slog.Warn("readiness check failed", "checks", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handler) offering(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	f.CourseCode = r.PathValue("course")
	f.StaffID = r.PathValue("staff")

	card, err := h.reports.Offering(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *handler) sentiment(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	f.CourseCode = r.PathValue("course")
	f.StaffID = r.PathValue("staff")

	c, err := h.reports.Sentiment(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) department(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	f.OfferingDept = r.PathValue("dept")

	rep, err := h.reports.Department(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rep.Coverage.Partial() {
		w.Header().Set(PartialHeader, "true")
	}
	if wantsXLSX(r) {
		writeXLSX(w, r, "department-"+rep.Department.Code, func(out io.Writer) error {
			return export.WriteDepartment(out, rep)
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) school(w http.ResponseWriter, r *http.Request) {
	school := r.PathValue("school")

	rep, err := h.reports.School(r.Context(), filterFrom(r), school)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rep.Coverage.Partial() {
		w.Header().Set(PartialHeader, "true")
	}
	if wantsXLSX(r) {
		writeXLSX(w, r, "school-"+school, func(out io.Writer) error {
			return export.WriteSchool(out, rep)
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	f.StaffID = r.PathValue("staff")

	hist, err := h.reports.History(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wantsXLSX(r) {
		writeXLSX(w, r, "history-"+hist.StaffID, func(out io.Writer) error {
			return export.WriteHistory(out, hist)
		})
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, feedback.ErrMissingIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, feedback.ErrNoMatchingResponses):
		return http.StatusNotFound
	case errors.Is(err, feedback.ErrMissingReferenceData):
		return http.StatusServiceUnavailable
	case errors.Is(err, report.ErrSentimentDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeXLSX(w http.ResponseWriter, r *http.Request, name string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, r, fmt.Errorf("render workbook: %w", err))
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+safeName(name)+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// safeName keeps letters, digits, '-' and '_' so the name is a valid filename.
func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
