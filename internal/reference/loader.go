// Package reference loads the survey question schema and department
// classification from YAML files.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

// document is the shape of one reference YAML file. A file may carry
// sections, departments, or both.
type document struct {
	Sections    []feedback.Section    `yaml:"sections"`
	Departments []feedback.Department `yaml:"departments"`
}

// Loader loads and caches reference data from the filesystem.
type Loader struct {
	rootDir     string
	schema      feedback.Schema
	departments map[string]feedback.Department
	mu          sync.RWMutex
}

// NewLoader creates a loader and reads every YAML file under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{rootDir: rootDir}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the reference files, replacing the cached data.
func (l *Loader) Reload() error {
	var doc document
	if err := filepath.WalkDir(l.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return loadFile(path, &doc)
	}); err != nil {
		return fmt.Errorf("loading reference data: %w", err)
	}

	depts := make(map[string]feedback.Department, len(doc.Departments))
	for _, d := range doc.Departments {
		code := feedback.NormalizeID(d.Code)
		if code == "" {
			continue
		}
		d.Code = code
		depts[code] = d
	}

	l.mu.Lock()
	l.schema = feedback.Schema{Sections: doc.Sections}
	l.departments = depts
	l.mu.Unlock()

	slog.Info("reference data loaded",
		"sections", len(doc.Sections),
		"questions", len(l.schema.Questions()),
		"departments", len(depts),
	)
	return nil
}

func loadFile(path string, into *document) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid reference YAML", "path", path, "error", err)
		return nil
	}

	for _, sec := range doc.Sections {
		sec, ok := cleanSection(path, sec)
		if ok {
			into.Sections = append(into.Sections, sec)
		}
	}
	into.Departments = append(into.Departments, doc.Departments...)
	return nil
}

// cleanSection drops questions without an id and options with a label outside 1..3.
// A question without an explicit field reads the response field named by its id.
func cleanSection(path string, sec feedback.Section) (feedback.Section, bool) {
	sec.Name = strings.TrimSpace(sec.Name)
	if sec.Name == "" {
		slog.Warn("skipping unnamed section", "path", path)
		return sec, false
	}

	questions := sec.Questions[:0]
	for _, q := range sec.Questions {
		if strings.TrimSpace(q.ID) == "" {
			slog.Warn("skipping question without id", "path", path, "section", sec.Name)
			continue
		}
		if q.Field == "" {
			q.Field = q.ID
		}
		opts := q.Options[:0]
		for _, o := range q.Options {
			if o.Label.Valid() {
				opts = append(opts, o)
			}
		}
		q.Options = opts
		questions = append(questions, q)
	}
	sec.Questions = questions
	return sec, true
}

// Schema returns the question schema, or ErrMissingReferenceData when no
// scorable question was loaded.
func (l *Loader) Schema(ctx context.Context) (feedback.Schema, error) {
	if err := ctx.Err(); err != nil {
		return feedback.Schema{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.schema.Empty() {
		return feedback.Schema{}, fmt.Errorf("question schema: %w", feedback.ErrMissingReferenceData)
	}
	return l.schema, nil
}

// Departments returns every known department sorted by code.
func (l *Loader) Departments(ctx context.Context) ([]feedback.Department, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	depts := make([]feedback.Department, 0, len(l.departments))
	for _, d := range l.departments {
		depts = append(depts, d)
	}
	sort.Slice(depts, func(i, j int) bool { return depts[i].Code < depts[j].Code })
	return depts, nil
}

// Department returns a department by code, ignoring case and surrounding whitespace.
func (l *Loader) Department(code string) (feedback.Department, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.departments[feedback.NormalizeID(code)]
	return d, ok
}

// InSchool filters depts to those belonging to school.
func InSchool(depts []feedback.Department, school string) []feedback.Department {
	var out []feedback.Department
	for _, d := range depts {
		if feedback.SameID(d.School, school) {
			out = append(out, d)
		}
	}
	return out
}
