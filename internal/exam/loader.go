package exam

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var documentSchema string

// ErrExamNotFound is returned when no exam has the requested ID.
var ErrExamNotFound = errors.New("exam not found")

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
})

// Loader loads and caches exams from the filesystem. Files ending in
// .json, .yaml or .yml are read; anything else is ignored.
type Loader struct {
	rootDir string
	exams   map[string]Exam
	mu      sync.RWMutex
}

// NewLoader creates a loader and loads every exam under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		exams:   make(map[string]Exam),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading exams: %w", err)
	}

	slog.Info("exams loaded", "dir", rootDir, "exams", len(l.exams))
	return l, nil
}

// GetExam returns an exam by ID.
func (l *Loader) GetExam(id string) (Exam, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.exams[id]
	return e, ok
}

// AllExams returns all loaded exams ordered by ID.
func (l *Loader) AllExams() []Exam {
	l.mu.RLock()
	defer l.mu.RUnlock()
	exams := make([]Exam, 0, len(l.exams))
	for _, e := range l.exams {
		exams = append(exams, e)
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].ID < exams[j].ID })
	return exams
}

// Add registers an exam handed over by another collaborator, replacing any
// exam with the same ID.
func (l *Loader) Add(e Exam) error {
	if e.ID == "" {
		return errors.New("exam id is required")
	}
	l.mu.Lock()
	l.exams[e.ID] = e
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			return l.loadExam(path)
		}
		return nil
	})
}

func (l *Loader) loadExam(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	e, err := Parse(data, filepath.Ext(path))
	if err != nil {
		slog.Warn("skipping invalid exam file", "path", path, "error", err)
		return nil
	}

	// Malformed exercises stay in the exam; they judge as undefined.
	if err := e.Validate(); err != nil {
		slog.Warn("exam has invalid exercises", "path", path, "exam_id", e.ID, "error", err)
	}

	l.mu.Lock()
	if _, dup := l.exams[e.ID]; dup {
		slog.Warn("duplicate exam id, later file wins", "path", path, "exam_id", e.ID)
	}
	l.exams[e.ID] = e
	l.mu.Unlock()

	return nil
}

// Parse decodes an exam document. ext selects the format (".json",
// ".yaml" or ".yml"); the document is checked against the exam schema
// before it is converted.
func Parse(data []byte, ext string) (Exam, error) {
	var raw any
	var doc Document
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return Exam{}, fmt.Errorf("decode json: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return Exam{}, fmt.Errorf("decode json: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Exam{}, fmt.Errorf("decode yaml: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Exam{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return Exam{}, fmt.Errorf("unsupported exam format %q", ext)
	}

	if err := validateDocument(raw); err != nil {
		return Exam{}, err
	}
	return doc.Exam(), nil
}

func validateDocument(raw any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile exam schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate exam document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("exam document does not match schema: %s", strings.Join(msgs, "; "))
}
