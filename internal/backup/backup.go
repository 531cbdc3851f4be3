// Package backup exports the whole store to a JSON document and restores
// it from one. The document layout is shared with the browser version of
// the tracker, so its backups import here unchanged.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/model"
)

// ErrInvalidFormat is returned when a document lacks the tasks, projects
// or years arrays. Nothing has been written when it is returned.
var ErrInvalidFormat = errors.New("invalid backup format")

// Store is the persistence a backup reads from and restores into.
type Store interface {
	ListTasks(ctx context.Context, filter db.TaskFilter) ([]model.Task, error)
	ListProjects(ctx context.Context, filter db.ProjectFilter) ([]model.Project, error)
	ListYears(ctx context.Context) ([]model.Year, error)
	ReplaceAll(ctx context.Context, tasks []model.Task, projects []model.Project, years []model.Year) error
}

// Document is the backup file layout.
type Document struct {
	Tasks       []model.Task    `json:"tasks"`
	Projects    []model.Project `json:"projects"`
	Years       []model.Year    `json:"years"`
	ExportDate  string          `json:"exportDate"`
	StorageInfo StorageInfo     `json:"storageInfo"`
}

// DefaultFileName names a backup taken at now.
func DefaultFileName(now time.Time) string {
	return fmt.Sprintf("bidtrack_backup_%s.json", now.Format("2006-01-02"))
}

// snapshot reads every row from the store.
func snapshot(ctx context.Context, store Store) (*Document, error) {
	tasks, err := store.ListTasks(ctx, db.TaskFilter{})
	if err != nil {
		return nil, err
	}
	projects, err := store.ListProjects(ctx, db.ProjectFilter{})
	if err != nil {
		return nil, err
	}
	years, err := store.ListYears(ctx)
	if err != nil {
		return nil, err
	}

	doc := &Document{Tasks: tasks, Projects: projects, Years: years}
	if doc.Tasks == nil {
		doc.Tasks = []model.Task{}
	}
	if doc.Projects == nil {
		doc.Projects = []model.Project{}
	}
	if doc.Years == nil {
		doc.Years = []model.Year{}
	}
	return doc, nil
}

// Export builds a backup document of the current store.
func Export(ctx context.Context, store Store, now time.Time) (*Document, error) {
	doc, err := snapshot(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	info, err := doc.storageInfo()
	if err != nil {
		return nil, err
	}
	doc.ExportDate = now.UTC().Format(time.RFC3339)
	doc.StorageInfo = info
	return doc, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Parse decodes a backup document and checks its shape.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for _, key := range []string{"tasks", "projects", "years"} {
		raw, ok := shape[key]
		if !ok || len(raw) == 0 || raw[0] != '[' {
			return nil, fmt.Errorf("%w: missing %q array", ErrInvalidFormat, key)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &doc, nil
}

// Import replaces the whole store with the document read from r. Either
// every row is restored or the store is left as it was.
func Import(ctx context.Context, store Store, r io.Reader) (*Document, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}
	normalize(doc)

	if err := store.ReplaceAll(ctx, doc.Tasks, doc.Projects, doc.Years); err != nil {
		return nil, fmt.Errorf("failed to restore backup: %w", err)
	}
	return doc, nil
}

// normalize fills in what older backups don't carry. Derived tasks from
// before typed identities get theirs back from their titles.
func normalize(doc *Document) {
	for i := range doc.Tasks {
		t := &doc.Tasks[i]
		if t.Source == nil && t.IsProjectTask && t.ProjectID != nil {
			t.Source = model.InferSource(t.Title)
		}
	}
}
