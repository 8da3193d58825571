package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestProjectStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	s := NewProjectStore(root, testProjectFile)

	items := []Item{
		{ID: "01A", Text: "buy milk", CreatedAt: 1700000000000},
		{ID: "01B", Text: "call dentist", Completed: true, CreatedAt: 1700000000001, CompletedAt: ms(1700000005000)},
	}
	if err := s.save(items); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := NewProjectStore(root, testProjectFile)
	if got := reopened.All(); !reflect.DeepEqual(got, items) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, items)
	}
}

func TestProjectStore_DocumentShape(t *testing.T) {
	root := t.TempDir()
	s := NewProjectStore(root, testProjectFile)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	if err := s.Add(Item{ID: "1", Text: "ship it", CreatedAt: 5}); err != nil {
		t.Fatalf("add: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(root, ".vscode", "todos.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["version"] != "1.0.0" {
		t.Fatalf("unexpected version: %v", doc["version"])
	}
	if doc["lastModified"] != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected lastModified: %v", doc["lastModified"])
	}
	todos, ok := doc["todos"].([]any)
	if !ok || len(todos) != 1 {
		t.Fatalf("unexpected todos: %#v", doc["todos"])
	}
	todo := todos[0].(map[string]any)
	if todo["projectPath"] != root {
		t.Fatalf("expected project path stamp %q, got %v", root, todo["projectPath"])
	}
	if v, present := todo["completedAt"]; !present || v != nil {
		t.Fatalf("expected completedAt null, got %v (present=%v)", v, present)
	}
}

func TestProjectStore_NoActiveProject(t *testing.T) {
	s := NewProjectStore("", testProjectFile)

	if err := s.Add(Item{ID: "1", Text: "lost"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := s.All(); len(got) != 0 {
		t.Fatalf("expected writes to be dropped, got %v", got)
	}
	if s.Path() != "" {
		t.Fatalf("expected empty path, got %q", s.Path())
	}
	if err := s.ClearCompleted(); err != nil {
		t.Fatalf("clear: %v", err)
	}
}

func TestProjectStore_MalformedFileReadsEmpty(t *testing.T) {
	root := t.TempDir()
	s := NewProjectStore(root, testProjectFile)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := s.All(); len(got) != 0 {
		t.Fatalf("expected empty collection, got %v", got)
	}
	if err := s.Add(Item{ID: "1", Text: "fresh"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := texts(s.All()); !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Fatalf("got %v", got)
	}
}

func TestProjectStore_NullTodosReadsEmpty(t *testing.T) {
	root := t.TempDir()
	s := NewProjectStore(root, "todos.json")
	if err := os.WriteFile(s.Path(), []byte(`{"version":"1.0.0","todos":null}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := s.All()
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestProjectStore_WriteFailureSurfaces(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, ".vscode")
	if err := os.WriteFile(blocker, []byte("file, not dir"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	s := NewProjectStore(root, testProjectFile)
	if err := s.Add(Item{ID: "1", Text: "x"}); err == nil {
		t.Fatalf("expected error when metadata dir is a file")
	}
}
