package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const documentVersion = "1.0.0"

// projectDocument is the on-disk shape of a project's todo file. Version and
// LastModified are written on every save and never read back.
type projectDocument struct {
	Version      string `json:"version"`
	Todos        []Item `json:"todos"`
	LastModified string `json:"lastModified"`
}

// ProjectStore keeps a project's todos in a JSON file under the project root.
// The root is fixed at construction; an empty root means no project is open,
// in which case reads are empty and writes are dropped.
type ProjectStore struct {
	root string
	file string
	now  func() time.Time
}

// NewProjectStore binds the store to root. file is relative to root.
func NewProjectStore(root, file string) *ProjectStore {
	return &ProjectStore{root: root, file: file, now: time.Now}
}

func (s *ProjectStore) Root() string { return s.root }

// Path is the todo file location, or "" without an active project.
func (s *ProjectStore) Path() string {
	if s.root == "" {
		return ""
	}
	return filepath.Join(s.root, filepath.FromSlash(s.file))
}

func (s *ProjectStore) ensureDir() error {
	p := s.Path()
	if p == "" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(p), 0o755)
}

// load treats a missing or malformed file as an empty collection.
func (s *ProjectStore) load() []Item {
	p := s.Path()
	if p == "" {
		return []Item{}
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("project todos unreadable", "path", p, "err", err)
		}
		return []Item{}
	}
	var doc projectDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		log.Warn("project todos malformed, treating as empty", "path", p, "err", err)
		return []Item{}
	}
	if doc.Todos == nil {
		return []Item{}
	}
	return doc.Todos
}

func (s *ProjectStore) save(items []Item) error {
	p := s.Path()
	if p == "" {
		return nil
	}
	if err := s.ensureDir(); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(p), err)
	}
	doc := projectDocument{
		Version:      documentVersion,
		Todos:        items,
		LastModified: s.now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *ProjectStore) All() []Item {
	return s.load()
}

// Add stamps the item with the project root before appending it.
func (s *ProjectStore) Add(item Item) error {
	items := s.load()
	item.ProjectPath = s.root
	return s.save(append(items, item))
}

func (s *ProjectStore) Update(id string, patch Patch) (Item, bool, error) {
	items := s.load()
	i := indexOf(items, id)
	if i < 0 {
		return Item{}, false, nil
	}
	items[i] = patch.apply(items[i])
	if err := s.save(items); err != nil {
		return Item{}, false, err
	}
	return items[i], true, nil
}

func (s *ProjectStore) Delete(id string) (bool, error) {
	rest, removed := without(s.load(), id)
	if !removed {
		return false, nil
	}
	return true, s.save(rest)
}

func (s *ProjectStore) ClearCompleted() error {
	return s.save(pending(s.load()))
}

func (s *ProjectStore) Completed() []Item {
	return CompletedByTime(s.load())
}
