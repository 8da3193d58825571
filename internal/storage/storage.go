package storage

import (
	"sort"
)

// Scope selects one of the two independent todo lists.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
)

// ParseScope maps "project" to ScopeProject and everything else to ScopeGlobal.
func ParseScope(s string) Scope {
	if Scope(s) == ScopeProject {
		return ScopeProject
	}
	return ScopeGlobal
}

// Label is the capitalised scope name shown to users.
func (s Scope) Label() string {
	if s == ScopeProject {
		return "Project"
	}
	return "Global"
}

// Item is a single todo entry. Timestamps are epoch milliseconds.
type Item struct {
	ID          string `json:"id" yaml:"id"`
	Text        string `json:"text" yaml:"text"`
	Completed   bool   `json:"completed" yaml:"completed"`
	CreatedAt   int64  `json:"createdAt" yaml:"createdAt"`
	CompletedAt *int64 `json:"completedAt" yaml:"completedAt,omitempty"`
	ProjectPath string `json:"projectPath,omitempty" yaml:"projectPath,omitempty"`
}

// Patch holds the externally mutable fields of an Item. Nil fields are left
// untouched; ClearCompletedAt wins over CompletedAt.
type Patch struct {
	Text             *string
	Completed        *bool
	CompletedAt      *int64
	ClearCompletedAt bool
}

func (p Patch) apply(it Item) Item {
	if p.Text != nil {
		it.Text = *p.Text
	}
	if p.Completed != nil {
		it.Completed = *p.Completed
	}
	switch {
	case p.ClearCompletedAt:
		it.CompletedAt = nil
	case p.CompletedAt != nil:
		ts := *p.CompletedAt
		it.CompletedAt = &ts
	}
	return it
}

// Store owns the canonical collection for one scope. Every mutation reads the
// full collection, applies the change and writes the full collection back.
type Store interface {
	All() []Item
	Add(item Item) error
	Update(id string, patch Patch) (Item, bool, error)
	Delete(id string) (bool, error)
	ClearCompleted() error
	Completed() []Item
}

func indexOf(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func without(items []Item, id string) ([]Item, bool) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out, len(out) != len(items)
}

func pending(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Completed {
			out = append(out, it)
		}
	}
	return out
}

// CompletedByTime returns the completed items ordered by CompletedAt, newest
// first. A missing CompletedAt counts as zero; ties keep collection order.
func CompletedByTime(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Completed {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return completedAt(out[i]) > completedAt(out[j])
	})
	return out
}

func completedAt(it Item) int64 {
	if it.CompletedAt == nil {
		return 0
	}
	return *it.CompletedAt
}
