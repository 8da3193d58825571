package storage

import (
	"github.com/charmbracelet/log"
)

// GlobalKey is the single KV key holding the whole global collection.
const GlobalKey = "todopanel.globalTodos"

// GlobalStore is the installation-wide list, shared across projects.
type GlobalStore struct {
	kv KV
}

func NewGlobalStore(kv KV) *GlobalStore {
	return &GlobalStore{kv: kv}
}

func (s *GlobalStore) load() ([]Item, error) {
	var items []Item
	if _, err := s.kv.Get(GlobalKey, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (s *GlobalStore) save(items []Item) error {
	return s.kv.Update(GlobalKey, items)
}

func (s *GlobalStore) All() []Item {
	items, err := s.load()
	if err != nil {
		log.Warn("global todos unreadable, showing empty list", "err", err)
		return []Item{}
	}
	return items
}

func (s *GlobalStore) Add(item Item) error {
	items, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(items, item))
}

func (s *GlobalStore) Update(id string, patch Patch) (Item, bool, error) {
	items, err := s.load()
	if err != nil {
		return Item{}, false, err
	}
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

func (s *GlobalStore) Delete(id string) (bool, error) {
	items, err := s.load()
	if err != nil {
		return false, err
	}
	rest, removed := without(items, id)
	if !removed {
		return false, nil
	}
	return true, s.save(rest)
}

func (s *GlobalStore) ClearCompleted() error {
	items, err := s.load()
	if err != nil {
		return err
	}
	return s.save(pending(items))
}

func (s *GlobalStore) Completed() []Item {
	return CompletedByTime(s.All())
}
