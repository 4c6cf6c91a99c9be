// File: internal/usecase/item_store.go
package usecase

import (
	"sync"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
)

// ItemStore owns the shared WorkItem collection. Every mutation goes
// through model.ApplyUpdate (or a wholesale replace) under the lock, so
// concurrent tasks updating different items never lose each other's writes.
type ItemStore struct {
	mu    sync.RWMutex
	items []model.WorkItem

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

func NewItemStore() *ItemStore {
	return &ItemStore{subs: map[int]chan struct{}{}}
}

// Snapshot returns a deep copy of the collection in order.
func (s *ItemStore) Snapshot() []model.WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneItems(s.items)
}

func (s *ItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *ItemStore) Get(id string) (model.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it.Clone(), nil
		}
	}
	return model.WorkItem{}, domain.ErrNotFound
}

// Update applies patch to the item with the given id.
func (s *ItemStore) Update(id string, patch model.Patch) error {
	return s.Modify(id, func(w model.WorkItem) (model.WorkItem, error) {
		return patch(w), nil
	})
}

// Modify is Update with a guard: when fn returns an error the collection is
// left untouched and the error is returned.
func (s *ItemStore) Modify(id string, fn func(model.WorkItem) (model.WorkItem, error)) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	var ferr error
	next := model.ApplyUpdate(s.items, id, func(w model.WorkItem) model.WorkItem {
		out, err := fn(w)
		if err != nil {
			ferr = err
			return w
		}
		return out
	})
	if ferr != nil {
		s.mu.Unlock()
		return ferr
	}
	s.items = next
	s.mu.Unlock()
	s.notify()
	return nil
}

// Transform replaces the whole collection with fn(current) atomically.
// fn receives a deep copy it may modify freely.
func (s *ItemStore) Transform(fn func(items []model.WorkItem) []model.WorkItem) {
	s.mu.Lock()
	s.items = fn(model.CloneItems(s.items))
	s.mu.Unlock()
	s.notify()
}

func (s *ItemStore) Append(items ...model.WorkItem) {
	if len(items) == 0 {
		return
	}
	s.mu.Lock()
	next := make([]model.WorkItem, 0, len(s.items)+len(items))
	next = append(next, s.items...)
	next = append(next, model.CloneItems(items)...)
	s.items = next
	s.mu.Unlock()
	s.notify()
}

func (s *ItemStore) Replace(items []model.WorkItem) {
	s.mu.Lock()
	s.items = model.CloneItems(items)
	s.mu.Unlock()
	s.notify()
}

func (s *ItemStore) Clear() {
	s.Replace(nil)
}

// Subscribe returns a channel that receives a signal after changes. Signals
// coalesce: a slow reader sees at least one pending signal, never a backlog.
func (s *ItemStore) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *ItemStore) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *ItemStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
