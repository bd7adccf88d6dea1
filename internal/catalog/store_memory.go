package catalog

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

type MemStore struct {
	mu    sync.RWMutex
	items []Item
	byID  map[int64]int
	ids   IDGenerator
}

// NewMemStore returns a store holding seed, in order. A nil generator uses
// clock-derived ids.
func NewMemStore(ids IDGenerator, seed ...Item) *MemStore {
	if ids == nil {
		ids = NewClockIDs(nil)
	}
	s := &MemStore{
		items: make([]Item, 0, len(seed)),
		byID:  make(map[int64]int, len(seed)),
		ids:   ids,
	}
	for _, it := range seed {
		if _, dup := s.byID[it.ID]; dup {
			continue
		}
		s.byID[it.ID] = len(s.items)
		s.items = append(s.items, cloneItem(it))
		ids.Observe(it.ID)
	}
	return s
}

// NewStore is the default catalog: an in-memory store with the seed set.
func NewStore() *MemStore {
	return NewMemStore(nil, SeedItems()...)
}

func (s *MemStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemStore) List(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = cloneItem(it)
	}
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Item, bool, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, false, fmt.Errorf("get item: %w", err)
	}

	n, ok := ParseID(id)
	if !ok {
		return Item{}, false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[n]
	if !ok {
		return Item{}, false, nil
	}
	return cloneItem(s.items[idx]), true, nil
}

func (s *MemStore) Create(ctx context.Context, in *Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	if in == nil {
		return Item{}, ErrNilItem
	}

	it := cloneItem(*in)

	s.mu.Lock()
	defer s.mu.Unlock()

	it.ID = s.ids.Next()
	for {
		if _, taken := s.byID[it.ID]; !taken {
			break
		}
		it.ID = s.ids.Next()
	}

	s.byID[it.ID] = len(s.items)
	s.items = append(s.items, it)
	return cloneItem(it), nil
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func cloneItem(it Item) Item {
	if it.Extra != nil {
		it.Extra = maps.Clone(it.Extra)
	}
	return it
}
