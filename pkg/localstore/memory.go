package localstore

import (
	"sort"
	"sync"
)

// MemoryStore is the default embedded Store implementation. Collections are
// maps keyed by record ID; all access goes through the store's own lock.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Record
	closed      bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Record),
	}
}

// Get returns the record for collection+id, or ErrNotFound.
func (ms *MemoryStore) Get(collection, id string) (*Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	records, exists := ms.collections[collection]
	if !exists {
		return nil, ErrNotFound
	}
	record, exists := records[id]
	if !exists {
		return nil, ErrNotFound
	}

	return copyRecord(record), nil
}

// Put stores or overwrites a record.
func (ms *MemoryStore) Put(record *Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}

	if ms.collections[record.Collection] == nil {
		ms.collections[record.Collection] = make(map[string]*Record)
	}
	ms.collections[record.Collection][record.ID] = copyRecord(record)
	return nil
}

// Delete removes a record; absent records are a no-op.
func (ms *MemoryStore) Delete(collection, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}

	if records, exists := ms.collections[collection]; exists {
		delete(records, id)
		if len(records) == 0 {
			delete(ms.collections, collection)
		}
	}
	return nil
}

// List returns all records in a collection, ordered by UpdatedAt ascending.
func (ms *MemoryStore) List(collection string) ([]*Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	records := ms.collections[collection]
	result := make([]*Record, 0, len(records))
	for _, record := range records {
		result = append(result, copyRecord(record))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})

	return result, nil
}

// Collections returns the names of non-empty collections, sorted.
func (ms *MemoryStore) Collections() ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	names := make([]string, 0, len(ms.collections))
	for name := range ms.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Clear removes every record but keeps the store usable.
func (ms *MemoryStore) Clear() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.collections = make(map[string]map[string]*Record)
}

// Close marks the store closed; all subsequent calls fail.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.closed = true
	ms.collections = nil
	return nil
}

// copyRecord returns a shallow-plus-data copy so callers cannot mutate
// store internals through returned pointers.
func copyRecord(r *Record) *Record {
	dup := *r
	if r.Data != nil {
		dup.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			dup.Data[k] = v
		}
	}
	return &dup
}
