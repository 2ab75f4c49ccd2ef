package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/BAPONBARMON/file-server/internal/models"
)

// MemoryStore is an in-process Catalog. Rows are kept in insertion order and
// copies are handed out so callers cannot mutate stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.Entry
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*models.Entry),
	}
}

func (m *MemoryStore) CreateEntry(ctx context.Context, entry *models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.ID]; exists {
		return fmt.Errorf("entry %s: %w", entry.ID, models.ErrDuplicateID)
	}
	if entry.ParentID != models.RootParentID {
		if _, exists := m.entries[entry.ParentID]; !exists {
			return fmt.Errorf("parent %s: %w", entry.ParentID, models.ErrNotFound)
		}
	}

	entryCopy := *entry
	m.entries[entry.ID] = &entryCopy
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *MemoryStore) GetEntryByID(ctx context.Context, id string) (*models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.entries[id]
	if !exists {
		return nil, fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}
	entryCopy := *entry
	return &entryCopy, nil
}

func (m *MemoryStore) EntryExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.entries[id]
	return exists, nil
}

func (m *MemoryStore) ListEntriesByParent(ctx context.Context, parentID string) ([]models.Entry, error) {
	return m.filter(func(e *models.Entry) bool { return e.ParentID == parentID }), nil
}

func (m *MemoryStore) ListAllEntries(ctx context.Context) ([]models.Entry, error) {
	return m.filter(func(*models.Entry) bool { return true }), nil
}

func (m *MemoryStore) ListDescendants(ctx context.Context, id string) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inTree := m.subtree(id)
	delete(inTree, id)

	result := []models.Entry{}
	for _, entryID := range m.order {
		if inTree[entryID] {
			result = append(result, *m.entries[entryID])
		}
	}
	return result, nil
}

func (m *MemoryStore) DeleteEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[id]; !exists {
		return fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}
	m.remove(map[string]bool{id: true})
	return nil
}

func (m *MemoryStore) DeleteTree(ctx context.Context, id string) ([]models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[id]; !exists {
		return nil, fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}

	inTree := m.subtree(id)
	removed := make([]models.Entry, 0, len(inTree))
	for _, entryID := range m.order {
		if inTree[entryID] {
			removed = append(removed, *m.entries[entryID])
		}
	}
	m.remove(inTree)
	return removed, nil
}

func (m *MemoryStore) filter(keep func(*models.Entry) bool) []models.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []models.Entry{}
	for _, id := range m.order {
		if entry := m.entries[id]; keep(entry) {
			result = append(result, *entry)
		}
	}
	return result
}

// subtree returns id plus every transitive child. Caller holds the lock.
func (m *MemoryStore) subtree(id string) map[string]bool {
	children := make(map[string][]string)
	for _, entryID := range m.order {
		parent := m.entries[entryID].ParentID
		children[parent] = append(children[parent], entryID)
	}

	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return seen
}

// remove drops the given ids. Caller holds the write lock.
func (m *MemoryStore) remove(ids map[string]bool) {
	kept := m.order[:0]
	for _, entryID := range m.order {
		if ids[entryID] {
			delete(m.entries, entryID)
			continue
		}
		kept = append(kept, entryID)
	}
	m.order = kept
}
