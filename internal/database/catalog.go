package database

import (
	"context"

	"github.com/BAPONBARMON/file-server/internal/models"
)

// Catalog is the metadata table of entries. Implementations are safe for
// concurrent use; every method is a self-contained operation.
type Catalog interface {
	// CreateEntry fails with models.ErrDuplicateID when the id is taken and
	// with models.ErrNotFound when the parent is not in the catalog. The
	// parent check is atomic with respect to DeleteTree.
	CreateEntry(ctx context.Context, entry *models.Entry) error
	GetEntryByID(ctx context.Context, id string) (*models.Entry, error)
	EntryExists(ctx context.Context, id string) (bool, error)
	// ListEntriesByParent returns entries in insertion order.
	ListEntriesByParent(ctx context.Context, parentID string) ([]models.Entry, error)
	ListAllEntries(ctx context.Context) ([]models.Entry, error)
	// ListDescendants returns every entry below id, not including id itself.
	ListDescendants(ctx context.Context, id string) ([]models.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	// DeleteTree removes id and all of its descendants atomically and
	// returns the removed rows.
	DeleteTree(ctx context.Context, id string) ([]models.Entry, error)
}

var (
	_ Catalog = (*Store)(nil)
	_ Catalog = (*MemoryStore)(nil)
)
