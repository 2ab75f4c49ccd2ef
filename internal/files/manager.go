// Package files keeps the blob store and the catalog consistent: it creates
// file and folder entries, serves downloads and deletes entries.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/BAPONBARMON/file-server/internal/database"
	"github.com/BAPONBARMON/file-server/internal/metrics"
	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/BAPONBARMON/file-server/internal/storage"
	"github.com/rs/zerolog/log"
)

// Event types handed to the Publisher.
const (
	EventEntryCreated = "entry_created"
	EventEntryDeleted = "entry_deleted"
	EventEntryExpired = "entry_expired"
)

// Publisher receives entry change notifications.
type Publisher interface {
	PublishEvent(eventType string, payload interface{})
}

type Option func(*Manager)

// WithPhysicalFolders backs every new folder with a directory in the blob
// store. The blob store must implement storage.DirStore.
func WithPhysicalFolders(enabled bool) Option {
	return func(m *Manager) { m.physicalFolders = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

type Manager struct {
	catalog         database.Catalog
	blobs           storage.BlobStore
	dirs            storage.DirStore
	publisher       Publisher
	physicalFolders bool
	now             func() time.Time
	newID           func() string

	// insertMu orders createdAt stamps with catalog inserts.
	insertMu      sync.Mutex
	lastCreatedAt int64
}

func NewManager(catalog database.Catalog, blobs storage.BlobStore, opts ...Option) (*Manager, error) {
	newID, err := newIDGenerator()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		catalog: catalog,
		blobs:   blobs,
		now:     time.Now,
		newID:   newID,
	}
	m.dirs, _ = blobs.(storage.DirStore)

	for _, opt := range opts {
		opt(m)
	}

	if m.physicalFolders && m.dirs == nil {
		return nil, errors.New("physical folders require a blob store with directory support")
	}

	return m, nil
}

// FileUpload is one file of an upload batch.
type FileUpload struct {
	Name    string
	Content io.Reader
}

// UploadResult is the outcome for a single file of a batch. Exactly one of
// Entry and Err is set.
type UploadResult struct {
	Name  string
	Entry *models.Entry
	Err   error
}

// UploadFiles stores every file of the batch independently: a failure of one
// file is reported in its result and does not stop the others. The returned
// error is set only when the batch as a whole cannot proceed.
func (m *Manager) UploadFiles(ctx context.Context, parentID string, uploads []FileUpload) ([]UploadResult, error) {
	parentID = normalizeParent(parentID)

	dir, err := m.resolveParentDir(ctx, parentID)
	if err != nil {
		return nil, err
	}

	results := make([]UploadResult, 0, len(uploads))
	for _, upload := range uploads {
		entry, err := m.uploadFile(ctx, parentID, dir, upload)
		if err != nil {
			metrics.UploadFailures.Inc()
			log.Warn().Err(err).Str("name", upload.Name).Str("parent_id", parentID).Msg("file upload failed")
		}
		results = append(results, UploadResult{Name: upload.Name, Entry: entry, Err: err})
	}

	return results, nil
}

func (m *Manager) uploadFile(ctx context.Context, parentID, dir string, upload FileUpload) (*models.Entry, error) {
	id, err := m.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	key, size, err := m.blobs.Put(ctx, dir, upload.Name, upload.Content)
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		ID:         id,
		Name:       upload.Name,
		StorageKey: key,
		Kind:       models.KindFile,
		SizeBytes:  size,
		ParentID:   parentID,
	}

	// The insert fails with ErrNotFound when the parent folder was deleted
	// while the blob was being written.
	if err := m.insert(ctx, entry); err != nil {
		if delErr := m.blobs.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("storage_key", key).Msg("failed to remove blob after catalog insert failure")
		}
		return nil, fmt.Errorf("failed to record file %q: %w", upload.Name, err)
	}

	metrics.FilesUploaded.Inc()
	metrics.BytesUploaded.Add(float64(size))
	m.publish(EventEntryCreated, entry)
	return entry, nil
}

// CreateFolder records a new folder. With physical folders the directory is
// created first and removed again if the catalog insert fails.
func (m *Manager) CreateFolder(ctx context.Context, name, parentID string) (*models.Entry, error) {
	parentID = normalizeParent(parentID)

	dir, err := m.resolveParentDir(ctx, parentID)
	if err != nil {
		return nil, err
	}

	id, err := m.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	var key string
	if m.physicalFolders {
		key, err = m.dirs.MakeDir(ctx, dir)
		if err != nil {
			return nil, err
		}
	}

	entry := &models.Entry{
		ID:         id,
		Name:       name,
		StorageKey: key,
		Kind:       models.KindFolder,
		ParentID:   parentID,
	}

	if err := m.insert(ctx, entry); err != nil {
		if key != "" {
			if rmErr := m.dirs.RemoveDir(ctx, key); rmErr != nil {
				log.Warn().Err(rmErr).Str("storage_key", key).Msg("failed to remove folder directory after catalog insert failure")
			}
		}
		return nil, fmt.Errorf("failed to record folder %q: %w", name, err)
	}

	metrics.FoldersCreated.Inc()
	m.publish(EventEntryCreated, entry)
	return entry, nil
}

// ListEntries returns the direct children of parentID.
func (m *Manager) ListEntries(ctx context.Context, parentID string) ([]models.Entry, error) {
	return m.catalog.ListEntriesByParent(ctx, normalizeParent(parentID))
}

// insert stamps createdAt and writes the row while holding insertMu, so
// createdAt never decreases in insertion order.
func (m *Manager) insert(ctx context.Context, entry *models.Entry) error {
	m.insertMu.Lock()
	defer m.insertMu.Unlock()

	createdAt := m.now().UnixMilli()
	if createdAt < m.lastCreatedAt {
		createdAt = m.lastCreatedAt
	}
	entry.CreatedAt = createdAt

	if err := m.catalog.CreateEntry(ctx, entry); err != nil {
		return err
	}
	m.lastCreatedAt = createdAt
	return nil
}

// resolveParentDir checks that parentID is the root or an existing folder and
// returns the blob store directory new children go into.
func (m *Manager) resolveParentDir(ctx context.Context, parentID string) (string, error) {
	if parentID == models.RootParentID {
		return "", nil
	}

	parent, err := m.catalog.GetEntryByID(ctx, parentID)
	if err != nil {
		return "", fmt.Errorf("parent folder: %w", err)
	}
	if !parent.IsFolder() {
		return "", fmt.Errorf("parent %s is a file: %w", parentID, models.ErrInvalidKind)
	}

	if m.dirs == nil {
		return "", nil
	}
	return parent.StorageKey, nil
}

func (m *Manager) publish(eventType string, entry *models.Entry) {
	if m.publisher != nil {
		m.publisher.PublishEvent(eventType, entry)
	}
}

func normalizeParent(parentID string) string {
	if parentID == "" {
		return models.RootParentID
	}
	return parentID
}
