package files

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/BAPONBARMON/file-server/internal/metrics"
	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/rs/zerolog/log"
)

// Download opens the payload of a file entry. The caller closes the stream.
func (m *Manager) Download(ctx context.Context, id string) (io.ReadCloser, *models.Entry, error) {
	entry, err := m.catalog.GetEntryByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if entry.IsFolder() {
		return nil, nil, fmt.Errorf("cannot download folder %s: %w", id, models.ErrInvalidKind)
	}

	stream, err := m.blobs.Get(ctx, entry.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return stream, entry, nil
}

// Delete removes an entry on behalf of a user. Folders are removed together
// with everything below them. Deleting an absent id returns ErrNotFound.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.remove(ctx, id, metrics.TriggerUser)
}

// Expire is Delete for the retention reaper.
func (m *Manager) Expire(ctx context.Context, id string) error {
	return m.remove(ctx, id, metrics.TriggerReaper)
}

func (m *Manager) remove(ctx context.Context, id, trigger string) error {
	entry, err := m.catalog.GetEntryByID(ctx, id)
	if err != nil {
		return err
	}

	var removed []models.Entry
	if entry.IsFolder() {
		removed, err = m.removeFolder(ctx, entry)
	} else {
		removed, err = m.removeFile(ctx, entry)
	}
	if err != nil {
		return err
	}

	eventType := EventEntryDeleted
	if trigger == metrics.TriggerReaper {
		eventType = EventEntryExpired
	}

	metrics.EntriesDeleted.WithLabelValues(trigger).Add(float64(len(removed)))
	for i := range removed {
		m.publish(eventType, &removed[i])
	}

	log.Debug().Str("entry_id", id).Str("trigger", trigger).Int("removed", len(removed)).Msg("entry deleted")
	return nil
}

// removeFile deletes the blob, then the row. A blob that is already gone
// does not keep the row alive.
func (m *Manager) removeFile(ctx context.Context, entry *models.Entry) ([]models.Entry, error) {
	if err := m.deleteBlob(ctx, entry.StorageKey); err != nil {
		return nil, err
	}

	if err := m.catalog.DeleteEntry(ctx, entry.ID); err != nil {
		return nil, err
	}
	return []models.Entry{*entry}, nil
}

// removeFolder deletes the blobs of all descendant files and the
// directories of all physical folders in the subtree, then drops the whole
// subtree from the catalog in one step.
func (m *Manager) removeFolder(ctx context.Context, entry *models.Entry) ([]models.Entry, error) {
	descendants, err := m.catalog.ListDescendants(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	cleared := make(map[string]bool, len(descendants))
	for _, d := range descendants {
		if d.IsFolder() {
			continue
		}
		if err := m.deleteBlob(ctx, d.StorageKey); err != nil {
			return nil, err
		}
		cleared[d.ID] = true
	}

	// Physical folders may sit below virtual ones.
	for _, d := range append([]models.Entry{*entry}, descendants...) {
		if !d.IsFolder() {
			continue
		}
		if err := m.removeDir(ctx, d.StorageKey); err != nil {
			return nil, err
		}
		cleared[d.ID] = true
	}

	removed, err := m.catalog.DeleteTree(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	// Entries created in the subtree after the listing above.
	for _, r := range removed {
		if cleared[r.ID] {
			continue
		}
		if r.IsFolder() {
			err = m.removeDir(ctx, r.StorageKey)
		} else {
			err = m.deleteBlob(ctx, r.StorageKey)
		}
		if err != nil {
			log.Warn().Err(err).Str("entry_id", r.ID).Str("storage_key", r.StorageKey).Msg("orphaned storage left behind")
		}
	}

	return removed, nil
}

func (m *Manager) removeDir(ctx context.Context, key string) error {
	if key == "" || m.dirs == nil {
		return nil
	}
	if err := m.dirs.RemoveDir(ctx, key); err != nil {
		return fmt.Errorf("failed to remove folder directory %s: %w", key, err)
	}
	return nil
}

// deleteBlob treats an already missing blob as deleted.
func (m *Manager) deleteBlob(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := m.blobs.Delete(ctx, key)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
