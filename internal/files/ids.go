package files

import (
	"context"
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const (
	idLength      = 21
	maxIDAttempts = 10
)

func newIDGenerator() (func() string, error) {
	generateID, err := nanoid.Standard(idLength)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}
	return generateID, nil
}

// generateUniqueID draws ids until one is not present in the catalog.
func (m *Manager) generateUniqueID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := m.newID()
		exists, err := m.catalog.EntryExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for entry existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxIDAttempts)
}
