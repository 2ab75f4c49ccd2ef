package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const entryColumns = `id, name, storage_key, kind, size_bytes, parent_id, created_at`

func scanEntry(row pgx.Row) (*models.Entry, error) {
	var entry models.Entry
	var kind string
	err := row.Scan(
		&entry.ID,
		&entry.Name,
		&entry.StorageKey,
		&kind,
		&entry.SizeBytes,
		&entry.ParentID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Kind = models.Kind(kind)
	return &entry, nil
}

func collectEntries(rows pgx.Rows) ([]models.Entry, error) {
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if entries == nil {
		return []models.Entry{}, nil
	}

	return entries, nil
}

func (q *Queries) CreateEntry(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO entries (id, name, storage_key, kind, size_bytes, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.db.Exec(ctx, query,
		entry.ID,
		entry.Name,
		entry.StorageKey,
		string(entry.Kind),
		entry.SizeBytes,
		entry.ParentID,
		entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("entry %s: %w", entry.ID, models.ErrDuplicateID)
		}
		return err
	}
	return nil
}

func (q *Queries) GetEntryByID(ctx context.Context, id string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`

	entry, err := scanEntry(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return entry, nil
}

func (q *Queries) EntryExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM entries WHERE id = $1)"
	err := q.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (q *Queries) ListEntriesByParent(ctx context.Context, parentID string) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE parent_id = $1 ORDER BY seq`

	rows, err := q.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (q *Queries) ListAllEntries(ctx context.Context) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries ORDER BY seq`

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (q *Queries) ListDescendants(ctx context.Context, id string) ([]models.Entry, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT e.id, e.seq
			FROM entries e
			WHERE e.parent_id = $1

			UNION ALL

			SELECT e.id, e.seq
			FROM entries e
			INNER JOIN tree t ON e.parent_id = t.id
		)
		SELECT ` + entryColumns + `
		FROM entries
		WHERE id IN (SELECT id FROM tree)
		ORDER BY seq
	`
	rows, err := q.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (q *Queries) DeleteEntry(ctx context.Context, id string) error {
	res, err := q.db.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// lockParent holds a share lock on a parent row until the transaction ends,
// which blocks a concurrent lockTree on the same row.
func (q *Queries) lockParent(ctx context.Context, id string) error {
	var locked string
	err := q.db.QueryRow(ctx, `SELECT id FROM entries WHERE id = $1 FOR SHARE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("parent %s: %w", id, models.ErrNotFound)
		}
		return err
	}
	return nil
}

// lockTree takes row locks on id and all of its descendants for the rest of
// the transaction.
func (q *Queries) lockTree(ctx context.Context, id string) error {
	query := `
		WITH RECURSIVE tree AS (
			SELECT e.id
			FROM entries e
			WHERE e.id = $1

			UNION ALL

			SELECT e.id
			FROM entries e
			INNER JOIN tree t ON e.parent_id = t.id
		)
		SELECT id FROM entries
		WHERE id IN (SELECT id FROM tree)
		FOR UPDATE`

	rows, err := q.db.Query(ctx, query, id)
	if err != nil {
		return err
	}
	locked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return err
	}

	for _, lockedID := range locked {
		if lockedID == id {
			return nil
		}
	}
	return fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
}

func (q *Queries) deleteTree(ctx context.Context, id string) ([]models.Entry, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT e.id
			FROM entries e
			WHERE e.id = $1

			UNION ALL

			SELECT e.id
			FROM entries e
			INNER JOIN tree t ON e.parent_id = t.id
		)
		DELETE FROM entries
		WHERE id IN (SELECT id FROM tree)
		RETURNING ` + entryColumns

	rows, err := q.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}
