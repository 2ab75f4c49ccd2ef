package database

import (
	"context"
	"fmt"

	"github.com/BAPONBARMON/file-server/internal/database/migrations"
	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Store is the PostgreSQL backed Catalog.
type Store struct {
	pool *pgxpool.Pool
	*Queries
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		Queries: New(pool),
	}
}

func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

// CreateEntry inserts entry under a share lock on its parent. A concurrent
// DeleteTree of the parent either waits for the insert and removes the new
// row with the rest of the subtree, or commits first and the insert fails
// with models.ErrNotFound.
func (s *Store) CreateEntry(ctx context.Context, entry *models.Entry) error {
	if entry.ParentID == models.RootParentID {
		return s.Queries.CreateEntry(ctx, entry)
	}

	return s.ExecTx(ctx, func(q *Queries) error {
		if err := q.lockParent(ctx, entry.ParentID); err != nil {
			return err
		}
		return q.CreateEntry(ctx, entry)
	})
}

func (s *Store) DeleteTree(ctx context.Context, id string) ([]models.Entry, error) {
	var removed []models.Entry

	err := s.ExecTx(ctx, func(q *Queries) error {
		if err := q.lockTree(ctx, id); err != nil {
			return err
		}

		var err error
		removed, err = q.deleteTree(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}

// Migrate brings the catalog schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
