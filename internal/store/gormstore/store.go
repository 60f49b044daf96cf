// Package gormstore implements core.DocumentStore on gorm, for SQLite and
// PostgreSQL. Rows carry a version column; updates and deletes match on the
// version read earlier in the same transaction, and a miss is reported as
// core.ErrStoreConflict.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"billing-engine/internal/core"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Store is a core.DocumentStore backed by a gorm connection.
type Store struct {
	db *gorm.DB
}

// New creates a Store over db. Call Migrate before first use.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the product and document tables.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range []any{&productRow{}, &documentRow{}} {
		if err := s.db.WithContext(ctx).AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	var row productRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "product "+id)
	}
	return productFromRow(&row), nil
}

func (s *Store) ListProducts(ctx context.Context) ([]core.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	out := make([]core.Product, 0, len(rows))
	for i := range rows {
		out = append(out, *productFromRow(&rows[i]))
	}
	return out, nil
}

func (s *Store) GetDocument(ctx context.Context, kind core.DocumentKind, id string) (*core.Document, error) {
	var row documentRow
	if err := s.db.WithContext(ctx).First(&row, "kind = ? AND id = ?", string(kind), id).Error; err != nil {
		return nil, notFound(err, string(kind)+" "+id)
	}
	return documentFromRow(&row), nil
}

func (s *Store) ListDocuments(ctx context.Context, kind core.DocumentKind) ([]core.Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("kind = ?", string(kind)).
		Order("created_at DESC").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query %ss: %w", kind, err)
	}
	out := make([]core.Document, 0, len(rows))
	for i := range rows {
		out = append(out, *documentFromRow(&rows[i]))
	}
	return out, nil
}

// RunInTx wraps fn in a gorm transaction. Returning an error rolls back.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx core.StoreTx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, newTx(db))
	})
	return mapConflict(err)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("failed to read %s: %w", what, err)
}

// mapConflict tags driver-level contention as core.ErrStoreConflict:
// PostgreSQL serialization failures and deadlocks, SQLite busy/locked, and
// a duplicate key from two racing inserts.
func mapConflict(err error) error {
	if err == nil || errors.Is(err, core.ErrStoreConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", core.ErrStoreConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %w", core.ErrStoreConflict, err)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", core.ErrStoreConflict, err)
	}
	return err
}
