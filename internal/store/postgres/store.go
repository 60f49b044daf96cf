// Package postgres implements core.DocumentStore on PostgreSQL via pgx.
//
// Transactions run at REPEATABLE READ and lock every product and document
// they read with SELECT ... FOR UPDATE. Serialization failures and deadlocks
// surface as core.ErrStoreConflict so the caller can retry.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"billing-engine/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// Store is a core.DocumentStore backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over pool. Call Migrate before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const productColumns = `id, name, category, unit, sale_price, purchase_price, stock, unlimited, created_at, updated_at`

const documentColumns = `kind, id, customer_id, items, tax_rate, status, notes, doc_date,
	due_date, payment_date, expiry_date, sub_total, tax_amount, total_amount, created_at, updated_at`

func (s *Store) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	return getProduct(ctx, s.pool, id, false)
}

func (s *Store) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func (s *Store) GetDocument(ctx context.Context, kind core.DocumentKind, id string) (*core.Document, error) {
	return getDocument(ctx, s.pool, kind, id, false)
}

func (s *Store) ListDocuments(ctx context.Context, kind core.DocumentKind) ([]core.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM billing_documents
		WHERE kind = $1
		ORDER BY created_at DESC, id
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query %ss: %w", kind, err)
	}
	defer rows.Close()

	docs := make([]core.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", kind, err)
	}
	return docs, nil
}

// RunInTx opens one pgx transaction for fn. Any error from fn rolls back.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx core.StoreTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapConflict(err))
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &storeTx{tx: tx}); err != nil {
		return mapConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapConflict(err))
	}
	return nil
}

// mapConflict tags serialization failures and deadlocks with
// core.ErrStoreConflict while keeping the driver error in the chain.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return fmt.Errorf("%w: %w", core.ErrStoreConflict, err)
		}
	}
	return err
}

// storeTx is the core.StoreTx view over a pgx.Tx. Every read takes a row lock.
type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	return getProduct(ctx, t.tx, id, true)
}

func (t *storeTx) PutProduct(ctx context.Context, p *core.Product) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			unit = EXCLUDED.unit,
			sale_price = EXCLUDED.sale_price,
			purchase_price = EXCLUDED.purchase_price,
			stock = EXCLUDED.stock,
			unlimited = EXCLUDED.unlimited,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.Name, p.Category, p.Unit, p.SalePrice, p.PurchasePrice, p.Stock, p.Unlimited, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}
	return nil
}

func (t *storeTx) GetDocument(ctx context.Context, kind core.DocumentKind, id string) (*core.Document, error) {
	return getDocument(ctx, t.tx, kind, id, true)
}

func (t *storeTx) PutDocument(ctx context.Context, d *core.Document) error {
	items, err := json.Marshal(d.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO billing_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (kind, id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			items = EXCLUDED.items,
			tax_rate = EXCLUDED.tax_rate,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			doc_date = EXCLUDED.doc_date,
			due_date = EXCLUDED.due_date,
			payment_date = EXCLUDED.payment_date,
			expiry_date = EXCLUDED.expiry_date,
			sub_total = EXCLUDED.sub_total,
			tax_amount = EXCLUDED.tax_amount,
			total_amount = EXCLUDED.total_amount,
			updated_at = EXCLUDED.updated_at
	`, string(d.Kind), d.ID, d.CustomerID, string(items), d.TaxRate, string(d.Status), d.Notes, d.Date,
		d.DueDate, d.PaymentDate, d.ExpiryDate, d.SubTotal, d.TaxAmount, d.TotalAmount, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", d.Kind, d.ID, err)
	}
	return nil
}

func (t *storeTx) DeleteDocument(ctx context.Context, kind core.DocumentKind, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM billing_documents WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func getProduct(ctx context.Context, q pgxQuerier, id string, forUpdate bool) (*core.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read product %s: %w", id, err)
	}
	return p, nil
}

func getDocument(ctx context.Context, q pgxQuerier, kind core.DocumentKind, id string, forUpdate bool) (*core.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM billing_documents WHERE kind = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	d, err := scanDocument(q.QueryRow(ctx, query, string(kind), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}
	return d, nil
}

func scanProduct(row pgx.Row) (*core.Product, error) {
	var p core.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.SalePrice, &p.PurchasePrice,
		&p.Stock, &p.Unlimited, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanDocument(row pgx.Row) (*core.Document, error) {
	var (
		d                                     core.Document
		kind, status                          string
		items                                 []byte
		dueDate, paymentDate, expiryDate      *time.Time
		taxRate, subTotal, taxAmount, totalAm decimal.Decimal
	)
	if err := row.Scan(&kind, &d.ID, &d.CustomerID, &items, &taxRate, &status, &d.Notes, &d.Date,
		&dueDate, &paymentDate, &expiryDate, &subTotal, &taxAmount, &totalAm, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &d.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of %s %s: %w", kind, d.ID, err)
	}
	d.Kind = core.DocumentKind(kind)
	d.Status = core.DocumentStatus(status)
	d.DueDate, d.PaymentDate, d.ExpiryDate = dueDate, paymentDate, expiryDate
	d.TaxRate, d.SubTotal, d.TaxAmount, d.TotalAmount = taxRate, subTotal, taxAmount, totalAm
	return &d, nil
}
