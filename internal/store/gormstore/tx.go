package gormstore

import (
	"context"
	"fmt"

	"billing-engine/internal/core"

	"gorm.io/gorm"
)

type docKey struct {
	kind core.DocumentKind
	id   string
}

// tx remembers the version of every row it has read or written so the next
// write can be made conditional on it.
type tx struct {
	db       *gorm.DB
	products map[string]int64
	docs     map[docKey]int64
}

func newTx(db *gorm.DB) *tx {
	return &tx{
		db:       db,
		products: make(map[string]int64),
		docs:     make(map[docKey]int64),
	}
}

func (t *tx) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	var row productRow
	if err := t.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "product "+id)
	}
	t.products[id] = row.Version
	return productFromRow(&row), nil
}

func (t *tx) PutProduct(ctx context.Context, p *core.Product) error {
	version, known := t.products[p.ID]
	if !known {
		if err := t.db.WithContext(ctx).Create(productToRow(p, 1)).Error; err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
		}
		t.products[p.ID] = 1
		return nil
	}

	res := t.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ? AND version = ?", p.ID, version).
		Updates(map[string]any{
			"name":           p.Name,
			"category":       p.Category,
			"unit":           p.Unit,
			"sale_price":     p.SalePrice,
			"purchase_price": p.PurchasePrice,
			"stock":          p.Stock,
			"unlimited":      p.Unlimited,
			"version":        version + 1,
			"updated_at":     p.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update product %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s changed during transaction: %w", p.ID, core.ErrStoreConflict)
	}
	t.products[p.ID] = version + 1
	return nil
}

func (t *tx) GetDocument(ctx context.Context, kind core.DocumentKind, id string) (*core.Document, error) {
	var row documentRow
	if err := t.db.WithContext(ctx).First(&row, "kind = ? AND id = ?", string(kind), id).Error; err != nil {
		return nil, notFound(err, string(kind)+" "+id)
	}
	t.docs[docKey{kind, id}] = row.Version
	return documentFromRow(&row), nil
}

func (t *tx) PutDocument(ctx context.Context, d *core.Document) error {
	k := docKey{d.Kind, d.ID}
	version, known := t.docs[k]
	if !known {
		if err := t.db.WithContext(ctx).Create(documentToRow(d, 1)).Error; err != nil {
			return fmt.Errorf("failed to insert %s %s: %w", d.Kind, d.ID, err)
		}
		t.docs[k] = 1
		return nil
	}

	row := documentToRow(d, version+1)
	res := t.db.WithContext(ctx).Model(&documentRow{}).
		Where("kind = ? AND id = ? AND version = ?", row.Kind, row.ID, version).
		Select("*").Omit("kind", "id", "created_at").
		Updates(row)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s %s: %w", d.Kind, d.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s changed during transaction: %w", d.Kind, d.ID, core.ErrStoreConflict)
	}
	t.docs[k] = version + 1
	return nil
}

func (t *tx) DeleteDocument(ctx context.Context, kind core.DocumentKind, id string) error {
	k := docKey{kind, id}
	q := t.db.WithContext(ctx).Where("kind = ? AND id = ?", string(kind), id)
	version, known := t.docs[k]
	if known {
		q = q.Where("version = ?", version)
	}
	res := q.Delete(&documentRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		if known {
			return fmt.Errorf("%s %s changed during transaction: %w", kind, id, core.ErrStoreConflict)
		}
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	delete(t.docs, k)
	return nil
}
