package memory

import (
	"context"
	"fmt"

	"billing-engine/internal/core"
)

// tx buffers writes and records the version of every key on first touch.
// Version 0 means "absent when read".
type tx struct {
	s *Store

	productReads  map[string]uint64
	productCache  map[string]*core.Product
	productWrites map[string]*core.Product

	docReads   map[docKey]uint64
	docCache   map[docKey]*core.Document
	docWrites  map[docKey]*core.Document
	docDeletes map[docKey]struct{}
}

func newTx(s *Store) *tx {
	return &tx{
		s:             s,
		productReads:  make(map[string]uint64),
		productCache:  make(map[string]*core.Product),
		productWrites: make(map[string]*core.Product),
		docReads:      make(map[docKey]uint64),
		docCache:      make(map[docKey]*core.Document),
		docWrites:     make(map[docKey]*core.Document),
		docDeletes:    make(map[docKey]struct{}),
	}
}

func (t *tx) GetProduct(_ context.Context, id string) (*core.Product, error) {
	if p, ok := t.productWrites[id]; ok {
		return copyProduct(p), nil
	}
	p, ok := t.productCache[id]
	if !ok {
		t.s.mu.RLock()
		rec := t.s.products[id]
		t.s.mu.RUnlock()
		t.productReads[id] = rec.version
		t.productCache[id] = rec.p
		p = rec.p
	}
	if p == nil {
		return nil, fmt.Errorf("product %s: %w", id, core.ErrNotFound)
	}
	return copyProduct(p), nil
}

func (t *tx) PutProduct(_ context.Context, p *core.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	t.touchProduct(p.ID)
	t.productWrites[p.ID] = copyProduct(p)
	return nil
}

func (t *tx) GetDocument(_ context.Context, kind core.DocumentKind, id string) (*core.Document, error) {
	k := docKey{kind, id}
	if _, deleted := t.docDeletes[k]; deleted {
		return nil, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	if d, ok := t.docWrites[k]; ok {
		return copyDocument(d), nil
	}
	d, ok := t.docCache[k]
	if !ok {
		t.s.mu.RLock()
		rec := t.s.documents[k]
		t.s.mu.RUnlock()
		t.docReads[k] = rec.version
		t.docCache[k] = rec.d
		d = rec.d
	}
	if d == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return copyDocument(d), nil
}

func (t *tx) PutDocument(_ context.Context, d *core.Document) error {
	if d.ID == "" {
		return fmt.Errorf("document id is required")
	}
	k := docKey{d.Kind, d.ID}
	t.touchDocument(k)
	delete(t.docDeletes, k)
	t.docWrites[k] = copyDocument(d)
	return nil
}

func (t *tx) DeleteDocument(ctx context.Context, kind core.DocumentKind, id string) error {
	if _, err := t.GetDocument(ctx, kind, id); err != nil {
		return err
	}
	k := docKey{kind, id}
	delete(t.docWrites, k)
	t.docDeletes[k] = struct{}{}
	return nil
}

// touchProduct records the current version of a key written without a
// prior read, so a concurrent blind write to the same key still conflicts.
func (t *tx) touchProduct(id string) {
	if _, ok := t.productReads[id]; ok {
		return
	}
	t.s.mu.RLock()
	t.productReads[id] = t.s.products[id].version
	t.s.mu.RUnlock()
}

func (t *tx) touchDocument(k docKey) {
	if _, ok := t.docReads[k]; ok {
		return
	}
	t.s.mu.RLock()
	t.docReads[k] = t.s.documents[k].version
	t.s.mu.RUnlock()
}
