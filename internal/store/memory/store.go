// Package memory is a process-local core.DocumentStore with optimistic
// concurrency control. Every record carries a version; a transaction
// remembers the version of each key it read and commits only if none of
// them moved.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"billing-engine/internal/core"
)

type docKey struct {
	kind core.DocumentKind
	id   string
}

// productRecord and documentRecord keep a tombstone (nil value) after a
// delete so the version keeps increasing for that key.
type productRecord struct {
	p       *core.Product
	version uint64
}

type documentRecord struct {
	d       *core.Document
	version uint64
}

// Store is a core.DocumentStore held in process memory.
type Store struct {
	mu        sync.RWMutex
	seq       uint64
	products  map[string]productRecord
	documents map[docKey]documentRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		products:  make(map[string]productRecord),
		documents: make(map[docKey]documentRecord),
	}
}

func (s *Store) GetProduct(_ context.Context, id string) (*core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.products[id]
	if !ok || rec.p == nil {
		return nil, fmt.Errorf("product %s: %w", id, core.ErrNotFound)
	}
	return copyProduct(rec.p), nil
}

func (s *Store) ListProducts(_ context.Context) ([]core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Product, 0, len(s.products))
	for _, rec := range s.products {
		if rec.p != nil {
			out = append(out, *copyProduct(rec.p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetDocument(_ context.Context, kind core.DocumentKind, id string) (*core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.documents[docKey{kind, id}]
	if !ok || rec.d == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return copyDocument(rec.d), nil
}

func (s *Store) ListDocuments(_ context.Context, kind core.DocumentKind) ([]core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Document, 0)
	for k, rec := range s.documents {
		if k.kind == kind && rec.d != nil {
			out = append(out, *copyDocument(rec.d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RunInTx runs fn against a private write buffer and validates every read
// version under the store lock at commit time.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx core.StoreTx) error) error {
	tx := newTx(s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range tx.productReads {
		if s.products[id].version != v {
			return fmt.Errorf("product %s changed during transaction: %w", id, core.ErrStoreConflict)
		}
	}
	for k, v := range tx.docReads {
		if s.documents[k].version != v {
			return fmt.Errorf("%s %s changed during transaction: %w", k.kind, k.id, core.ErrStoreConflict)
		}
	}

	for id, p := range tx.productWrites {
		s.seq++
		s.products[id] = productRecord{p: copyProduct(p), version: s.seq}
	}
	for k, d := range tx.docWrites {
		s.seq++
		s.documents[k] = documentRecord{d: copyDocument(d), version: s.seq}
	}
	for k := range tx.docDeletes {
		s.seq++
		s.documents[k] = documentRecord{version: s.seq}
	}
	return nil
}

// Seed stores products directly, bypassing transactions. Test helper and
// bootstrap path for the dev server.
func (s *Store) Seed(products ...core.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range products {
		s.seq++
		s.products[products[i].ID] = productRecord{p: copyProduct(&products[i]), version: s.seq}
	}
}

func copyProduct(p *core.Product) *core.Product {
	cp := *p
	return &cp
}

func copyDocument(d *core.Document) *core.Document {
	cp := *d
	cp.Items = append([]core.LineItem(nil), d.Items...)
	return &cp
}
