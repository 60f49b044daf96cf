package core

import "context"

// DocumentStore is the durable keyed storage the engine consumes. Documents
// are keyed by (kind, id) and carry their items inline; products carry a
// single scalar stock.
//
// Reads outside RunInTx are point-in-time snapshots and must never be used to
// decide a stock check.
type DocumentStore interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetDocument(ctx context.Context, kind DocumentKind, id string) (*Document, error)
	ListDocuments(ctx context.Context, kind DocumentKind) ([]Document, error)

	// RunInTx runs fn inside one atomic read-modify-write transaction. If fn
	// returns an error nothing is written and that error is returned. If data
	// read by fn changed before commit, RunInTx returns an error wrapping
	// ErrStoreConflict and nothing is written.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error
}

// StoreTx is the transaction-scoped view handed to RunInTx callbacks.
// Reads observe the transaction's own writes. Missing records return an
// error wrapping ErrNotFound.
type StoreTx interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	PutProduct(ctx context.Context, p *Product) error
	GetDocument(ctx context.Context, kind DocumentKind, id string) (*Document, error)
	PutDocument(ctx context.Context, d *Document) error
	DeleteDocument(ctx context.Context, kind DocumentKind, id string) error
}
