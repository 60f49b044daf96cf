package app

import (
	"context"

	"billing-engine/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ListProducts returns every catalog product sorted by name.
	ListProducts(ctx context.Context) (*ProductListResult, error)

	// GetProduct returns a single product by id.
	GetProduct(ctx context.Context, id string) (*ProductResult, error)

	// CreateProduct adds a product to the catalog.
	CreateProduct(ctx context.Context, req ProductRequest) (*ProductResult, error)

	// UpdateProduct overwrites a product's catalog fields, including stock.
	// This path is not reconciled against existing invoices.
	UpdateProduct(ctx context.Context, id string, req ProductRequest) (*ProductResult, error)

	// GetStockLevels returns stock for every product, flagging low stock
	// against the configured threshold.
	GetStockLevels(ctx context.Context) (*StockResult, error)

	// GetLowStock returns only the products below the low-stock threshold.
	GetLowStock(ctx context.Context) (*StockResult, error)

	// CreateDocument creates an invoice or quote. Invoices reserve stock.
	CreateDocument(ctx context.Context, kind core.DocumentKind, req DocumentRequest) (*DocumentResult, error)

	// UpdateDocument replaces an invoice or quote. Invoices reconcile the
	// net stock difference between the old and new items.
	UpdateDocument(ctx context.Context, kind core.DocumentKind, id string, req DocumentRequest) (*DocumentResult, error)

	// DeleteDocument removes an invoice or quote. Invoices return their stock.
	DeleteDocument(ctx context.Context, kind core.DocumentKind, id string) error

	// GetDocument returns a single invoice or quote.
	GetDocument(ctx context.Context, kind core.DocumentKind, id string) (*DocumentResult, error)

	// ListDocuments returns invoices or quotes, newest first. An empty status
	// means no filter.
	ListDocuments(ctx context.Context, kind core.DocumentKind, status string) (*DocumentListResult, error)

	// PreviewTotals computes totals for unsaved items without writing anything.
	PreviewTotals(ctx context.Context, req PreviewRequest) (*TotalsResult, error)
}
