package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"billing-engine/internal/core"

	"github.com/shopspring/decimal"
)

// Settings carries the company-level values the application layer applies.
type Settings struct {
	DefaultTaxRate    decimal.Decimal
	LowStockThreshold decimal.Decimal
	Currency          string
}

type appService struct {
	billing  core.BillingService
	catalog  core.CatalogService
	settings Settings
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(billing core.BillingService, catalog core.CatalogService, settings Settings) ApplicationService {
	return &appService{
		billing:  billing,
		catalog:  catalog,
		settings: settings,
	}
}

// ListProducts returns every catalog product.
func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) GetProduct(ctx context.Context, id string) (*ProductResult, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) CreateProduct(ctx context.Context, req ProductRequest) (*ProductResult, error) {
	p, err := s.catalog.CreateProduct(ctx, req.toInput())
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) UpdateProduct(ctx context.Context, id string, req ProductRequest) (*ProductResult, error) {
	p, err := s.catalog.UpdateProduct(ctx, id, req.toInput())
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

// GetStockLevels returns stock for every product with the low-stock flag set.
func (s *appService) GetStockLevels(ctx context.Context) (*StockResult, error) {
	levels, err := s.catalog.StockLevels(ctx, s.settings.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels, Threshold: s.settings.LowStockThreshold}, nil
}

func (s *appService) GetLowStock(ctx context.Context) (*StockResult, error) {
	levels, err := s.catalog.LowStockProducts(ctx, s.settings.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels, Threshold: s.settings.LowStockThreshold}, nil
}

// CreateDocument creates an invoice or a quote.
func (s *appService) CreateDocument(ctx context.Context, kind core.DocumentKind, req DocumentRequest) (*DocumentResult, error) {
	draft, err := req.toDraft()
	if err != nil {
		return nil, err
	}

	var doc *core.Document
	switch kind {
	case core.KindInvoice:
		doc, err = s.billing.CreateInvoice(ctx, draft)
	case core.KindQuote:
		doc, err = s.billing.CreateQuote(ctx, draft)
	default:
		return nil, unknownKind(kind)
	}
	if err != nil {
		return nil, err
	}
	return &DocumentResult{Document: doc, Currency: s.settings.Currency}, nil
}

// UpdateDocument replaces an existing invoice or quote.
func (s *appService) UpdateDocument(ctx context.Context, kind core.DocumentKind, id string, req DocumentRequest) (*DocumentResult, error) {
	draft, err := req.toDraft()
	if err != nil {
		return nil, err
	}

	var doc *core.Document
	switch kind {
	case core.KindInvoice:
		doc, err = s.billing.UpdateInvoice(ctx, id, draft)
	case core.KindQuote:
		doc, err = s.billing.UpdateQuote(ctx, id, draft)
	default:
		return nil, unknownKind(kind)
	}
	if err != nil {
		return nil, err
	}
	return &DocumentResult{Document: doc, Currency: s.settings.Currency}, nil
}

func (s *appService) DeleteDocument(ctx context.Context, kind core.DocumentKind, id string) error {
	switch kind {
	case core.KindInvoice:
		return s.billing.DeleteInvoice(ctx, id)
	case core.KindQuote:
		return s.billing.DeleteQuote(ctx, id)
	}
	return unknownKind(kind)
}

func (s *appService) GetDocument(ctx context.Context, kind core.DocumentKind, id string) (*DocumentResult, error) {
	doc, err := s.billing.GetDocument(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return &DocumentResult{Document: doc, Currency: s.settings.Currency}, nil
}

// ListDocuments returns invoices or quotes, optionally filtered by status.
func (s *appService) ListDocuments(ctx context.Context, kind core.DocumentKind, status string) (*DocumentListResult, error) {
	var filter *core.DocumentStatus
	if status = strings.TrimSpace(status); status != "" {
		st := core.DocumentStatus(status)
		filter = &st
	}
	docs, err := s.billing.ListDocuments(ctx, kind, filter)
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Kind: kind, Documents: docs, Currency: s.settings.Currency}, nil
}

// PreviewTotals resolves missing unit prices from the catalog and runs the
// calculator. Nothing is written.
func (s *appService) PreviewTotals(ctx context.Context, req PreviewRequest) (*TotalsResult, error) {
	rate := s.settings.DefaultTaxRate
	if req.TaxRate != nil {
		rate = *req.TaxRate
	}

	items := make([]core.LineItem, 0, len(req.Items))
	for i, in := range req.Items {
		item := core.LineItem{
			ProductID: strings.TrimSpace(in.ProductID),
			Quantity:  in.Quantity,
			ApplyVAT:  in.ApplyVAT == nil || *in.ApplyVAT,
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		} else if item.ProductID != "" {
			p, err := s.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			item.ProductName = p.Name
			item.UnitPrice = p.SalePrice
		}
		items = append(items, item)
	}

	return &TotalsResult{
		Totals:   s.billing.PreviewTotals(items, rate),
		TaxRate:  rate,
		Currency: s.settings.Currency,
	}, nil
}

func (r ProductRequest) toInput() core.ProductInput {
	return core.ProductInput{
		Name:          r.Name,
		Category:      r.Category,
		Unit:          r.Unit,
		SalePrice:     r.SalePrice,
		PurchasePrice: r.PurchasePrice,
		Stock:         r.Stock,
		Unlimited:     r.Unlimited,
	}
}

func (r DocumentRequest) toDraft() (core.DocumentDraft, error) {
	draft := core.DocumentDraft{
		CustomerID: r.CustomerID,
		TaxRate:    r.TaxRate,
		Status:     core.DocumentStatus(r.Status),
		Notes:      r.Notes,
		Items:      make([]core.LineItemInput, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		draft.Items = append(draft.Items, core.LineItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			ApplyVAT:  it.ApplyVAT,
		})
	}

	dates := []struct {
		field string
		raw   string
		dst   **time.Time
	}{
		{"date", r.Date, &draft.Date},
		{"due_date", r.DueDate, &draft.DueDate},
		{"payment_date", r.PaymentDate, &draft.PaymentDate},
		{"expiry_date", r.ExpiryDate, &draft.ExpiryDate},
	}
	for _, d := range dates {
		t, err := parseDate(d.field, d.raw)
		if err != nil {
			return core.DocumentDraft{}, err
		}
		*d.dst = t
	}
	return draft, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty input yields nil.
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &core.ValidationError{Field: field, Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw)}
	}
	t = t.UTC()
	return &t, nil
}

func unknownKind(kind core.DocumentKind) error {
	return &core.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown document kind %q", kind)}
}
