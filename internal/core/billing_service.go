package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingService creates, edits and deletes invoices and quotes. Invoice
// operations reconcile product stock in the same transaction as the
// document write: either the document and every stock change land, or
// nothing does.
type BillingService interface {
	CreateInvoice(ctx context.Context, draft DocumentDraft) (*Document, error)
	// UpdateInvoice replaces the invoice's items and header fields. The stock
	// change is the net difference between the committed and the new items,
	// applied as one delta per product.
	UpdateInvoice(ctx context.Context, id string, draft DocumentDraft) (*Document, error)
	// DeleteInvoice removes the invoice and returns all of its reserved stock.
	DeleteInvoice(ctx context.Context, id string) error

	CreateQuote(ctx context.Context, draft DocumentDraft) (*Document, error)
	UpdateQuote(ctx context.Context, id string, draft DocumentDraft) (*Document, error)
	DeleteQuote(ctx context.Context, id string) error

	GetDocument(ctx context.Context, kind DocumentKind, id string) (*Document, error)
	// ListDocuments returns documents of kind, optionally filtered by status.
	ListDocuments(ctx context.Context, kind DocumentKind, status *DocumentStatus) ([]Document, error)

	// PreviewTotals runs the calculator without touching the store.
	PreviewTotals(items []LineItem, taxRate decimal.Decimal) Totals
}

// BillingOptions configures a BillingService. Zero values pick defaults.
type BillingOptions struct {
	Defaults    Defaults
	MaxAttempts int
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
}

type billingService struct {
	store       DocumentStore
	defaults    Defaults
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewBillingService constructs a BillingService over store.
func NewBillingService(store DocumentStore, opts BillingOptions) BillingService {
	s := &billingService{
		store:       store,
		defaults:    opts.Defaults,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *billingService) CreateInvoice(ctx context.Context, draft DocumentDraft) (*Document, error) {
	return s.save(ctx, KindInvoice, "", draft)
}

func (s *billingService) UpdateInvoice(ctx context.Context, id string, draft DocumentDraft) (*Document, error) {
	if id == "" {
		return nil, invalid("id", "invoice id is required")
	}
	return s.save(ctx, KindInvoice, id, draft)
}

func (s *billingService) DeleteInvoice(ctx context.Context, id string) error {
	return s.delete(ctx, KindInvoice, id)
}

func (s *billingService) CreateQuote(ctx context.Context, draft DocumentDraft) (*Document, error) {
	return s.save(ctx, KindQuote, "", draft)
}

func (s *billingService) UpdateQuote(ctx context.Context, id string, draft DocumentDraft) (*Document, error) {
	if id == "" {
		return nil, invalid("id", "quote id is required")
	}
	return s.save(ctx, KindQuote, id, draft)
}

func (s *billingService) DeleteQuote(ctx context.Context, id string) error {
	return s.delete(ctx, KindQuote, id)
}

func (s *billingService) GetDocument(ctx context.Context, kind DocumentKind, id string) (*Document, error) {
	if !kind.IsValid() {
		return nil, invalid("kind", "unknown document kind %q", kind)
	}
	doc, err := s.store.GetDocument(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return doc, nil
}

func (s *billingService) ListDocuments(ctx context.Context, kind DocumentKind, status *DocumentStatus) ([]Document, error) {
	if !kind.IsValid() {
		return nil, invalid("kind", "unknown document kind %q", kind)
	}
	if status != nil && !kind.IsValidStatus(*status) {
		return nil, invalid("status", "%q is not a valid %s status", *status, kind)
	}
	docs, err := s.store.ListDocuments(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	if status == nil {
		return docs, nil
	}
	filtered := docs[:0]
	for _, d := range docs {
		if d.Status == *status {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

func (s *billingService) PreviewTotals(items []LineItem, taxRate decimal.Decimal) Totals {
	return CalculateTotals(items, taxRate)
}

// save commits a new (id == "") or edited document. Each attempt re-reads
// the previous document and every product inside a fresh transaction.
func (s *billingService) save(ctx context.Context, kind DocumentKind, id string, draft DocumentDraft) (*Document, error) {
	draft.Items = append([]LineItemInput(nil), draft.Items...)
	draft.CustomerID = strings.TrimSpace(draft.CustomerID)
	draft.Status = DocumentStatus(strings.TrimSpace(string(draft.Status)))
	for i := range draft.Items {
		draft.Items[i].ProductID = strings.TrimSpace(draft.Items[i].ProductID)
	}
	if err := draft.Validate(kind); err != nil {
		return nil, err
	}

	creating := id == ""
	if creating {
		id = s.newID()
	}

	var committed *Document
	err := runWithRetry(ctx, s.logger, s.maxAttempts, "save "+string(kind), func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx StoreTx) error {
			// Each attempt starts from the caller's draft; defaults depend on
			// what is committed now.
			d := draft
			d.Items = append([]LineItemInput(nil), draft.Items...)

			var previous []LineItem
			createdAt := s.now().UTC()
			if !creating {
				prev, err := tx.GetDocument(ctx, kind, id)
				if err != nil {
					return fmt.Errorf("failed to load %s %s: %w", kind, id, err)
				}
				previous = prev.Items
				createdAt = prev.CreatedAt
				d.Inherit(prev)
			}
			d.Normalize(kind, s.defaults, s.now())
			if err := d.Validate(kind); err != nil {
				return err
			}

			items, err := resolveItems(ctx, tx, kind, d.Items, previous)
			if err != nil {
				return err
			}

			doc := &Document{
				ID:          id,
				Kind:        kind,
				CustomerID:  d.CustomerID,
				Items:       items,
				TaxRate:     *d.TaxRate,
				Status:      d.Status,
				Notes:       d.Notes,
				Date:        *d.Date,
				DueDate:     d.DueDate,
				PaymentDate: d.PaymentDate,
				ExpiryDate:  d.ExpiryDate,
				CreatedAt:   createdAt,
				UpdatedAt:   s.now().UTC(),
			}
			doc.Recalculate()

			if kind == KindInvoice {
				deltas := ComputeStockDeltas(previous, doc.Items)
				if err := ApplyStockDeltas(ctx, NewStockLedger(tx), deltas); err != nil {
					return err
				}
			}

			if err := tx.PutDocument(ctx, doc); err != nil {
				return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
			}
			committed = doc
			return nil
		})
	})
	if err != nil {
		s.logger.Info("document save aborted", "kind", kind, "document_id", id, "error", err)
		return nil, err
	}

	s.logger.Debug("document committed", "kind", kind, "document_id", id, "created", creating,
		"total_amount", committed.TotalAmount.String())
	return committed, nil
}

// delete removes a document. For invoices every committed quantity is
// credited back; credits cannot fail the negative-stock check.
func (s *billingService) delete(ctx context.Context, kind DocumentKind, id string) error {
	if id == "" {
		return invalid("id", "%s id is required", kind)
	}

	err := runWithRetry(ctx, s.logger, s.maxAttempts, "delete "+string(kind), func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx StoreTx) error {
			prev, err := tx.GetDocument(ctx, kind, id)
			if err != nil {
				return fmt.Errorf("failed to load %s %s: %w", kind, id, err)
			}

			if kind == KindInvoice {
				deltas := ComputeStockDeltas(prev.Items, nil)
				if err := ApplyStockDeltas(ctx, NewStockLedger(tx), deltas); err != nil {
					return err
				}
			}

			if err := tx.DeleteDocument(ctx, kind, id); err != nil {
				return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.logger.Debug("document deleted", "kind", kind, "document_id", id)
	return nil
}

// resolveItems turns inputs into line items, snapshotting the product name.
// A line without a price keeps the price already committed for that product
// on the document; products new to the document take the current sale price.
// Invoice quantities of stocked products must be whole numbers.
func resolveItems(ctx context.Context, tx StoreTx, kind DocumentKind, inputs []LineItemInput, previous []LineItem) ([]LineItem, error) {
	committedPrice := make(map[string]decimal.Decimal, len(previous))
	for _, it := range previous {
		if _, ok := committedPrice[it.ProductID]; !ok {
			committedPrice[it.ProductID] = it.UnitPrice
		}
	}

	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		p, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("line %d: product %s: %w", i+1, in.ProductID, err)
		}
		if kind == KindInvoice && !p.Unlimited && !isWhole(in.Quantity) {
			return nil, invalid("items", "line %d: quantity of %s must be a whole number, got %s", i+1, p.ID, in.Quantity)
		}

		price := p.SalePrice
		if committed, ok := committedPrice[p.ID]; ok {
			price = committed
		}
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		applyVAT := true
		if in.ApplyVAT != nil {
			applyVAT = *in.ApplyVAT
		}

		items = append(items, LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			UnitPrice:   price,
			ApplyVAT:    applyVAT,
		})
	}
	return items, nil
}
