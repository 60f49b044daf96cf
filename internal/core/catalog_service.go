package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService manages product master data and stock views.
//
// UpdateProduct is the catalog-direct write path for stock: it overwrites the
// stored quantity and is not reconciled against open invoices.
type CatalogService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	// StockLevels returns every product with LowStock set when a finite
	// stock is below threshold.
	StockLevels(ctx context.Context, threshold decimal.Decimal) ([]StockLevel, error)
	LowStockProducts(ctx context.Context, threshold decimal.Decimal) ([]StockLevel, error)
}

type catalogService struct {
	store       DocumentStore
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewCatalogService constructs a CatalogService over store. Only the
// MaxAttempts, Logger, Now and NewID options are used.
func NewCatalogService(store DocumentStore, opts BillingOptions) CatalogService {
	s := &catalogService{
		store:       store,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
		now:         opts.Now,
		newID:       opts.NewID,
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

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{
		ID:            s.newID(),
		Name:          in.Name,
		Category:      in.Category,
		Unit:          in.Unit,
		SalePrice:     in.SalePrice,
		PurchasePrice: in.PurchasePrice,
		Stock:         in.Stock,
		Unlimited:     in.Unlimited,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Unlimited {
		p.Stock = decimal.Zero
	}

	err := runWithRetry(ctx, s.logger, s.maxAttempts, "create product", func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx StoreTx) error {
			return tx.PutProduct(ctx, p)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *Product
	err := runWithRetry(ctx, s.logger, s.maxAttempts, "update product", func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx StoreTx) error {
			p, err := tx.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			p.Name = in.Name
			p.Category = in.Category
			p.Unit = in.Unit
			p.SalePrice = in.SalePrice
			p.PurchasePrice = in.PurchasePrice
			p.Unlimited = in.Unlimited
			p.Stock = in.Stock
			if p.Unlimited {
				p.Stock = decimal.Zero
			}
			p.UpdatedAt = s.now().UTC()
			if err := tx.PutProduct(ctx, p); err != nil {
				return err
			}
			updated = p
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return updated, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (s *catalogService) StockLevels(ctx context.Context, threshold decimal.Decimal) ([]StockLevel, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	levels := make([]StockLevel, 0, len(products))
	for _, p := range products {
		levels = append(levels, StockLevel{
			ProductID: p.ID,
			Name:      p.Name,
			Unit:      p.Unit,
			Stock:     p.Stock,
			Unlimited: p.Unlimited,
			LowStock:  !p.Unlimited && p.Stock.LessThan(threshold),
		})
	}
	return levels, nil
}

func (s *catalogService) LowStockProducts(ctx context.Context, threshold decimal.Decimal) ([]StockLevel, error) {
	levels, err := s.StockLevels(ctx, threshold)
	if err != nil {
		return nil, err
	}
	low := make([]StockLevel, 0)
	for _, l := range levels {
		if l.LowStock {
			low = append(low, l)
		}
	}
	return low, nil
}
