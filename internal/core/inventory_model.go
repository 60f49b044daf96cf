package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable good or service in the catalog.
// Unlimited products are services: they carry no inventory and every stock
// delta against them is a no-op.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category,omitempty"`
	Unit          string          `json:"unit"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Stock         decimal.Decimal `json:"stock"`
	Unlimited     bool            `json:"unlimited"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Stock is a point-in-time read of a product's quantity.
type Stock struct {
	Quantity  decimal.Decimal
	Unlimited bool
}

// String renders the stock for log lines and error messages.
func (s Stock) String() string {
	if s.Unlimited {
		return "unlimited"
	}
	return s.Quantity.String()
}

// StockOf returns the product's current stock value.
func (p Product) StockOf() Stock {
	return Stock{Quantity: p.Stock, Unlimited: p.Unlimited}
}

// StockLevel is a read view of a product's stock with the low-stock flag.
type StockLevel struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Stock     decimal.Decimal `json:"stock"`
	Unlimited bool            `json:"unlimited"`
	LowStock  bool            `json:"low_stock"`
}

// ProductInput is used when creating or editing a catalog product.
type ProductInput struct {
	Name          string
	Category      string
	Unit          string
	SalePrice     decimal.Decimal
	PurchasePrice decimal.Decimal
	Stock         decimal.Decimal
	Unlimited     bool
}
