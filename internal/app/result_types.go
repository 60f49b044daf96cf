package app

import (
	"billing-engine/internal/core"

	"github.com/shopspring/decimal"
)

// ProductResult is returned by single-product operations.
type ProductResult struct {
	Product *core.Product `json:"product"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// StockResult is returned by GetStockLevels and GetLowStock.
type StockResult struct {
	Levels    []core.StockLevel `json:"levels"`
	Threshold decimal.Decimal   `json:"threshold"`
}

// DocumentResult is returned by invoice and quote operations.
type DocumentResult struct {
	Document *core.Document `json:"document"`
	Currency string         `json:"currency"`
}

// DocumentListResult is returned by ListDocuments.
type DocumentListResult struct {
	Kind      core.DocumentKind `json:"kind"`
	Documents []core.Document   `json:"documents"`
	Currency  string            `json:"currency"`
}

// TotalsResult is returned by PreviewTotals.
type TotalsResult struct {
	Totals   core.Totals     `json:"totals"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Currency string          `json:"currency"`
}
