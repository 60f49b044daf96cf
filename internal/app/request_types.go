package app

import (
	"github.com/shopspring/decimal"
)

// ProductRequest is the input for creating or editing a catalog product.
type ProductRequest struct {
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Stock         decimal.Decimal `json:"stock"`
	Unlimited     bool            `json:"unlimited"`
}

// DocumentRequest is the input for creating or editing an invoice or quote.
// Dates are YYYY-MM-DD (RFC 3339 is also accepted); empty means "use the
// default".
type DocumentRequest struct {
	CustomerID  string            `json:"customer_id"`
	Items       []LineItemRequest `json:"items"`
	TaxRate     *decimal.Decimal  `json:"tax_rate,omitempty"`
	Status      string            `json:"status,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Date        string            `json:"date,omitempty"`
	DueDate     string            `json:"due_date,omitempty"`
	PaymentDate string            `json:"payment_date,omitempty"`
	ExpiryDate  string            `json:"expiry_date,omitempty"`
}

// LineItemRequest is a single line within a DocumentRequest. A nil
// UnitPrice means "use the product's sale price"; a nil ApplyVAT means true.
type LineItemRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	ApplyVAT  *bool            `json:"apply_vat,omitempty"`
}

// PreviewRequest is the input for PreviewTotals.
type PreviewRequest struct {
	Items   []LineItemRequest `json:"items"`
	TaxRate *decimal.Decimal  `json:"tax_rate,omitempty"`
}
