package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes invoices from quotes. Both share the same
// line-item/tax/total structure; only invoices reserve stock.
type DocumentKind string

const (
	KindInvoice DocumentKind = "invoice"
	KindQuote   DocumentKind = "quote"
)

// DocumentStatus is purely descriptive; no transition rules are enforced
// beyond the value belonging to the kind's vocabulary.
type DocumentStatus string

const (
	InvoiceStatusPaid      DocumentStatus = "Paid"
	InvoiceStatusPending   DocumentStatus = "Pending"
	InvoiceStatusOverdue   DocumentStatus = "Overdue"
	InvoiceStatusCancelled DocumentStatus = "Cancelled"

	QuoteStatusDraft     DocumentStatus = "Draft"
	QuoteStatusSent      DocumentStatus = "Sent"
	QuoteStatusAccepted  DocumentStatus = "Accepted"
	QuoteStatusRejected  DocumentStatus = "Rejected"
	QuoteStatusInvoiced  DocumentStatus = "Invoiced"
	QuoteStatusCancelled DocumentStatus = "Cancelled"
)

var (
	invoiceStatuses = []DocumentStatus{InvoiceStatusPaid, InvoiceStatusPending, InvoiceStatusOverdue, InvoiceStatusCancelled}
	quoteStatuses   = []DocumentStatus{QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusInvoiced, QuoteStatusCancelled}
)

// Statuses returns the closed status vocabulary for the kind.
func (k DocumentKind) Statuses() []DocumentStatus {
	switch k {
	case KindInvoice:
		return invoiceStatuses
	case KindQuote:
		return quoteStatuses
	}
	return nil
}

// DefaultStatus is the status assigned to a draft that does not name one.
func (k DocumentKind) DefaultStatus() DocumentStatus {
	if k == KindQuote {
		return QuoteStatusDraft
	}
	return InvoiceStatusPending
}

// IsValidStatus reports whether s belongs to the kind's vocabulary.
func (k DocumentKind) IsValidStatus(s DocumentStatus) bool {
	for _, v := range k.Statuses() {
		if v == s {
			return true
		}
	}
	return false
}

// IsValid reports whether k is a known document kind.
func (k DocumentKind) IsValid() bool {
	return k == KindInvoice || k == KindQuote
}

// LineItem is one product line within a Document. It is embedded in the
// document and never addressed on its own.
//
// UnitPrice is a snapshot taken when the product was selected; later price
// changes on the Product do not affect saved documents.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ApplyVAT    bool            `json:"apply_vat"`
	TotalPrice  decimal.Decimal `json:"total_price"` // = Quantity * UnitPrice
}

// Document is an Invoice or a Quote.
//
// SubTotal, TaxAmount and TotalAmount are always recomputed from Items and
// TaxRate before a commit; client-supplied values are never trusted.
type Document struct {
	ID          string          `json:"id"`
	Kind        DocumentKind    `json:"kind"`
	CustomerID  string          `json:"customer_id"`
	Items       []LineItem      `json:"items"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Status      DocumentStatus  `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	Date        time.Time       `json:"date"`
	DueDate     *time.Time      `json:"due_date,omitempty"`     // invoice only
	PaymentDate *time.Time      `json:"payment_date,omitempty"` // invoice only
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`  // quote only
	SubTotal    decimal.Decimal `json:"sub_total"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Totals is the output of the Money/Tax Calculator.
type Totals struct {
	SubTotal    decimal.Decimal `json:"sub_total"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// LineItemInput is a caller-supplied item. Nil pointers mean "not provided"
// and are filled from the product or from defaults during normalisation.
type LineItemInput struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal // nil: snapshot the product's sale price
	ApplyVAT  *bool            // nil: true
}

// DocumentDraft is the input to every create/update operation.
type DocumentDraft struct {
	CustomerID  string
	Items       []LineItemInput
	TaxRate     *decimal.Decimal // nil: company default
	Status      DocumentStatus   // empty: kind default
	Notes       string
	Date        *time.Time
	DueDate     *time.Time
	PaymentDate *time.Time
	ExpiryDate  *time.Time
}
