package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// defaultTermDays is the offset applied to a document date when the invoice
// due date or the quote expiry date is not supplied.
const defaultTermDays = 30

// Defaults are company-level values applied to drafts that omit them.
type Defaults struct {
	TaxRate decimal.Decimal
}

// Normalize trims identifiers and fills in defaults for omitted fields.
// now is injected so callers and tests agree on "today".
func (d *DocumentDraft) Normalize(kind DocumentKind, defaults Defaults, now time.Time) {
	d.CustomerID = strings.TrimSpace(d.CustomerID)
	d.Status = DocumentStatus(strings.TrimSpace(string(d.Status)))
	if d.Status == "" {
		d.Status = kind.DefaultStatus()
	}

	if d.TaxRate == nil {
		rate := defaults.TaxRate
		d.TaxRate = &rate
	}

	if d.Date == nil {
		today := now.UTC().Truncate(24 * time.Hour)
		d.Date = &today
	}

	switch kind {
	case KindInvoice:
		if d.DueDate == nil {
			due := d.Date.AddDate(0, 0, defaultTermDays)
			d.DueDate = &due
		}
		d.ExpiryDate = nil
	case KindQuote:
		if d.ExpiryDate == nil {
			exp := d.Date.AddDate(0, 0, defaultTermDays)
			d.ExpiryDate = &exp
		}
		d.DueDate = nil
		d.PaymentDate = nil
	}

	for i := range d.Items {
		d.Items[i].ProductID = strings.TrimSpace(d.Items[i].ProductID)
		if d.Items[i].ApplyVAT == nil {
			apply := true
			d.Items[i].ApplyVAT = &apply
		}
	}
}

// Inherit fills header fields the draft omits from the committed document,
// so an edit keeps the stored date, terms, tax rate and status instead of
// falling back to company defaults. A new date without a new due or expiry
// date re-derives the term from the new date in Normalize.
func (d *DocumentDraft) Inherit(prev *Document) {
	if prev == nil {
		return
	}
	if strings.TrimSpace(string(d.Status)) == "" {
		d.Status = prev.Status
	}
	if d.TaxRate == nil {
		rate := prev.TaxRate
		d.TaxRate = &rate
	}
	if d.PaymentDate == nil {
		d.PaymentDate = prev.PaymentDate
	}
	if d.Date != nil {
		return
	}
	date := prev.Date
	d.Date = &date
	if d.DueDate == nil {
		d.DueDate = prev.DueDate
	}
	if d.ExpiryDate == nil {
		d.ExpiryDate = prev.ExpiryDate
	}
}

// Validate rejects malformed drafts. Non-numeric input never reaches this
// point (quantities and prices are typed decimals), so the only choice left
// is between rejecting and clamping negatives; negatives are rejected.
func (d *DocumentDraft) Validate(kind DocumentKind) error {
	if !kind.IsValid() {
		return invalid("kind", "unknown document kind %q", kind)
	}
	if d.CustomerID == "" {
		return invalid("customer_id", "customer is required")
	}
	if len(d.Items) == 0 {
		return invalid("items", "at least one line item is required")
	}
	if d.TaxRate != nil && (d.TaxRate.IsNegative() || d.TaxRate.GreaterThan(decimal.NewFromInt(1))) {
		return invalid("tax_rate", "must be between 0 and 1, got %s", d.TaxRate)
	}
	if d.Status != "" && !kind.IsValidStatus(d.Status) {
		return invalid("status", "%q is not a valid %s status", d.Status, kind)
	}
	for i, item := range d.Items {
		if item.ProductID == "" {
			return invalid("items", "line %d: product is required", i+1)
		}
		if item.Quantity.IsNegative() {
			return invalid("items", "line %d: quantity cannot be negative, got %s", i+1, item.Quantity)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return invalid("items", "line %d: unit price cannot be negative, got %s", i+1, item.UnitPrice)
		}
	}
	if d.Date != nil && d.DueDate != nil && d.DueDate.Before(*d.Date) {
		return invalid("due_date", "cannot be before the document date")
	}
	return nil
}

// Validate enforces catalog rules on a product input.
func (p *ProductInput) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Unit = strings.TrimSpace(p.Unit)
	if p.Name == "" {
		return invalid("name", "product name is required")
	}
	if p.SalePrice.IsNegative() {
		return invalid("sale_price", "cannot be negative, got %s", p.SalePrice)
	}
	if p.PurchasePrice.IsNegative() {
		return invalid("purchase_price", "cannot be negative, got %s", p.PurchasePrice)
	}
	if !p.Unlimited && p.Stock.IsNegative() {
		return invalid("stock", "cannot be negative, got %s", p.Stock)
	}
	if !p.Unlimited && !isWhole(p.Stock) {
		return invalid("stock", "must be a whole number, got %s", p.Stock)
	}
	return nil
}

func isWhole(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(0))
}
