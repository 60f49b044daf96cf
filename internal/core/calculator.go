package core

import "github.com/shopspring/decimal"

// LineTotal returns quantity * unitPrice for one item.
func LineTotal(item LineItem) decimal.Decimal {
	return item.Quantity.Mul(item.UnitPrice)
}

// CalculateTotals is the Money/Tax Calculator. It is pure and total:
//
//	subTotal    = Σ quantity_i * unitPrice_i
//	taxAmount   = Σ (quantity_i * unitPrice_i * taxRate) where applyVAT_i
//	totalAmount = subTotal + taxAmount
//
// Stored TotalPrice values on the items are ignored; every line is re-derived.
func CalculateTotals(items []LineItem, taxRate decimal.Decimal) Totals {
	subTotal := decimal.Zero
	taxAmount := decimal.Zero
	for _, item := range items {
		line := LineTotal(item)
		subTotal = subTotal.Add(line)
		if item.ApplyVAT {
			taxAmount = taxAmount.Add(line.Mul(taxRate))
		}
	}
	return Totals{
		SubTotal:    subTotal,
		TaxAmount:   taxAmount,
		TotalAmount: subTotal.Add(taxAmount),
	}
}

// Recalculate re-derives every item's TotalPrice and the document totals.
func (d *Document) Recalculate() {
	for i := range d.Items {
		d.Items[i].TotalPrice = LineTotal(d.Items[i])
	}
	t := CalculateTotals(d.Items, d.TaxRate)
	d.SubTotal = t.SubTotal
	d.TaxAmount = t.TaxAmount
	d.TotalAmount = t.TotalAmount
}

// Totals returns the document's stored totals.
func (d *Document) Totals() Totals {
	return Totals{SubTotal: d.SubTotal, TaxAmount: d.TaxAmount, TotalAmount: d.TotalAmount}
}
