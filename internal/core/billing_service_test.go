package core_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"billing-engine/internal/core"
)

func TestBillingService_InvoiceLifecycle(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	// 1. Create: 3 × A reserves 3 units
	inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "3")))
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	assertStock(t, store, "A", "7")

	if inv.Status != core.InvoiceStatusPending {
		t.Errorf("Expected default status Pending, got %s", inv.Status)
	}
	if inv.Items[0].ProductName != "Widget A" {
		t.Errorf("Expected product name snapshot 'Widget A', got %q", inv.Items[0].ProductName)
	}
	if !inv.Items[0].UnitPrice.Equal(dec("100")) {
		t.Errorf("Expected unit price snapshot 100, got %s", inv.Items[0].UnitPrice)
	}
	// 300 + 19% = 357
	if !inv.TotalAmount.Equal(dec("357")) {
		t.Errorf("Expected total 357, got %s", inv.TotalAmount)
	}
	wantDue := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	if inv.DueDate == nil || !inv.DueDate.Equal(wantDue) {
		t.Errorf("Expected due date %s, got %v", wantDue, inv.DueDate)
	}

	// 2. Edit: 3 → 5 consumes 2 more
	inv, err = svc.UpdateInvoice(ctx, inv.ID, invoiceDraft(item("A", "5")))
	if err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	assertStock(t, store, "A", "5")

	// 3. Delete returns all 5
	if err := svc.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}
	assertStock(t, store, "A", "10")

	if _, err := svc.GetDocument(ctx, core.KindInvoice, inv.ID); !core.IsNotFound(err) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestBillingService_EditConservesStock(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "3"), item("B", "4")))
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	assertStock(t, store, "A", "7")
	assertStock(t, store, "B", "6")

	// Swap B for more A and drop nothing else: A 3 → 5, B 4 → 0
	if _, err := svc.UpdateInvoice(ctx, inv.ID, invoiceDraft(item("A", "5"))); err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	assertStock(t, store, "A", "5")
	assertStock(t, store, "B", "10")
}

func TestBillingService_UnchangedEditIsIdempotent(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "2"), item("A", "1")))
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	assertStock(t, store, "A", "7")

	for i := 0; i < 3; i++ {
		if _, err := svc.UpdateInvoice(ctx, inv.ID, invoiceDraft(item("A", "1"), item("A", "2"))); err != nil {
			t.Fatalf("UpdateInvoice #%d failed: %v", i+1, err)
		}
	}
	assertStock(t, store, "A", "7")
}

func TestBillingService_InsufficientStockRollsBack(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	_, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "1"), item("C", "5")))
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != "C" || !stockErr.Requested.Equal(dec("5")) || !stockErr.Available.Equal(dec("2")) {
		t.Errorf("Unexpected error detail: %+v", stockErr)
	}
	if !stockErr.Shortfall().Equal(dec("3")) {
		t.Errorf("Expected shortfall 3, got %s", stockErr.Shortfall())
	}

	// A was applied before C failed; nothing may persist.
	assertStock(t, store, "A", "10")
	assertStock(t, store, "C", "2")

	docs, err := svc.ListDocuments(ctx, core.KindInvoice, nil)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected no invoices after failed create, got %d", len(docs))
	}
}

func TestBillingService_FailedEditKeepsPreviousVersion(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("C", "1")))
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	assertStock(t, store, "C", "1")

	// 1 → 3 needs 2 more but only 1 is left.
	if _, err := svc.UpdateInvoice(ctx, inv.ID, invoiceDraft(item("C", "3"))); err == nil {
		t.Fatal("Expected UpdateInvoice to fail on insufficient stock")
	}
	assertStock(t, store, "C", "1")

	got, err := svc.GetDocument(ctx, core.KindInvoice, inv.ID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if !got.Items[0].Quantity.Equal(dec("1")) {
		t.Errorf("Expected committed quantity 1, got %s", got.Items[0].Quantity)
	}
}

func TestBillingService_UnlimitedProductNeverChanges(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("S", "1000")))
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if err := svc.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}

	p, err := store.GetProduct(ctx, "S")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if !p.Unlimited || !p.Stock.IsZero() {
		t.Errorf("Expected unlimited product untouched, got unlimited=%v stock=%s", p.Unlimited, p.Stock)
	}
}

func TestBillingService_QuotesDoNotTouchStock(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	q, err := svc.CreateQuote(ctx, invoiceDraft(item("C", "50")))
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	if q.Status != core.QuoteStatusDraft {
		t.Errorf("Expected default status Draft, got %s", q.Status)
	}
	if q.ExpiryDate == nil || q.DueDate != nil {
		t.Errorf("Expected expiry date set and no due date, got expiry=%v due=%v", q.ExpiryDate, q.DueDate)
	}

	if _, err := svc.UpdateQuote(ctx, q.ID, invoiceDraft(item("C", "80"))); err != nil {
		t.Fatalf("UpdateQuote failed: %v", err)
	}
	if err := svc.DeleteQuote(ctx, q.ID); err != nil {
		t.Fatalf("DeleteQuote failed: %v", err)
	}
	assertStock(t, store, "C", "2")
}

func TestBillingService_ExplicitPriceAndVAT(t *testing.T) {
	svc, _, ctx := setupBilling(t)

	price := dec("80")
	noVAT := false
	rate := dec("0.07")
	draft := core.DocumentDraft{
		CustomerID: "CUST-2",
		TaxRate:    &rate,
		Items: []core.LineItemInput{
			{ProductID: "A", Quantity: dec("2"), UnitPrice: &price},
			{ProductID: "B", Quantity: dec("1"), ApplyVAT: &noVAT},
		},
	}
	inv, err := svc.CreateInvoice(ctx, draft)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	// sub = 160 + 50 = 210; tax = 160 × 0.07 = 11.2
	if !inv.SubTotal.Equal(dec("210")) || !inv.TaxAmount.Equal(dec("11.2")) || !inv.TotalAmount.Equal(dec("221.2")) {
		t.Errorf("Unexpected totals: sub=%s tax=%s total=%s", inv.SubTotal, inv.TaxAmount, inv.TotalAmount)
	}
	if inv.Items[1].ApplyVAT {
		t.Error("Expected ApplyVAT=false on second line")
	}
}

func TestBillingService_ValidationErrors(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	negative := dec("-1")
	badRate := dec("1.5")
	tests := []struct {
		name  string
		draft core.DocumentDraft
	}{
		{"missing customer", core.DocumentDraft{Items: []core.LineItemInput{item("A", "1")}}},
		{"no items", core.DocumentDraft{CustomerID: "CUST-1"}},
		{"negative quantity", invoiceDraft(item("A", "-2"))},
		{"negative price", invoiceDraft(core.LineItemInput{ProductID: "A", Quantity: dec("1"), UnitPrice: &negative})},
		{"blank product", invoiceDraft(item("  ", "1"))},
		{"tax rate above one", core.DocumentDraft{CustomerID: "CUST-1", TaxRate: &badRate, Items: []core.LineItemInput{item("A", "1")}}},
		{"fractional quantity of stocked product", invoiceDraft(item("A", "0.5"))},
		{"quote status on invoice", core.DocumentDraft{CustomerID: "CUST-1", Status: core.QuoteStatusAccepted, Items: []core.LineItemInput{item("A", "1")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(ctx, tt.draft)
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
	assertStock(t, store, "A", "10")
}

func TestBillingService_UnknownProduct(t *testing.T) {
	svc, _, ctx := setupBilling(t)

	_, err := svc.CreateInvoice(ctx, invoiceDraft(item("NOPE", "1")))
	if !core.IsNotFound(err) {
		t.Errorf("Expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestBillingService_UpdateMissingInvoice(t *testing.T) {
	svc, _, ctx := setupBilling(t)

	if _, err := svc.UpdateInvoice(ctx, "missing", invoiceDraft(item("A", "1"))); !core.IsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteInvoice(ctx, "missing"); !core.IsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBillingService_ListByStatus(t *testing.T) {
	svc, _, ctx := setupBilling(t)

	paid := core.InvoiceStatusPaid
	if _, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "1"))); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	draft := invoiceDraft(item("B", "1"))
	draft.Status = paid
	if _, err := svc.CreateInvoice(ctx, draft); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	docs, err := svc.ListDocuments(ctx, core.KindInvoice, &paid)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Status != paid {
		t.Errorf("Expected one Paid invoice, got %+v", docs)
	}

	bogus := core.QuoteStatusDraft
	if _, err := svc.ListDocuments(ctx, core.KindInvoice, &bogus); err == nil {
		t.Error("Expected error filtering invoices by a quote status")
	}
}

func TestBillingService_ConcurrentCreatesOnSameProduct(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	// Two invoices of 6 against stock 10: exactly one may win.
	const workers = 2
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "6")))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var ok, short int
	for err := range errCh {
		var stockErr *core.InsufficientStockError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &stockErr):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Errorf("Expected 1 success and 1 insufficient stock, got %d and %d", ok, short)
	}
	assertStock(t, store, "A", "4")
}

func TestBillingService_ConcurrentEditsConserveStock(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	// Five invoices of 1 × A and 1 × B each, then concurrent edits that drop
	// B and double A. The final stock must equal the serial result.
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "1"), item("B", "1")))
		if err != nil {
			t.Fatalf("CreateInvoice failed: %v", err)
		}
		ids = append(ids, inv.ID)
	}
	assertStock(t, store, "A", "5")
	assertStock(t, store, "B", "5")

	var wg sync.WaitGroup
	errCh := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(invoiceID string) {
			defer wg.Done()
			if _, err := svc.UpdateInvoice(ctx, invoiceID, invoiceDraft(item("A", "2"))); err != nil {
				errCh <- err
			}
		}(id)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent edit error: %v", err)
	}
	assertStock(t, store, "A", "0")
	assertStock(t, store, "B", "10")
}

func TestBillingService_ConcurrentDisjointProducts(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for _, productID := range []string{"A", "B"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.CreateInvoice(ctx, invoiceDraft(item(id, "4"))); err != nil {
				errCh <- err
			}
		}(productID)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent create error: %v", err)
	}
	assertStock(t, store, "A", "6")
	assertStock(t, store, "B", "6")
}

func TestBillingService_PreviewTotals(t *testing.T) {
	svc, _, _ := setupBilling(t)

	got := svc.PreviewTotals([]core.LineItem{
		{Quantity: dec("2"), UnitPrice: dec("10.50"), ApplyVAT: true},
	}, dec("0.19"))
	if !got.TotalAmount.Equal(dec("24.99")) {
		t.Errorf("Expected total 24.99, got %s", got.TotalAmount)
	}
}

func TestBillingService_EditKeepsCommittedPrices(t *testing.T) {
	svc, store, ctx := setupBilling(t)
	catalog := core.NewCatalogService(store, core.BillingOptions{})

	inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "1")))
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if !inv.TotalAmount.Equal(dec("119")) {
		t.Fatalf("Expected total 119, got %s", inv.TotalAmount)
	}

	// Catalog price change after the invoice was saved
	if _, err := catalog.UpdateProduct(ctx, "A", core.ProductInput{Name: "Widget A", Unit: "unit", SalePrice: dec("999"), Stock: dec("9")}); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	draft := invoiceDraft(item("A", "1"), item("B", "1"))
	draft.CustomerID = "CUST-2"
	inv, err = svc.UpdateInvoice(ctx, inv.ID, draft)
	if err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	if !inv.Items[0].UnitPrice.Equal(dec("100")) {
		t.Errorf("Expected A to keep its committed price 100, got %s", inv.Items[0].UnitPrice)
	}
	if !inv.Items[1].UnitPrice.Equal(dec("50")) {
		t.Errorf("Expected new line B to take the catalog price 50, got %s", inv.Items[1].UnitPrice)
	}
	// 150 + 19% = 178.5
	if !inv.TotalAmount.Equal(dec("178.5")) {
		t.Errorf("Expected total 178.5, got %s", inv.TotalAmount)
	}

	explicit := dec("80")
	inv, err = svc.UpdateInvoice(ctx, inv.ID, invoiceDraft(core.LineItemInput{ProductID: "A", Quantity: dec("1"), UnitPrice: &explicit}))
	if err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	if !inv.Items[0].UnitPrice.Equal(dec("80")) {
		t.Errorf("Expected explicit price 80, got %s", inv.Items[0].UnitPrice)
	}
}

func TestBillingService_EditKeepsCommittedHeader(t *testing.T) {
	svc, _, ctx := setupBilling(t)

	date := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	rate := dec("0.07")
	draft := invoiceDraft(item("A", "1"))
	draft.Date = &date
	draft.TaxRate = &rate
	draft.Status = core.InvoiceStatusPaid
	inv, err := svc.CreateInvoice(ctx, draft)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	// Items only: every header field stays as committed
	inv, err = svc.UpdateInvoice(ctx, inv.ID, invoiceDraft(item("A", "2")))
	if err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	if !inv.Date.Equal(date) {
		t.Errorf("Expected date %s, got %s", date, inv.Date)
	}
	wantDue := time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC)
	if inv.DueDate == nil || !inv.DueDate.Equal(wantDue) {
		t.Errorf("Expected due date %s, got %v", wantDue, inv.DueDate)
	}
	if !inv.TaxRate.Equal(rate) {
		t.Errorf("Expected tax rate 0.07, got %s", inv.TaxRate)
	}
	if inv.Status != core.InvoiceStatusPaid {
		t.Errorf("Expected status Paid, got %s", inv.Status)
	}

	// A new date without a due date re-derives the term from the new date
	newDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	edit := invoiceDraft(item("A", "2"))
	edit.Date = &newDate
	inv, err = svc.UpdateInvoice(ctx, inv.ID, edit)
	if err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	wantDue = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	if inv.DueDate == nil || !inv.DueDate.Equal(wantDue) {
		t.Errorf("Expected due date %s, got %v", wantDue, inv.DueDate)
	}
	if inv.Status != core.InvoiceStatusPaid {
		t.Errorf("Expected status Paid, got %s", inv.Status)
	}
}

func TestBillingService_FractionalQuantities(t *testing.T) {
	svc, store, ctx := setupBilling(t)

	// Services and quotes carry no inventory, so fractions are allowed there
	if _, err := svc.CreateInvoice(ctx, invoiceDraft(item("S", "1.5"))); err != nil {
		t.Errorf("Expected fractional service hours to be accepted, got %v", err)
	}
	if _, err := svc.CreateQuote(ctx, invoiceDraft(item("A", "2.5"))); err != nil {
		t.Errorf("Expected fractional quote quantity to be accepted, got %v", err)
	}

	inv, err := svc.CreateInvoice(ctx, invoiceDraft(item("A", "2")))
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	_, err = svc.UpdateInvoice(ctx, inv.ID, invoiceDraft(item("A", "2.5")))
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for fractional stocked quantity, got %v", err)
	}
	assertStock(t, store, "A", "8")
}
