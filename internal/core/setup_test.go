package core_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"billing-engine/internal/core"
	"billing-engine/internal/store/memory"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

// setupBilling returns a memory-backed billing service seeded with:
//
//	A  stock 10, price 100
//	B  stock 10, price 50
//	C  stock 2,  price 20
//	S  unlimited service, price 300
func setupBilling(t *testing.T) (core.BillingService, *memory.Store, context.Context) {
	t.Helper()

	store := memory.New()
	store.Seed(
		core.Product{ID: "A", Name: "Widget A", Unit: "unit", SalePrice: dec("100"), Stock: dec("10")},
		core.Product{ID: "B", Name: "Widget B", Unit: "unit", SalePrice: dec("50"), Stock: dec("10")},
		core.Product{ID: "C", Name: "Cable", Unit: "m", SalePrice: dec("20"), Stock: dec("2")},
		core.Product{ID: "S", Name: "Installation", Unit: "hour", SalePrice: dec("300"), Unlimited: true},
	)

	var seq atomic.Int64
	svc := core.NewBillingService(store, core.BillingOptions{
		Defaults:    core.Defaults{TaxRate: dec("0.19")},
		MaxAttempts: 20,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         func() time.Time { return fixedNow },
		NewID:       func() string { return fmt.Sprintf("doc-%d", seq.Add(1)) },
	})
	return svc, store, context.Background()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(productID, qty string) core.LineItemInput {
	return core.LineItemInput{ProductID: productID, Quantity: dec(qty)}
}

func invoiceDraft(items ...core.LineItemInput) core.DocumentDraft {
	return core.DocumentDraft{CustomerID: "CUST-1", Items: items}
}

func assertStock(t *testing.T, store *memory.Store, productID, want string) {
	t.Helper()
	p, err := store.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("GetProduct(%s) failed: %v", productID, err)
	}
	if !p.Stock.Equal(dec(want)) {
		t.Errorf("Expected stock of %s to be %s, got %s", productID, want, p.Stock)
	}
}
