package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"billing-engine/internal/core"
	"billing-engine/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, *postgres.Store) {
	_ = godotenv.Load("../../../.env")

	// Use a dedicated TEST database; the tables are truncated on every run.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	store := postgres.New(pool)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE billing_documents, products;

		INSERT INTO products (id, name, unit, sale_price, stock, unlimited) VALUES
		('A', 'Widget A',     'unit', 100, 10, false),
		('C', 'Cable',        'm',     20,  2, false),
		('S', 'Installation', 'hour', 300,  0, true);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool, store
}

func newBilling(store core.DocumentStore) core.BillingService {
	return core.NewBillingService(store, core.BillingOptions{
		Defaults:    core.Defaults{TaxRate: decimal.RequireFromString("0.19")},
		MaxAttempts: 20,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func stockOf(t *testing.T, store *postgres.Store, id string) decimal.Decimal {
	t.Helper()
	p, err := store.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProduct(%s) failed: %v", id, err)
	}
	return p.Stock
}

func TestPostgresStore_InvoiceRoundTrip(t *testing.T) {
	pool, store := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := newBilling(store)

	inv, err := svc.CreateInvoice(ctx, core.DocumentDraft{
		CustomerID: "CUST-1",
		Items: []core.LineItemInput{
			{ProductID: "A", Quantity: decimal.NewFromInt(3)},
			{ProductID: "S", Quantity: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if got := stockOf(t, store, "A"); !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Expected stock 7 after create, got %s", got)
	}

	loaded, err := store.GetDocument(ctx, core.KindInvoice, inv.ID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if len(loaded.Items) != 2 || loaded.Items[0].ProductName != "Widget A" {
		t.Errorf("Unexpected items after reload: %+v", loaded.Items)
	}
	if !loaded.TotalAmount.Equal(inv.TotalAmount) {
		t.Errorf("Expected total %s after reload, got %s", inv.TotalAmount, loaded.TotalAmount)
	}

	if err := svc.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}
	if got := stockOf(t, store, "A"); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected stock 10 after delete, got %s", got)
	}
}

func TestPostgresStore_InsufficientStockRollsBack(t *testing.T) {
	pool, store := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := newBilling(store)

	_, err := svc.CreateInvoice(ctx, core.DocumentDraft{
		CustomerID: "CUST-1",
		Items: []core.LineItemInput{
			{ProductID: "A", Quantity: decimal.NewFromInt(1)},
			{ProductID: "C", Quantity: decimal.NewFromInt(5)},
		},
	})
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if got := stockOf(t, store, "A"); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected stock 10 after rollback, got %s", got)
	}

	docs, err := store.ListDocuments(ctx, core.KindInvoice)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected no invoices, got %d", len(docs))
	}
}

func TestPostgresStore_ConcurrentCreates(t *testing.T) {
	pool, store := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := newBilling(store)

	const workers = 10
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateInvoice(ctx, core.DocumentDraft{
				CustomerID: "CUST-1",
				Items:      []core.LineItemInput{{ProductID: "A", Quantity: decimal.NewFromInt(1)}},
			})
			if err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent create error: %v", err)
	}
	if got := stockOf(t, store, "A"); !got.IsZero() {
		t.Errorf("Expected stock 0 after %d concurrent creates, got %s", workers, got)
	}
}
