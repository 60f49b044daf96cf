package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StockLedger reads and adjusts product stock. Implementations returned by
// NewStockLedger are bound to a single store transaction, so every read is a
// fresh in-transaction read and every write lands or vanishes with it.
type StockLedger interface {
	CurrentStock(ctx context.Context, productID string) (Stock, error)
	// ApplyDelta adds delta to the product's stock. Unlimited products are
	// left untouched. A result below zero fails with *InsufficientStockError
	// and writes nothing.
	ApplyDelta(ctx context.Context, productID string, delta decimal.Decimal) (Stock, error)
}

type txStockLedger struct {
	tx  StoreTx
	now func() time.Time
}

// NewStockLedger binds a StockLedger to tx.
func NewStockLedger(tx StoreTx) StockLedger {
	return &txStockLedger{tx: tx, now: time.Now}
}

func (l *txStockLedger) CurrentStock(ctx context.Context, productID string) (Stock, error) {
	p, err := l.tx.GetProduct(ctx, productID)
	if err != nil {
		return Stock{}, err
	}
	return p.StockOf(), nil
}

func (l *txStockLedger) ApplyDelta(ctx context.Context, productID string, delta decimal.Decimal) (Stock, error) {
	p, err := l.tx.GetProduct(ctx, productID)
	if err != nil {
		return Stock{}, err
	}
	if p.Unlimited || delta.IsZero() {
		return p.StockOf(), nil
	}

	next := p.Stock.Add(delta)
	if next.IsNegative() {
		return p.StockOf(), &InsufficientStockError{
			ProductID: productID,
			Requested: delta.Neg(),
			Available: p.Stock,
		}
	}

	p.Stock = next
	p.UpdatedAt = l.now().UTC()
	if err := l.tx.PutProduct(ctx, p); err != nil {
		return Stock{}, fmt.Errorf("failed to write stock for product %s: %w", productID, err)
	}
	return p.StockOf(), nil
}

// StockDeltas maps product id to the signed stock change implied by a
// document transition. Negative values consume stock, positive values
// return it.
type StockDeltas map[string]decimal.Decimal

// ComputeStockDeltas returns the net per-product delta for replacing the
// committed item set old with next:
//
//	delta[p] = Σ_old quantity(p) - Σ_next quantity(p)
//
// Creation is ComputeStockDeltas(nil, next); deletion is
// ComputeStockDeltas(old, nil). Products whose net change is zero are
// omitted, so an unchanged edit yields an empty map.
func ComputeStockDeltas(old, next []LineItem) StockDeltas {
	deltas := make(StockDeltas)
	for _, item := range old {
		deltas[item.ProductID] = deltas[item.ProductID].Add(item.Quantity)
	}
	for _, item := range next {
		deltas[item.ProductID] = deltas[item.ProductID].Sub(item.Quantity)
	}
	for id, d := range deltas {
		if d.IsZero() {
			delete(deltas, id)
		}
	}
	return deltas
}

// ProductIDs returns the keys in a stable order. Applying deltas in this
// order keeps row-locking stores from deadlocking against each other.
func (d StockDeltas) ProductIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyStockDeltas applies every delta through ledger and stops at the first
// failure. The caller's transaction discards any earlier writes.
//
// A credit (positive delta) against a product that no longer exists is
// skipped: there is no stock left to give back to.
func ApplyStockDeltas(ctx context.Context, ledger StockLedger, deltas StockDeltas) error {
	for _, id := range deltas.ProductIDs() {
		delta := deltas[id]
		if _, err := ledger.ApplyDelta(ctx, id, delta); err != nil {
			if errors.Is(err, ErrNotFound) && delta.IsPositive() {
				continue
			}
			return err
		}
	}
	return nil
}
