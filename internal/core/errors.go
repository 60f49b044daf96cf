package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a document or product id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrStoreConflict is returned by a DocumentStore when data read inside a
	// transaction changed before commit. The whole operation may be retried.
	ErrStoreConflict = errors.New("store conflict: concurrent modification")
)

// ValidationError reports a malformed draft or product. It is surfaced before
// any store access and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError aborts a reconciliation: applying Requested units
// against Available would drive the product negative.
type InsufficientStockError struct {
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %s, required %s",
		e.ProductID, e.Available.String(), e.Requested.String())
}

// Shortfall is how many units are missing.
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the operation that produced err may be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreConflict)
}
