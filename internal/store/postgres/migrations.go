package postgres

import (
	"context"
	"fmt"
)

// schema is idempotent; Migrate may run on every start.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    category       TEXT NOT NULL DEFAULT '',
    unit           TEXT NOT NULL DEFAULT '',
    sale_price     NUMERIC NOT NULL DEFAULT 0,
    purchase_price NUMERIC NOT NULL DEFAULT 0,
    stock          NUMERIC NOT NULL DEFAULT 0,
    unlimited      BOOLEAN NOT NULL DEFAULT false,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT products_stock_non_negative CHECK (unlimited OR stock >= 0)
);

CREATE TABLE IF NOT EXISTS billing_documents (
    kind         TEXT NOT NULL,
    id           TEXT NOT NULL,
    customer_id  TEXT NOT NULL,
    items        JSONB NOT NULL DEFAULT '[]',
    tax_rate     NUMERIC NOT NULL DEFAULT 0,
    status       TEXT NOT NULL,
    notes        TEXT NOT NULL DEFAULT '',
    doc_date     TIMESTAMPTZ NOT NULL,
    due_date     TIMESTAMPTZ,
    payment_date TIMESTAMPTZ,
    expiry_date  TIMESTAMPTZ,
    sub_total    NUMERIC NOT NULL DEFAULT 0,
    tax_amount   NUMERIC NOT NULL DEFAULT 0,
    total_amount NUMERIC NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (kind, id),
    CONSTRAINT billing_documents_kind CHECK (kind IN ('invoice', 'quote'))
);

CREATE INDEX IF NOT EXISTS idx_billing_documents_status ON billing_documents (kind, status);
`

// Migrate creates the tables the store needs.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
