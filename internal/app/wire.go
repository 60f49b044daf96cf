package app

import (
	"log/slog"

	"billing-engine/internal/config"
	"billing-engine/internal/core"
)

// NewFromConfig builds the billing and catalog services over store and
// returns the ApplicationService every adapter uses.
func NewFromConfig(store core.DocumentStore, cfg config.Config, logger *slog.Logger) ApplicationService {
	opts := core.BillingOptions{
		Defaults:    core.Defaults{TaxRate: cfg.DefaultTaxRate},
		MaxAttempts: cfg.TxMaxAttempts,
		Logger:      logger,
	}
	return NewAppService(
		core.NewBillingService(store, opts),
		core.NewCatalogService(store, opts),
		Settings{
			DefaultTaxRate:    cfg.DefaultTaxRate,
			LowStockThreshold: cfg.LowStockThreshold,
			Currency:          cfg.Currency,
		},
	)
}
