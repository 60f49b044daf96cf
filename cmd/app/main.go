package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"billing-engine/internal/adapters/cli"
	webAdapter "billing-engine/internal/adapters/web"
	"billing-engine/internal/app"
	"billing-engine/internal/config"
	"billing-engine/internal/obs"
	"billing-engine/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadFor(config.DriverSQLite)
	obs.InitLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		log.Fatal("Usage: app <command> [args]\nCommands: totals, products, create-product, stock, low-stock, invoices, quotes, " +
			"create-invoice, create-quote, delete-invoice, delete-quote, token")
	}

	// token mints an API bearer token; it needs no store.
	if os.Args[1] == "token" {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is not set")
		}
		if len(os.Args) < 3 {
			log.Fatal("Usage: app token <subject> [role]")
		}
		role := ""
		if len(os.Args) > 3 {
			role = os.Args[3]
		}
		token, err := webAdapter.IssueToken(cfg.JWTSecret, os.Args[2], role, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()
	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to open store: %v", err)
	}
	defer closeStore()

	if cfg.StoreDriver == config.DriverMemory {
		obs.Logger.Warn("cli_memory_store", "detail", "state is discarded when this command exits")
	}
	if err := st.Migrate(ctx); err != nil {
		closeStore()
		log.Fatalf("Unable to migrate store: %v", err)
	}

	svc := app.NewFromConfig(st, cfg, obs.Logger)
	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		closeStore()
		log.Fatal(err)
	}
}
