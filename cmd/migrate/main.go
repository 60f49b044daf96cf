package main

import (
	"context"
	"fmt"
	"os"

	"billing-engine/internal/config"
	"billing-engine/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.StoreDriver = os.Args[1]
	}

	ctx := context.Background()
	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		fmt.Printf("Failed to open %s store: %v\n", cfg.StoreDriver, err)
		os.Exit(1)
	}
	defer closeStore()

	if err := st.Migrate(ctx); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		closeStore()
		os.Exit(1)
	}
	fmt.Printf("Migration successful (%s).\n", cfg.StoreDriver)
}
