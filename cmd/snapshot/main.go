// Command snapshot runs one dashboard pass and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"pair_tracker/internal/app/di"
	"pair_tracker/internal/feature/tracker/transport/http/dto"
	"pair_tracker/internal/platform/config"
	"pair_tracker/internal/platform/logging"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	logging.Setup(os.Stderr, cfg.LogLevel)

	// キャッシュを使わず毎回プロバイダから取得する
	market, err := di.NewMarket(cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	refresher := di.NewRefresher(cfg, market)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap := refresher.Trigger(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto.FromSnapshot(snap)); err != nil {
		log.Fatal(err)
	}
	if snap.Failure != nil {
		fmt.Fprintln(os.Stderr, snap.Failure.Message)
		os.Exit(1)
	}
}
