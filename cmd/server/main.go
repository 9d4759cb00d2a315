package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"pair_tracker/internal/app/di"
	"pair_tracker/internal/app/router"
	"pair_tracker/internal/feature/tracker/transport/handler"
	"pair_tracker/internal/platform/config"
	"pair_tracker/internal/platform/logging"
	"pair_tracker/internal/platform/metrics"
	infraredis "pair_tracker/internal/platform/redis"
	"pair_tracker/internal/platform/ws"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	logging.Setup(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig()); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// データソース（プロバイダ → 再試行 → キャッシュ）
	market, err := di.NewMarket(cfg, rdb)
	if err != nil {
		log.Fatal(err)
	}
	refresher := di.NewRefresher(cfg, market)

	// Handler
	hub := ws.NewHub()
	prometheus.MustRegister(metrics.NewClientsGauge(hub))
	dashboardH := handler.NewDashboardHandler(refresher, hub, market, handler.PageInfo{
		Title:   cfg.LabelA + " vs " + cfg.LabelB,
		Symbols: []string{cfg.SymbolA, cfg.SymbolB},
	})
	refresher.Subscribe(dashboardH)

	// ルータ生成
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(dashboardH, refresher, cfg.CORSEnabled),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr, "provider", cfg.Provider,
			"symbols", []string{cfg.SymbolA, cfg.SymbolB}, "interval", cfg.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return refresher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
