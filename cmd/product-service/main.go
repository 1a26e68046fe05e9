package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/internal/product"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
	"github.com/shoplab/order-coordination-go/pkg/logging"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

type cfg struct {
	Port        string
	DatabaseURL string
}

func readCfg() cfg {
	return cfg{
		Port:        getenv("PORT", "15000"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}
}

func main() {
	cfg := readCfg()
	log := logging.New("product-service")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store product.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db connect failed", zap.Error(err))
		}
		defer pool.Close()
		pg := product.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("migrate failed", zap.Error(err))
		}
		store = pg
	} else {
		log.Info("no DATABASE_URL, using in-memory store")
		store = product.NewMemoryStore()
	}

	srvMetrics := metrics.NewServerMetrics("product_service")
	r := chi.NewRouter()
	r.Use(httpx.Metrics(srvMetrics))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	product.NewHandler(store, log).Register(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	log.Info("product-service listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server error", zap.Error(err))
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
