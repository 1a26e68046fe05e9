package main

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/internal/coordinator"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
	"github.com/shoplab/order-coordination-go/pkg/logging"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

type cfg struct {
	Port           string
	UserBaseURL    string
	ProductBaseURL string
	RequestTimeout time.Duration
}

func readCfg() (cfg, error) {
	userURL := strings.TrimRight(getenv("USER_BASE_URL", ""), "/")
	productURL := strings.TrimRight(getenv("PRODUCT_BASE_URL", ""), "/")
	if userURL == "" || productURL == "" {
		return cfg{}, errors.New("USER_BASE_URL and PRODUCT_BASE_URL are required")
	}
	toutMS, _ := strconv.Atoi(getenv("REQUEST_TIMEOUT_MS", "2500"))
	return cfg{
		Port:           getenv("PORT", "14000"),
		UserBaseURL:    userURL,
		ProductBaseURL: productURL,
		RequestTimeout: time.Duration(toutMS) * time.Millisecond,
	}, nil
}

func main() {
	log := logging.New("coordinator")
	defer func() { _ = log.Sync() }()

	cfg, err := readCfg()
	if err != nil {
		log.Fatal("config error", zap.Error(err))
	}

	router := coordinator.NewRouter(
		coordinator.NewUserClient(cfg.UserBaseURL, cfg.RequestTimeout),
		coordinator.NewInventoryClient(cfg.ProductBaseURL, cfg.RequestTimeout),
		log,
	)

	srvMetrics := metrics.NewServerMetrics("coordinator")
	r := chi.NewRouter()
	r.Use(httpx.Metrics(srvMetrics))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	coordinator.NewHandler(router, srvMetrics).Register(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	log.Info("coordinator listening", zap.String("port", cfg.Port))
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
