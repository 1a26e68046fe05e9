package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/internal/coordinator"
	"github.com/shoplab/order-coordination-go/internal/order"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
	"github.com/shoplab/order-coordination-go/pkg/kafka"
	"github.com/shoplab/order-coordination-go/pkg/logging"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

type cfg struct {
	Port               string
	DatabaseURL        string
	CoordinatorBaseURL string
	UserBaseURL        string
	RequestTimeout     time.Duration
	KafkaBrokers       string
	KafkaTopic         string
}

func readCfg() (cfg, error) {
	coordURL := strings.TrimRight(getenv("COORDINATOR_BASE_URL", ""), "/")
	userURL := strings.TrimRight(getenv("USER_BASE_URL", ""), "/")
	if coordURL == "" || userURL == "" {
		return cfg{}, errors.New("COORDINATOR_BASE_URL and USER_BASE_URL are required")
	}
	toutMS, _ := strconv.Atoi(getenv("REQUEST_TIMEOUT_MS", "2500"))
	return cfg{
		Port:               getenv("PORT", "14010"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CoordinatorBaseURL: coordURL,
		UserBaseURL:        userURL,
		RequestTimeout:     time.Duration(toutMS) * time.Millisecond,
		KafkaBrokers:       getenv("KAFKA_BROKERS", ""),
		KafkaTopic:         getenv("KAFKA_TOPIC", kafka.DefaultTopic),
	}, nil
}

func main() {
	log := logging.New("order-service")
	defer func() { _ = log.Sync() }()

	cfg, err := readCfg()
	if err != nil {
		log.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ledger order.Ledger
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			log.Fatal("db connect failed", zap.Error(err))
		}
		defer pool.Close()
		pg := order.NewPostgresLedger(pool)
		if err := pg.Migrate(connectCtx); err != nil {
			cancel()
			log.Fatal("migrate failed", zap.Error(err))
		}
		cancel()
		ledger = pg
	} else {
		log.Info("no DATABASE_URL, using in-memory ledger")
		ledger = order.NewMemoryLedger()
	}

	svc := order.NewService(
		ledger,
		order.NewHTTPRouteClient(cfg.CoordinatorBaseURL, cfg.RequestTimeout),
		coordinator.NewUserClient(cfg.UserBaseURL, cfg.RequestTimeout),
		log,
	)

	broker := kafka.NewBroker(cfg.KafkaBrokers)
	if broker.Enabled() {
		publisher := broker.NewEventPublisher(cfg.KafkaTopic)
		defer func() { _ = publisher.Close() }()
		go order.NewRelay(ledger, publisher, log).Run(ctx)
		log.Info("event relay started", zap.String("topic", cfg.KafkaTopic))
	}

	srvMetrics := metrics.NewServerMetrics("order_service")
	r := chi.NewRouter()
	r.Use(httpx.Metrics(srvMetrics))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	order.NewHandler(svc, srvMetrics).Register(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("order-service listening", zap.String("port", cfg.Port))
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
