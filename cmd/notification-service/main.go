package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
	"github.com/shoplab/order-coordination-go/pkg/kafka"
	"github.com/shoplab/order-coordination-go/pkg/logging"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

type cfg struct {
	Port         string
	DatabaseURL  string
	KafkaBrokers string
	Topic        string
	GroupID      string
}

func readCfg() (cfg, error) {
	brokers := getenv("KAFKA_BROKERS", "")
	if brokers == "" {
		return cfg{}, errors.New("KAFKA_BROKERS is required")
	}
	return cfg{
		Port:         getenv("PORT", "14020"),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		KafkaBrokers: brokers,
		Topic:        getenv("KAFKA_TOPIC", kafka.DefaultTopic),
		GroupID:      getenv("KAFKA_GROUP_ID", "notification-service"),
	}, nil
}

const notificationsSchema = `
CREATE TABLE IF NOT EXISTS notifications (
	event_id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func main() {
	log := logging.New("notification-service")
	defer func() { _ = log.Sync() }()

	cfg, err := readCfg()
	if err != nil {
		log.Fatal("config error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			log.Fatal("db connect failed", zap.Error(err))
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, notificationsSchema); err != nil {
			cancel()
			log.Fatal("migrate failed", zap.Error(err))
		}
	}
	cancel()

	broker := kafka.NewBroker(cfg.KafkaBrokers)
	go consumeEvents(broker, cfg, pool, log)

	srvMetrics := metrics.NewServerMetrics("notification_service")
	r := chi.NewRouter()
	r.Use(httpx.Metrics(srvMetrics))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	log.Info("notification-service listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server error", zap.Error(err))
	}
}

func consumeEvents(broker *kafka.Broker, cfg cfg, pool *pgxpool.Pool, log *zap.Logger) {
	reader := broker.NewEventReader(cfg.Topic, cfg.GroupID)
	defer func() { _ = reader.Close() }()
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Warn("kafka read error", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		var evt api.OrderEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Warn("event decode error", zap.Error(err))
			continue
		}
		if evt.EventID == "" {
			continue
		}
		if pool != nil {
			// Dedup on event_id: the relay may redeliver after a crash.
			_, err := pool.Exec(context.Background(),
				`INSERT INTO notifications(event_id, order_id, type, payload)
				 VALUES($1, $2, $3, $4) ON CONFLICT (event_id) DO NOTHING`,
				evt.EventID, evt.OrderID, evt.Type, msg.Value)
			if err != nil {
				log.Warn("notification save error", logging.EventID(evt.EventID), zap.Error(err))
				continue
			}
		}
		log.Info("notification emitted",
			logging.EventID(evt.EventID),
			logging.OrderID(evt.OrderID),
			logging.Step(evt.Type),
			logging.Status(string(evt.Outcome)),
		)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
