// Package logging configures the shared zap logger. Every service logs the
// same structured fields (service, order_id, step, status, duration_ms) so
// one coordination run can be followed across processes.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger tagged with the service name.
func New(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("service", service))
}

// Field helpers keep the key names identical across services.

func OrderID(id string) zap.Field { return zap.String("order_id", id) }

func EventID(id string) zap.Field { return zap.String("event_id", id) }

func Step(name string) zap.Field { return zap.String("step", name) }

func Status(s string) zap.Field { return zap.String("status", s) }

func DurationMS(d time.Duration) zap.Field {
	return zap.Int64("duration_ms", d.Milliseconds())
}
