package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yeomin4242/guesswhat"
	"github.com/yeomin4242/guesswhat/storage"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	mediaMovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: guesswhat.Service,
		Name:      "media_moves_total",
		Help:      "Storage moves by outcome.",
	}, []string{"outcome"})

	promotionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: guesswhat.Service,
		Name:      "promotions_total",
		Help:      "Game media promotions by outcome.",
	}, []string{"outcome"})

	gameWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: guesswhat.Service,
		Name:      "game_writes_total",
		Help:      "Game creates and updates by outcome.",
	}, []string{"op", "outcome"})
)

// countingMover counts the moves made through a store.
type countingMover struct {
	storage.Store
}

func (m countingMover) Move(ctx context.Context, from, to string) error {
	if err := m.Store.Move(ctx, from, to); err != nil {
		mediaMovesTotal.WithLabelValues("failed").Inc()
		return err
	}
	mediaMovesTotal.WithLabelValues("ok").Inc()

	return nil
}

func observePromotion(p *guesswhat.Promotion) {
	if len(p.Warnings) > 0 {
		promotionsTotal.WithLabelValues("partial").Inc()
		return
	}
	promotionsTotal.WithLabelValues("ok").Inc()
}

// setupOtel exports OpenTelemetry metrics, including the otelhttp server
// metrics, through the default Prometheus registry served on /metrics.
func setupOtel() (func(context.Context) error, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}
