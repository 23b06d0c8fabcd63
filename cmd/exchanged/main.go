// Command exchanged runs the matching exchange process: one InstrumentWorker
// per configured instrument, fronted by a TCP order-entry gateway and a
// websocket fan-out of order/trade/depth events, with Prometheus metrics.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vantage/internal/config"
	"vantage/internal/exchmetrics"
	"vantage/internal/gateway"
	"vantage/internal/matching"
	"vantage/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional; env vars and defaults otherwise)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	registry := prometheus.NewRegistry()
	router := make(gateway.StaticRouter, len(cfg.Instruments))
	broadcaster := gateway.NewBroadcaster()

	for _, instrumentID := range cfg.Instruments {
		engine := matching.NewMatchingEngine(instrumentID, matching.RealClock)
		engine.SelfTrade = cfg.SelfTradePolicy
		engine.TriggerRef = cfg.TriggerReference
		engine.SetMetrics(exchmetrics.NewPrometheus(registry, instrumentID.String()))

		w := worker.New(instrumentID, engine, worker.Config{
			CommandQueueSize: cfg.CommandQueueSize,
			ResultQueueSize:  cfg.ResultQueueSize,
		})
		router[instrumentID] = w.Client()

		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Str("instrument", instrumentID.String()).Msg("instrument worker stopped")
			}
		}()
		go broadcaster.Watch(w)

		log.Info().Str("instrument", instrumentID.String()).Msg("instrument worker started")
	}

	gw := gateway.New(cfg.GatewayAddress, router)
	go func() {
		if err := gw.Run(ctx); err != nil {
			log.Error().Err(err).Msg("gateway stopped")
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsMux.Handle("/stream", broadcaster)
	metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().
		Str("gateway", cfg.GatewayAddress).
		Str("metrics", cfg.MetricsAddress).
		Int("instruments", len(cfg.Instruments)).
		Msg("exchange running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsServer.Shutdown(shutdownCtx)
}
