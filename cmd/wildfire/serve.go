package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/wildfire-risk-engine/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wildfire-risk-engine/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-risk-engine/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-risk-engine/internal/config"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
	"github.com/couchcryptid/wildfire-risk-engine/internal/pipeline"
	"github.com/couchcryptid/wildfire-risk-engine/internal/risk"
	"github.com/couchcryptid/wildfire-risk-engine/internal/settlement"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume detections from Kafka, publish clusters and serve the query API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(cfg.StateDBPath)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "state store", store.Close)

	weather := newWeatherProvider(cfg, metrics, logger)

	window := pipeline.NewWindow(cfg.DetectionRetention, nil)
	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	p := pipeline.New(reader, pipeline.NewTransformer(logger), writer, window, logger, metrics, pipeline.Options{
		BatchSize:   cfg.BatchSize,
		ThresholdKm: cfg.ClusterThresholdKm,
	})

	api := &httpadapter.API{
		Detections:  window,
		Weather:     weather,
		History:     store,
		ThresholdKm: cfg.ClusterThresholdKm,
		RadiusKm:    cfg.NearbyRadiusKm,
	}

	var sched *risk.Scheduler
	if weather != nil {
		assessor := risk.NewAssessor(weather, store, settlement.Bulgaria, nil, metrics, logger)
		sched, err = risk.NewScheduler(cfg.RiskSchedule, assessor, logger)
		if err != nil {
			return err
		}
		api.Risk = assessor
	} else {
		logger.Info("city risk scheduler disabled, no weather provider")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness{p, store}, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	if sched != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	closeLogged(logger, "kafka reader", reader.Close)
	closeLogged(logger, "kafka writer", writer.Close)

	logger.Info("shutdown complete")
	return nil
}

// readiness is ready when every checker is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func closeLogged(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error(name+" close error", "error", err)
	}
}
