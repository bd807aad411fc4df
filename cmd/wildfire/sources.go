package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-risk-engine/internal/adapter/firms"
	"github.com/couchcryptid/wildfire-risk-engine/internal/adapter/reports"
	"github.com/couchcryptid/wildfire-risk-engine/internal/adapter/weatherapi"
	"github.com/couchcryptid/wildfire-risk-engine/internal/config"
	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
)

const feedTimeout = 30 * time.Second

// cliLogger writes to stderr so command output on stdout stays machine-readable.
func cliLogger(cfg *config.Config) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newWeatherProvider returns a cached weatherapi.com provider, or nil when
// weather lookups are disabled.
func newWeatherProvider(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.WeatherProvider {
	if !cfg.WeatherEnabled {
		metrics.WeatherEnabled.Set(0)
		logger.Info("weather lookups disabled")
		return nil
	}
	metrics.WeatherEnabled.Set(1)
	client := weatherapi.NewClient(cfg.WeatherAPIKey, cfg.WeatherTimeout, metrics, logger)
	logger.Info("weather lookups enabled", "cache_size", cfg.WeatherCacheSize, "cache_ttl", cfg.WeatherCacheTTL)
	return weatherapi.NewCachedProvider(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clockwork.NewRealClock(), metrics)
}

// readFIRMSRecords reads a FIRMS CSV export from a local path or an http(s) URL.
// An empty source falls back to FIRMS_URL.
func readFIRMSRecords(ctx context.Context, source string, cfg *config.Config, logger *slog.Logger) ([]domain.RawDetectionRecord, error) {
	if source == "" {
		source = cfg.FIRMSURL
	}
	if source == "" {
		return nil, errors.New("no FIRMS source: pass a CSV path or URL, or set FIRMS_URL")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return firms.NewClient(source, feedTimeout, logger).FetchRecords(ctx)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open FIRMS export: %w", err)
	}
	defer f.Close()
	return firms.ReadRecords(f)
}

// loadDetections combines a FIRMS export with user reports when REPORTS_URL is set.
// A failed report fetch is logged and skipped.
func loadDetections(ctx context.Context, source string, cfg *config.Config, logger *slog.Logger) ([]domain.FireDetection, error) {
	recs, err := readFIRMSRecords(ctx, source, cfg, logger)
	if err != nil {
		return nil, err
	}
	dets, dropped := firms.Detections(recs)
	if dropped > 0 {
		logger.Warn("firms rows with invalid coordinates dropped", "dropped", dropped)
	}

	if cfg.ReportsURL != "" {
		reps, err := reports.NewClient(cfg.ReportsURL, cfg.ReportBaseURL, feedTimeout, logger).FetchDetections(ctx)
		if err != nil {
			logger.Warn("user reports unavailable", "error", err)
		} else {
			dets = append(dets, reps...)
		}
	}
	logger.Debug("detections loaded", "count", len(dets))
	return dets, nil
}
