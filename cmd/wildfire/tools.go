package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	geojsonadapter "github.com/couchcryptid/wildfire-risk-engine/internal/adapter/geojson"
	"github.com/couchcryptid/wildfire-risk-engine/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-risk-engine/internal/cluster"
	"github.com/couchcryptid/wildfire-risk-engine/internal/config"
	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/fwi"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
	"github.com/couchcryptid/wildfire-risk-engine/internal/pipeline"
	"github.com/couchcryptid/wildfire-risk-engine/internal/risk"
	"github.com/couchcryptid/wildfire-risk-engine/internal/settlement"
	"github.com/couchcryptid/wildfire-risk-engine/internal/spread"
)

// cliMetrics registers the metrics once per process; commands share them.
var cliMetrics = sync.OnceValue(observability.NewMetrics)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fwiCmd() *cobra.Command {
	var (
		obs      domain.WeatherObservation
		prior    = domain.DefaultFireCodeState()
		lat, lon float64
	)

	cmd := &cobra.Command{
		Use:   "fwi",
		Short: "Compute the fire weather index for one day",
		Long: `Compute the fire weather index from weather given as flags, or from the
current weather at --lat/--lon when weather lookups are configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				logger := cliLogger(cfg)
				weather := newWeatherProvider(cfg, cliMetrics(), logger)
				if weather == nil {
					return errors.New("--lat/--lon need WEATHER_API_KEY")
				}
				obs, err = weather.CurrentWeather(cmd.Context(), lat, lon)
				if err != nil {
					return err
				}
			}

			res := fwi.Compute(obs, prior)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"weather": obs,
				"prior":   prior,
				"result":  res,
				"level":   fwi.Level(res.RiskPercent),
				"color":   fwi.Color(res.RiskPercent),
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&obs.TemperatureC, "temp", 20, "noon temperature in °C")
	f.Float64Var(&obs.RelativeHumidity, "rh", 50, "relative humidity in %")
	f.Float64Var(&obs.WindSpeedKPH, "wind", 10, "10 m wind speed in km/h")
	f.Float64Var(&obs.RainMM, "rain", 0, "24 h rainfall in mm")
	f.IntVar(&obs.Month, "month", int(time.Now().Month()), "month (1-12)")
	f.Float64Var(&prior.FFMC, "ffmc", prior.FFMC, "previous day's FFMC")
	f.Float64Var(&prior.DMC, "dmc", prior.DMC, "previous day's DMC")
	f.Float64Var(&prior.DC, "dc", prior.DC, "previous day's DC")
	f.Float64Var(&lat, "lat", 0, "look up current weather at this latitude")
	f.Float64Var(&lon, "lon", 0, "look up current weather at this longitude")
	return cmd
}

func clusterCmd() *cobra.Command {
	var (
		threshold float64
		format    string
	)

	cmd := &cobra.Command{
		Use:   "cluster [csv-path-or-url]",
		Short: "Group a FIRMS export into fire clusters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.ClusterThresholdKm
			}

			dets, err := loadDetections(cmd.Context(), firstArg(args), cfg, logger)
			if err != nil {
				return err
			}
			clusters := cluster.Cluster(dets, threshold)
			logger.Info("clustered", "detections", len(dets), "clusters", len(clusters), "threshold_km", threshold)

			switch format {
			case "geojson":
				return writeJSON(cmd.OutOrStdout(), geojsonadapter.Clusters(clusters))
			case "json":
				labeler := pipeline.NewLabeler(nil)
				events := make([]domain.ClusterEvent, len(clusters))
				for i, c := range clusters {
					events[i] = labeler.Label(c)
				}
				return writeJSON(cmd.OutOrStdout(), events)
			default:
				return fmt.Errorf("unknown format %q (json, geojson)", format)
			}
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", cluster.DefaultThresholdKm, "link distance in km")
	cmd.Flags().StringVarP(&format, "format", "f", "geojson", "output format (json, geojson)")
	return cmd
}

func spreadCmd() *cobra.Command {
	var (
		lat, lon float64
		radius   float64
		horizon  int
	)

	cmd := &cobra.Command{
		Use:   "spread [csv-path-or-url]",
		Short: "Predict spread of the latest fire near a point as GeoJSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			horizons := spread.Horizons
			if horizon != 0 {
				if !spread.ValidHorizon(horizon) {
					return fmt.Errorf("--horizon must be one of %v", spread.Horizons)
				}
				horizons = []int{horizon}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			if !cmd.Flags().Changed("radius") {
				radius = cfg.NearbyRadiusKm
			}

			dets, err := loadDetections(cmd.Context(), firstArg(args), cfg, logger)
			if err != nil {
				return err
			}
			nearby, agg := cluster.AggregateNearby(dets, lat, lon, radius)
			det, ok := cluster.Representative(nearby)
			if !ok {
				return fmt.Errorf("no detections within %.1f km of %.4f,%.4f", radius, lat, lon)
			}
			logger.Info("spread subject", "id", det.ID, "nearby", agg.Count, "frp", det.FRP)

			var obs *domain.WeatherObservation
			if weather := newWeatherProvider(cfg, cliMetrics(), logger); weather != nil {
				o, err := weather.CurrentWeather(cmd.Context(), det.Latitude, det.Longitude)
				if err != nil {
					logger.Warn("weather lookup failed, using fallback spread", "error", err)
				} else {
					obs = &o
				}
			}

			out := geojson.NewFeatureCollection()
			for _, h := range horizons {
				p := spread.Predict(det, obs, float64(h))
				out.Features = append(out.Features, geojsonadapter.Spread(det, p, h).Features...)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&lat, "lat", 0, "latitude of the point of interest")
	f.Float64Var(&lon, "lon", 0, "longitude of the point of interest")
	f.Float64Var(&radius, "radius", cluster.DefaultRadiusKm, "search radius in km")
	f.IntVar(&horizon, "horizon", 0, "prediction horizon in minutes (0 for all)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func riskCmd() *cobra.Command {
	var (
		city    string
		persist bool
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Run the daily city risk update once and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			metrics := cliMetrics()

			weather := newWeatherProvider(cfg, metrics, logger)
			if weather == nil {
				return errors.New("city risk needs WEATHER_API_KEY")
			}

			cities := settlement.Bulgaria
			if city != "" {
				s, ok := settlement.ByName(city, settlement.Bulgaria)
				if !ok {
					return fmt.Errorf("unknown city %q", city)
				}
				cities = []domain.Settlement{s}
			}

			var store domain.FireCodeStore
			if persist {
				if dbPath == "" {
					dbPath = cfg.StateDBPath
				}
				s, err := sqlite.Open(dbPath)
				if err != nil {
					return err
				}
				defer s.Close()
				store = s
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			results := risk.NewAssessor(weather, store, cities, nil, metrics, logger).Run(ctx)
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "only assess this city")
	cmd.Flags().BoolVar(&persist, "persist", true, "read and write fire-code state in the state database")
	cmd.Flags().StringVar(&dbPath, "db", "", "state database path (default STATE_DB_PATH)")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
