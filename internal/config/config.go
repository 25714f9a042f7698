package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nammatraffic/backend/internal/domain"
)

// Config holds all runtime settings for the traffic backend.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	RedisAddr    string
	RedisChannel string

	RefreshInterval        time.Duration
	TickInterval           time.Duration
	TargetCommuteReduction float64
	SimulatorSeed          int64

	PointsFile string
	Points     []domain.TrafficPoint
	Timings    domain.SignalTimings
}

// Load builds the configuration from environment variables, falling back
// to defaults for anything unset. The traffic point catalog comes from
// TRAFFIC_POINTS_FILE when given, otherwise the built-in Bengaluru set.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("GO_ENV", "development"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "traffic:updates"),

		RefreshInterval: time.Duration(getEnvInt("REFRESH_INTERVAL_SECONDS", 30)) * time.Second,
		TickInterval:    time.Duration(getEnvInt("TICK_INTERVAL_SECONDS", 1)) * time.Second,

		TargetCommuteReduction: getEnvFloat("TARGET_COMMUTE_REDUCTION", 0.10),
		SimulatorSeed:          int64(getEnvInt("SIMULATOR_SEED", 0)),

		PointsFile: getEnv("TRAFFIC_POINTS_FILE", ""),
		Timings:    DefaultTimings(),
	}

	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("config: REFRESH_INTERVAL_SECONDS must be positive")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("config: TICK_INTERVAL_SECONDS must be positive")
	}
	if cfg.TargetCommuteReduction < 0 || cfg.TargetCommuteReduction > 1 {
		return nil, fmt.Errorf("config: TARGET_COMMUTE_REDUCTION must be within [0, 1]")
	}

	points, err := loadPoints(cfg.PointsFile)
	if err != nil {
		return nil, err
	}
	cfg.Points = points

	return cfg, nil
}

// DefaultPoints returns the built-in Bengaluru monitoring catalog.
func DefaultPoints() []domain.TrafficPoint {
	return []domain.TrafficPoint{
		{ID: "silk_board", Name: "Silk Board Junction", Latitude: 12.9178, Longitude: 77.6229, Priority: domain.PriorityHigh, VehiclesPerHour: 3500},
		{ID: "electronic_city", Name: "Electronic City", Latitude: 12.8399, Longitude: 77.6773, Priority: domain.PriorityHigh, VehiclesPerHour: 4200},
		{ID: "hebbal", Name: "Hebbal Flyover", Latitude: 13.0358, Longitude: 77.5970, Priority: domain.PriorityHigh, VehiclesPerHour: 3800},
		{ID: "marathahalli", Name: "Marathahalli Bridge", Latitude: 12.9591, Longitude: 77.6974, Priority: domain.PriorityMedium, VehiclesPerHour: 3200},
		{ID: "whitefield", Name: "Whitefield Main Road", Latitude: 12.9698, Longitude: 77.7499, Priority: domain.PriorityMedium, VehiclesPerHour: 2800},
		{ID: "koramangala", Name: "Koramangala Junction", Latitude: 12.9279, Longitude: 77.6271, Priority: domain.PriorityMedium, VehiclesPerHour: 2900},
		{ID: "jayanagar", Name: "Jayanagar 4th Block", Latitude: 12.9237, Longitude: 77.5937, Priority: domain.PriorityLow, VehiclesPerHour: 2400},
		{ID: "richmond_circle", Name: "Richmond Circle", Latitude: 12.9581, Longitude: 77.6015, Priority: domain.PriorityMedium, VehiclesPerHour: 2600},
		{ID: "majestic", Name: "Majestic Bus Stand", Latitude: 12.9767, Longitude: 77.5710, Priority: domain.PriorityHigh, VehiclesPerHour: 4000},
	}
}

// DefaultTimings returns the default signal phase durations in seconds.
func DefaultTimings() domain.SignalTimings {
	return domain.SignalTimings{Green: 45, Yellow: 5, Red: 60}
}

func loadPoints(path string) ([]domain.TrafficPoint, error) {
	if path == "" {
		return DefaultPoints(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read points file: %w", err)
	}

	var points []domain.TrafficPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("config: parse points file: %w", err)
	}
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	return points, nil
}

func validatePoints(points []domain.TrafficPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("config: points file contains no traffic points")
	}
	seen := make(map[string]bool, len(points))
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("config: traffic point with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("config: duplicate traffic point id %q", p.ID)
		}
		seen[p.ID] = true
		if !p.Priority.Valid() {
			return fmt.Errorf("config: traffic point %q has unknown priority %q", p.ID, p.Priority)
		}
		if p.VehiclesPerHour <= 0 {
			return fmt.Errorf("config: traffic point %q needs a positive avg_vehicles_per_hour", p.ID)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
