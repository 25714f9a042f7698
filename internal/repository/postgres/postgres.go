package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nammatraffic/backend/internal/domain"
)

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveSnapshots persists one refresh cycle's snapshots in a single batch
func (r *PostgresRepository) SaveSnapshots(ctx context.Context, at time.Time, snapshots map[string]domain.TrafficSnapshot) error {
	query := `
		INSERT INTO traffic_snapshots (
			point_id, vehicle_count, congestion_level, average_speed,
			queue_length, wait_time, weather_factor, event_factor, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for id, snap := range snapshots {
		batch.Queue(query,
			id, snap.VehicleCount, snap.CongestionLevel, snap.AverageSpeed,
			snap.QueueLength, snap.WaitTime, snap.WeatherFactor, snap.EventFactor, at,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range snapshots {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: failed to save traffic snapshot: %w", err)
		}
	}
	return nil
}

// SaveSystemStats persists a system-stats sample
func (r *PostgresRepository) SaveSystemStats(ctx context.Context, at time.Time, stats domain.SystemStats) error {
	query := `
		INSERT INTO system_stats (
			total_vehicles_processed, average_wait_time,
			commute_time_reduction, system_efficiency, timestamp
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		stats.TotalVehiclesProcessed, stats.AverageWaitTime,
		stats.CommuteTimeReduction, stats.SystemEfficiency, at,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save system stats: %w", err)
	}

	return nil
}

// SavePredictionLog persists a timing recommendation for audit
func (r *PostgresRepository) SavePredictionLog(ctx context.Context, pointID string, rec domain.TimingRecommendation) error {
	query := `
		INSERT INTO prediction_logs (
			point_id, green_duration, red_duration,
			predicted_congestion, confidence, is_fallback
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		pointID, rec.GreenDuration, rec.RedDuration,
		rec.PredictedCongestion, rec.Confidence, rec.Fallback,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save prediction log: %w", err)
	}

	return nil
}

// GetSnapshotHistory retrieves stored snapshots for one point
func (r *PostgresRepository) GetSnapshotHistory(ctx context.Context, pointID string, from, to time.Time) ([]domain.SnapshotRecord, error) {
	query := `
		SELECT point_id, vehicle_count, congestion_level, average_speed,
			   queue_length, wait_time, weather_factor, event_factor, timestamp
		FROM traffic_snapshots
		WHERE point_id = $1 AND timestamp BETWEEN $2 AND $3
		ORDER BY timestamp DESC
		LIMIT 500
	`

	rows, err := r.pool.Query(ctx, query, pointID, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query snapshot history: %w", err)
	}
	defer rows.Close()

	var results []domain.SnapshotRecord
	for rows.Next() {
		var rec domain.SnapshotRecord
		err := rows.Scan(
			&rec.PointID, &rec.VehicleCount, &rec.CongestionLevel, &rec.AverageSpeed,
			&rec.QueueLength, &rec.WaitTime, &rec.WeatherFactor, &rec.EventFactor, &rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan snapshot row: %w", err)
		}
		results = append(results, rec)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
