package domain

import (
	"context"
	"time"
)

// SnapshotSource produces one snapshot per configured traffic point.
// Implementations must be safe for concurrent use.
type SnapshotSource interface {
	Snapshots(now time.Time) (map[string]TrafficSnapshot, error)
}

// SnapshotRecord tags a stored snapshot with its traffic point.
type SnapshotRecord struct {
	PointID string `json:"point_id"`
	TrafficSnapshot
}

// DataRepository defines the interface for data persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type DataRepository interface {
	// SaveSnapshots persists one refresh cycle's snapshots
	SaveSnapshots(ctx context.Context, at time.Time, snapshots map[string]TrafficSnapshot) error

	// SaveSystemStats persists a system-stats sample
	SaveSystemStats(ctx context.Context, at time.Time, stats SystemStats) error

	// SavePredictionLog persists a timing recommendation for audit
	SavePredictionLog(ctx context.Context, pointID string, rec TimingRecommendation) error

	// GetSnapshotHistory retrieves stored snapshots for one point
	GetSnapshotHistory(ctx context.Context, pointID string, from, to time.Time) ([]SnapshotRecord, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}
