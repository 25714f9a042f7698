package postgres

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nammatraffic/backend/internal/domain"
)

const mockHistoryCap = 5000

// MockRepository implements domain.DataRepository without a database.
// Snapshot saves are kept in memory so history queries still work when
// the server runs without PostgreSQL.
type MockRepository struct {
	mu      sync.Mutex
	records []domain.SnapshotRecord
}

// NewMockRepository creates a mock repository for development
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveSnapshots keeps the snapshots in memory, dropping the oldest
// records once the cap is reached
func (m *MockRepository) SaveSnapshots(ctx context.Context, at time.Time, snapshots map[string]domain.TrafficSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, snap := range snapshots {
		m.records = append(m.records, domain.SnapshotRecord{PointID: id, TrafficSnapshot: snap})
	}
	if over := len(m.records) - mockHistoryCap; over > 0 {
		m.records = m.records[over:]
	}
	return nil
}

// SaveSystemStats is a no-op in mock mode
func (m *MockRepository) SaveSystemStats(ctx context.Context, at time.Time, stats domain.SystemStats) error {
	return nil
}

// SavePredictionLog is a no-op in mock mode
func (m *MockRepository) SavePredictionLog(ctx context.Context, pointID string, rec domain.TimingRecommendation) error {
	return nil
}

// GetSnapshotHistory returns the in-memory snapshots for one point,
// newest first, matching the database repository's ordering
func (m *MockRepository) GetSnapshotHistory(ctx context.Context, pointID string, from, to time.Time) ([]domain.SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []domain.SnapshotRecord
	for _, rec := range m.records {
		if rec.PointID != pointID {
			continue
		}
		if rec.Timestamp.Before(from) || rec.Timestamp.After(to) {
			continue
		}
		results = append(results, rec)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	return results, nil
}

// Health always returns nil in mock mode
func (m *MockRepository) Health(ctx context.Context) error {
	return nil
}
