package mirror

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nammatraffic/backend/internal/domain"
	"github.com/nammatraffic/backend/internal/logger"
)

// Mirror republishes control loop updates on a Redis channel so other
// services (dashboards, recorders) can follow the live feed without
// holding a websocket against this server. The most recent payload is
// also kept under <channel>:latest for late joiners.
type Mirror struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

// Open creates a mirror for the Redis instance at addr. Returns nil
// when addr is empty, the server then runs without mirroring.
func Open(addr, channel string) *Mirror {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Mirror{client: client, channel: channel, log: logger.L()}
}

// Run forwards updates until the subscription channel closes or ctx is
// cancelled. Publish failures are logged and the update is dropped.
func (m *Mirror) Run(ctx context.Context, updates <-chan domain.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			m.publish(ctx, update)
		}
	}
}

func (m *Mirror) publish(ctx context.Context, update domain.Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		m.log.Warn("mirror: failed to encode update", "error", err)
		return
	}
	if err := m.client.Set(ctx, m.channel+":latest", payload, 0).Err(); err != nil {
		m.log.Warn("mirror: failed to store latest state", "error", err)
	}
	if err := m.client.Publish(ctx, m.channel, payload).Err(); err != nil {
		m.log.Warn("mirror: failed to publish update", "error", err)
	}
}

// Close releases the Redis connection
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}
