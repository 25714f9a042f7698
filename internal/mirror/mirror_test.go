package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nammatraffic/backend/internal/domain"
)

func TestOpenWithoutAddr(t *testing.T) {
	m := Open("", "traffic:updates")
	assert.Nil(t, m)
	assert.NoError(t, m.Close())
}

func TestOpenWithAddr(t *testing.T) {
	m := Open("127.0.0.1:1", "traffic:updates")
	require.NotNil(t, m)
	assert.Equal(t, "traffic:updates", m.channel)
	assert.NoError(t, m.Close())
}

func TestRunExitsWhenChannelCloses(t *testing.T) {
	// Port 1 refuses connections, so publishes fail fast and are dropped
	m := Open("127.0.0.1:1", "traffic:updates")
	require.NotNil(t, m)
	defer m.Close()

	updates := make(chan domain.Update, 2)
	updates <- domain.Update{Timestamp: time.Now()}
	updates <- domain.Update{Timestamp: time.Now()}
	close(updates)

	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), updates)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mirror did not stop after the update channel closed")
	}
}

func TestRunExitsOnCancel(t *testing.T) {
	m := Open("127.0.0.1:1", "traffic:updates")
	require.NotNil(t, m)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan domain.Update)

	done := make(chan struct{})
	go func() {
		m.Run(ctx, updates)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mirror did not stop after context cancellation")
	}
}
