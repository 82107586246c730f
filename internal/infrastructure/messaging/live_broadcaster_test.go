package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/manager"
)

func newTestBroadcaster() *LiveBroadcaster {
	return NewLiveBroadcaster(manager.NewManager(nil))
}

func TestBroadcasterTracksClientsPerTenant(t *testing.T) {
	b := newTestBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	client := &LiveClient{TenantID: "acme", Send: make(chan []byte, 1)}
	b.Register(client)

	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return len(b.tenantClients["acme"]) == 1
	}, time.Second, 10*time.Millisecond)

	b.Unregister(client)

	select {
	case _, open := <-client.Send:
		assert.False(t, open, "send channel should be closed on unregister")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}

	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		_, ok := b.tenantClients["acme"]
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestBroadcasterRunReturnsOnCancel(t *testing.T) {
	b := newTestBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster loop did not stop on context cancel")
	}
}
