package messaging

import (
	"errors"
	"sync"
	"testing"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode: false,
		Logger:    logger.NewDefault(),
	})
}

func TestEventBus_DeliversToTypeSubscribers(t *testing.T) {
	bus := newSyncBus()

	var got []shared.EventType
	err := bus.Subscribe(shared.EventCertificateIssued, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	})
	require.NoError(t, err)

	ev := shared.NewCertificateIssuedEvent("EDU-1", "learner", "course")
	require.NoError(t, bus.Publish(ev))
	require.NoError(t, bus.Publish(shared.NewCertificateRevokedEvent("EDU-1", "fraud")))

	assert.Equal(t, []shared.EventType{shared.EventCertificateIssued}, got)
}

func TestEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus()

	var count int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewCertificateIssuedEvent("EDU-1", "l", "c")))
	require.NoError(t, bus.Publish(shared.NewCertificateRevokedEvent("EDU-1", "fraud")))

	assert.Equal(t, 2, count)
}

func TestEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := newSyncBus()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		return errors.New("subscriber broke")
	}))

	assert.NoError(t, bus.Publish(shared.NewCertificateIssuedEvent("EDU-1", "l", "c")))
}

func TestEventBus_ClosedBusRejectsPublish(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewCertificateIssuedEvent("EDU-1", "l", "c"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventCertificateIssued, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestEventBus_AsyncDrainsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 2,
		Logger:         logger.NewDefault(),
	})

	var mu sync.Mutex
	var count int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewCertificateIssuedEvent("EDU-1", "l", "c")))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}
