// ABOUTME: Tests for the hub, multi-publisher, and Redis publisher.
// ABOUTME: Redis tests run against miniredis.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEvent() models.AlertEvent {
	return models.AlertEvent{
		RecordID:       uuid.New(),
		DriverID:       uuid.New(),
		Username:       "jdoe",
		Kind:           models.KindDrowsiness,
		Tier:           models.TierCritical,
		FatigueLevel:   84,
		Recommendation: "Pull over now.",
		RecordedAt:     time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
	}
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *RedisPublisher) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client, NewRedisPublisherWithClient(client, "drivewatch:alerts")
}

func TestRedisPublisher_RecentList(t *testing.T) {
	mr, _, pub := setupTestRedis(t)
	ctx := context.Background()

	ev := sampleEvent()
	require.NoError(t, pub.Publish(ctx, ev))

	items, err := mr.List(pub.RecentKey())
	require.NoError(t, err)
	require.Len(t, items, 1)

	var got models.AlertEvent
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, ev.RecordID, got.RecordID)
	assert.Equal(t, models.TierCritical, got.Tier)
	assert.Equal(t, 84, got.FatigueLevel)
}

func TestRedisPublisher_RecentListIsCapped(t *testing.T) {
	mr, _, pub := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < RecentLimit+5; i++ {
		require.NoError(t, pub.Publish(ctx, sampleEvent()))
	}

	items, err := mr.List(pub.RecentKey())
	require.NoError(t, err)
	assert.Len(t, items, RecentLimit)
}

func TestRedisPublisher_Subscribe(t *testing.T) {
	_, client, pub := setupTestRedis(t)
	ctx := context.Background()
	ev := sampleEvent()

	sub := client.Subscribe(ctx, pub.Channel(), pub.DriverChannel(ev))
	defer sub.Close()
	// Wait for both subscription confirmations.
	for i := 0; i < 2; i++ {
		_, err := sub.Receive(ctx)
		require.NoError(t, err)
	}

	require.NoError(t, pub.Publish(ctx, ev))

	seen := map[string]bool{}
	ch := sub.Channel()
	for len(seen) < 2 {
		select {
		case msg := <-ch:
			seen[msg.Channel] = true
			assert.Contains(t, msg.Payload, ev.RecordID.String())
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for messages, got %v", seen)
		}
	}
	assert.True(t, seen[pub.Channel()])
	assert.True(t, seen[pub.DriverChannel(ev)])
}

func TestRedisPublisher_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisPublisher(ctx, addr, "drivewatch:alerts")
	assert.Error(t, err)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, cancelA := hub.Subscribe(1)
	b, cancelB := hub.Subscribe(1)
	defer cancelA()
	defer cancelB()

	assert.Equal(t, 2, hub.Subscribers())

	ev := sampleEvent()
	require.NoError(t, hub.Publish(context.Background(), ev))

	assert.Equal(t, ev.RecordID, (<-a).RecordID)
	assert.Equal(t, ev.RecordID, (<-b).RecordID)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, sampleEvent()))
	require.NoError(t, hub.Publish(ctx, sampleEvent()))

	<-ch
	select {
	case <-ch:
		t.Fatal("expected second event to be dropped")
	default:
	}
}

func TestHub_Cancel(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe(0)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers())
	assert.NoError(t, hub.Publish(context.Background(), sampleEvent()))
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, models.AlertEvent) error {
	f.calls++
	return errors.New("boom")
}

func TestMulti_TriesEveryPublisher(t *testing.T) {
	first := &failingPublisher{}
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	err := Multi{first, nil, hub, Nop{}}.Publish(context.Background(), sampleEvent())
	assert.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Len(t, ch, 1)
}
