package statebus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusStartsIdle(t *testing.T) {
	b := New(nil)
	state := b.GetState()
	assert.Equal(t, StatusIdle, state.Status)
}

func TestSetStatusEmitsChange(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe(nil)
	defer sub.Close()

	b.SetStatus(StatusWaiting)

	select {
	case raw := <-sub.Events():
		var evt map[string]any
		require.NoError(t, json.Unmarshal(raw, &evt))
		assert.Equal(t, "status_change", evt["type"])
		assert.Equal(t, "waiting", evt["to"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status_change event")
	}

	assert.Equal(t, StatusWaiting, b.GetState().Status)
}

func TestSetUpcomingPassesSortsAndFiltersPast(t *testing.T) {
	b := New(nil)
	now := time.Now().UTC()

	b.SetUpcomingPasses([]PassSummary{
		{Satellite: "B", AOS: now.Add(2 * time.Hour), LOS: now.Add(2*time.Hour + 10*time.Minute)},
		{Satellite: "A", AOS: now.Add(1 * time.Hour), LOS: now.Add(1*time.Hour + 10*time.Minute)},
		{Satellite: "Stale", AOS: now.Add(-2 * time.Hour), LOS: now.Add(-1 * time.Hour)},
	})

	state := b.GetState()
	require.Len(t, state.UpcomingPasses, 2)
	assert.Equal(t, "A", state.UpcomingPasses[0].Satellite)
	assert.Equal(t, "B", state.UpcomingPasses[1].Satellite)
	require.NotNil(t, state.NextPass)
	assert.Equal(t, "A", state.NextPass.Satellite)
}

// TestSlowConsumerDropped covers slow_consumer: a subscriber whose queue
// fills is disconnected without affecting other subscribers.
func TestSlowConsumerDropped(t *testing.T) {
	b := New(nil)
	slow := b.Subscribe(nil)

	for i := 0; i < queueDepth; i++ {
		b.Emit("tick", map[string]any{"i": i})
	}
	fast := b.Subscribe(nil)
	defer fast.Close()
	for i := queueDepth; i < queueDepth+10; i++ {
		b.Emit("tick", map[string]any{"i": i})
	}

	for i := 0; i < queueDepth; i++ {
		<-slow.Events() // events queued before the drop are still delivered
	}
	_, stillOpen := <-slow.Events()
	assert.False(t, stillOpen, "slow subscriber's channel should have been closed")
	assert.Equal(t, 1, b.SubscriberCount())

	select {
	case _, ok := <-fast.Events():
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("fast subscriber received nothing")
	}
}

func TestSubscriberCountNeverNegative(t *testing.T) {
	b := New(nil)
	assert.Equal(t, 0, b.SubscriberCount())

	sub := b.Subscribe(nil)
	assert.Equal(t, 1, b.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, b.SubscriberCount())

	sub.Close() // idempotent
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestFilteredSubscriptionOnlyReceivesMatchingTypes(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe([]string{"wanted"})
	defer sub.Close()

	b.Emit("ignored", nil)
	b.Emit("wanted", map[string]any{"ok": true})

	select {
	case raw := <-sub.Events():
		var evt map[string]any
		require.NoError(t, json.Unmarshal(raw, &evt))
		assert.Equal(t, "wanted", evt["type"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered event")
	}
}
