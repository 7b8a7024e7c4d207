package fftstream

import (
	"testing"
	"time"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/statebus"
	"github.com/stretchr/testify/assert"
)

func newTestStream() (*Stream, *statebus.Bus) {
	bus := statebus.New(nil)
	arb := arbiter.New(nil)
	cfg := config.Default()
	status := func() statebus.Status { return bus.GetState().Status }
	return New(arb, bus, cfg, nil, status), bus
}

func TestSubscribeUnsubscribeAccounting(t *testing.T) {
	s, _ := newTestStream()
	assert.Equal(t, 0, s.SubscriberCount())

	id1, _ := s.Subscribe(137500000)
	assert.Equal(t, 1, s.SubscriberCount())

	id2, _ := s.Subscribe(137500000)
	assert.Equal(t, 2, s.SubscriberCount())

	s.Unsubscribe(id1)
	assert.Equal(t, 1, s.SubscriberCount())

	s.Unsubscribe(id2)
	assert.Equal(t, 0, s.SubscriberCount())
}

// TestSubscribePolicyBlocksDuringCapture is P5: fft_subscribe received while
// status is capturing/decoding must never call the SDR start routine.
func TestSubscribePolicyBlocksDuringCapture(t *testing.T) {
	s, bus := newTestStream()
	bus.SetStatus(statebus.StatusCapturing)

	s.Subscribe(137500000)

	time.Sleep(debounceDelay + 200*time.Millisecond)
	assert.False(t, s.Running())
}

func TestNotchLifecycle(t *testing.T) {
	s, _ := newTestStream()
	n := s.AddNotch(137600000, 5000)
	assert.True(t, n.Enabled)
	assert.Len(t, s.GetNotches(), 1)

	ok := s.SetNotchEnabled(n.ID, false)
	assert.True(t, ok)
	assert.False(t, s.GetNotches()[0].Enabled)

	ok = s.RemoveNotch(n.ID)
	assert.True(t, ok)
	assert.Empty(t, s.GetNotches())
}

func TestClearNotches(t *testing.T) {
	s, _ := newTestStream()
	s.AddNotch(1, 1)
	s.AddNotch(2, 2)
	s.ClearNotches()
	assert.Empty(t, s.GetNotches())
}

func TestGetLatestFFTDataNilWhenUnstarted(t *testing.T) {
	s, _ := newTestStream()
	assert.Nil(t, s.GetLatestFFTData())
}
