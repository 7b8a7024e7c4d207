package recorder

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/satellite"
	"github.com/milesburton/night-watch/internal/statebus"
)

func TestRecordPassSimulateWritesValidWAV(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Recordings = t.TempDir()

	bus := statebus.New(nil)
	arb := arbiter.New(nil)
	r := New(arb, bus, cfg, nil, true)

	sat := *satellite.ByName("ISS")

	var lastElapsed, lastTotal time.Duration
	progressCalls := 0
	path, err := r.RecordPass(context.Background(), sat, 2*time.Second, func(elapsed, total time.Duration) {
		progressCalls++
		lastElapsed, lastTotal = elapsed, total
	})
	require.NoError(t, err)

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(44)) // header + some audio data

	assert.Equal(t, arbiter.StateFree, arb.State())
	assert.Equal(t, 2*time.Second, lastTotal)
	_ = lastElapsed
	assert.GreaterOrEqual(t, progressCalls, 1)
}

func TestRecordPassCancelledByContextStopsEarly(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Recordings = t.TempDir()

	bus := statebus.New(nil)
	arb := arbiter.New(nil)
	r := New(arb, bus, cfg, nil, true)

	sat := *satellite.ByName("METEOR-M2")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.RecordPass(ctx, sat, 30*time.Second, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
