package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/statebus"
	"github.com/milesburton/night-watch/internal/store"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.Root = dir
	cfg.Data.Recordings = filepath.Join(dir, "recordings")
	cfg.Data.Images = filepath.Join(dir, "images")
	cfg.Data.Archive = filepath.Join(dir, "archive")
	for _, d := range []string{cfg.Data.Recordings, cfg.Data.Images, cfg.Data.Archive} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	st, err := store.New(filepath.Join(dir, "captures.jsonl"))
	require.NoError(t, err)

	bus := statebus.New(nil)
	arb := arbiter.New(nil)

	return New(bus, arb, cfg, nil, st, true)
}

func TestHandleCommandPauseResume(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()

	reply := make(chan CommandResult, 1)
	r.handleCommand(ctx, Command{Type: "pause", Reply: reply}, func(string) {})
	res := <-reply
	assert.True(t, res.OK)
	assert.True(t, r.IsPaused())

	reply = make(chan CommandResult, 1)
	r.handleCommand(ctx, Command{Type: "pause", Reply: reply}, func(string) {})
	res = <-reply
	assert.True(t, res.OK)
	assert.Contains(t, res.Message, "already paused")

	reply = make(chan CommandResult, 1)
	r.handleCommand(ctx, Command{Type: "resume", Reply: reply}, func(string) {})
	res = <-reply
	assert.True(t, res.OK)
	assert.False(t, r.IsPaused())
}

func TestHandleCommandCancelWithNoCaptureInProgress(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()

	reply := make(chan CommandResult, 1)
	r.handleCommand(ctx, Command{Type: "cancel", Reply: reply}, func(string) {})
	res := <-reply
	assert.False(t, res.OK)
	assert.Equal(t, "no capture in progress", res.Error)
}

func TestHandleCommandUnknownType(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()

	reply := make(chan CommandResult, 1)
	r.handleCommand(ctx, Command{Type: "not-a-command", Reply: reply}, func(string) {})
	res := <-reply
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "unknown command")
}

func TestHandleCommandSkipClearsCurrentPass(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()

	var notified bool
	r.SetPassCallback(func(info *PassInfo) {
		notified = true
		assert.Nil(t, info)
	})

	reply := make(chan CommandResult, 1)
	r.handleCommand(ctx, Command{Type: "skip", Reply: reply}, func(string) {})
	res := <-reply
	assert.True(t, res.OK)
	assert.True(t, notified)
}

func TestHandleCommandTriggerRejectsUnknownNoradID(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()

	reply := make(chan CommandResult, 1)
	r.handleCommand(ctx, Command{
		Type:    "trigger",
		Payload: []byte(`{"norad_id":999999,"duration_seconds":5}`),
		Reply:   reply,
	}, func(string) {})
	res := <-reply
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "unknown NORAD ID")
}
