package arbiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	a := New(nil)
	lease, err := a.Acquire(context.Background(), IntentRecord, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateLeased, a.State())

	lease.Release(nil)
	assert.Equal(t, StateFree, a.State())
}

func TestAcquireBusyTimesOut(t *testing.T) {
	a := New(nil)
	lease, err := a.Acquire(context.Background(), IntentRecord, time.Second)
	require.NoError(t, err)
	defer lease.Release(nil)

	_, err = a.Acquire(context.Background(), IntentFFT, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrBusy)
}

// TestMutualExclusion is P1: at no instant are two leases held simultaneously.
func TestMutualExclusion(t *testing.T) {
	a := New(nil)
	var held int32
	var mu sync.Mutex
	violations := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			lease, err := a.Acquire(ctx, IntentRecord, 2*time.Second)
			if err != nil {
				return
			}
			mu.Lock()
			held++
			if held > 1 {
				violations++
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			held--
			mu.Unlock()
			lease.Release(nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, violations)
}

// TestWithLeasePanicRecovery is P2: after a panicking consumer, the arbiter
// returns to Free within the cooldown window.
func TestWithLeasePanicRecovery(t *testing.T) {
	a := New(nil)

	func() {
		defer func() { _ = recover() }()
		_ = a.WithLease(context.Background(), IntentRecord, time.Second, func(l *Lease) error {
			panic("boom")
		})
	}()

	assert.Eventually(t, func() bool {
		return a.State() == StateFree
	}, Cooldown+500*time.Millisecond, 10*time.Millisecond)
}

func TestWithLeaseNormalReturnReleases(t *testing.T) {
	a := New(nil)
	err := a.WithLease(context.Background(), IntentRecord, time.Second, func(l *Lease) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateFree, a.State())
}

func TestReportDied(t *testing.T) {
	a := New(nil)
	lease, err := a.Acquire(context.Background(), IntentRecord, time.Second)
	require.NoError(t, err)

	called := false
	lease.ReportDied(func() { called = true })

	assert.True(t, called)
	assert.True(t, lease.Dead())
	assert.ErrorIs(t, lease.Err(), ErrProducerGone)

	lease.Release(nil)
	assert.Equal(t, StateFree, a.State())
}
