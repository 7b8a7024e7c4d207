// Package arbiter implements the exclusive SDR resource lock shared by the
// Recorder, FftStream, and SstvScanner. It is the only component that may
// be thought of as "owning" the RTL-SDR device; everything else borrows it
// through a lease.
package arbiter

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Intent identifies why a lease is being requested.
type Intent string

const (
	IntentRecord Intent = "record"
	IntentFFT    Intent = "fft"
)

// State is the arbiter's internal state machine position.
type State string

const (
	StateFree     State = "free"
	StateLeased   State = "leased"
	StateDraining State = "draining"
)

// Cooldown is the empirical USB re-enumeration delay enforced between a
// lease's release and the next successful acquire.
const Cooldown = 1 * time.Second

// Sentinel errors, matching the kinds (not type names) from the error
// handling design: device_busy and producer_gone.
var (
	ErrBusy         = errors.New("device_busy")
	ErrProducerGone = errors.New("producer_gone")
)

// Arbiter guards the single RTL-SDR device handle with a Free -> Leased ->
// Draining -> Free state machine. At most one lease is outstanding.
type Arbiter struct {
	log *log.Logger

	mu            sync.Mutex
	state         State
	current       *Lease
	cooldownUntil time.Time
	waiters       []chan struct{}
}

// New returns an arbiter in the Free state.
func New(logger *log.Logger) *Arbiter {
	return &Arbiter{log: logger, state: StateFree}
}

// State reports the current arbiter state, for health/status reporting.
func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Lease is a scoped claim on the SDR device. The holder calls Release,
// passing a teardown function that stops its own child process; calls after
// the first are no-ops. Release blocks until teardown returns, then starts
// the cooldown window, which the next Acquire waits out.
type Lease struct {
	arb    *Arbiter
	intent Intent

	mu       sync.Mutex
	released bool
	dead     bool
}

// Intent reports why this lease was acquired.
func (l *Lease) Intent() Intent { return l.intent }

// Dead reports whether the arbiter has recorded this lease's producer as
// having exited unexpectedly. Holders should check this before any
// further read/write and treat it as ErrProducerGone.
func (l *Lease) Dead() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dead
}

// Err returns ErrProducerGone if the producer died out from under the
// lease, otherwise nil.
func (l *Lease) Err() error {
	if l.Dead() {
		return ErrProducerGone
	}
	return nil
}

// Acquire blocks up to timeout waiting for the device to become free, then
// grants a lease for the given intent. Returns ErrBusy if the timeout
// elapses while the device remains leased, or ctx.Err() if ctx is
// cancelled first.
func (a *Arbiter) Acquire(ctx context.Context, intent Intent, timeout time.Duration) (*Lease, error) {
	deadline := time.Now().Add(timeout)

	for {
		a.mu.Lock()
		if a.state == StateFree && time.Now().After(a.cooldownUntil) {
			lease := &Lease{arb: a, intent: intent}
			a.state = StateLeased
			a.current = lease
			a.mu.Unlock()
			return lease, nil
		}

		wait := make(chan struct{})
		a.waiters = append(a.waiters, wait)
		a.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrBusy
		}

		timer := time.NewTimer(minDuration(remaining, 50*time.Millisecond))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wait:
			timer.Stop()
		case <-timer.C:
		}

		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// Release runs teardown (expected to SIGTERM the producer, wait up to 3s,
// then SIGKILL and wait for exit), transitions Draining -> Free, and
// enforces the post-teardown USB cooldown. Safe to call more than once;
// only the first call has effect. teardown may be nil if the holder has
// already confirmed the process is gone (e.g. after ReportDied).
func (l *Lease) Release(teardown func()) {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.mu.Unlock()

	a := l.arb
	a.mu.Lock()
	if a.current == l {
		a.state = StateDraining
	}
	a.mu.Unlock()

	if teardown != nil {
		teardown()
	}

	a.mu.Lock()
	if a.current == l {
		a.current = nil
		a.state = StateFree
		a.cooldownUntil = time.Now().Add(Cooldown)
	}
	waiters := a.waiters
	a.waiters = nil
	a.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// ReportDied marks the lease's producer as having exited unexpectedly. The
// arbiter moves to Draining and the caller's next Err() check will report
// producer_gone; the holder is still responsible for calling Release once
// it has finished its own cleanup (per the failure-semantics contract,
// recovery is the holder's responsibility).
func (l *Lease) ReportDied(onProducerDied func()) {
	l.mu.Lock()
	if l.dead {
		l.mu.Unlock()
		return
	}
	l.dead = true
	l.mu.Unlock()

	a := l.arb
	a.mu.Lock()
	if a.current == l {
		a.state = StateDraining
	}
	a.mu.Unlock()

	if onProducerDied != nil {
		onProducerDied()
	}
}

// WithLease acquires a lease for intent, runs fn, and guarantees Release is
// called on every exit path — including a panic inside fn, which is
// recovered just long enough to release the lease and then re-panicked.
func (a *Arbiter) WithLease(ctx context.Context, intent Intent, timeout time.Duration, fn func(*Lease) error) error {
	lease, err := a.Acquire(ctx, intent, timeout)
	if err != nil {
		return err
	}

	// fn is expected to call lease.Release(teardown) itself once it knows
	// how to tear down its own child process; Release is idempotent, so
	// this deferred call is a safety net for panics and early returns.
	defer func() {
		r := recover()
		lease.Release(nil)
		if r != nil {
			panic(r)
		}
	}()

	err = fn(lease)
	return err
}
