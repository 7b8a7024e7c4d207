package statebus

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/milesburton/night-watch/internal/telemetry"
)

// queueDepth bounds each subscriber's outbound queue. A subscriber that
// cannot keep up is dropped rather than allowed to stall the others —
// this is the per-client bounded-queue shape, not a single shared
// broadcast channel that silently drops for everyone.
const queueDepth = 64

// Subscription is a single consumer's view of the bus: a channel of
// already-marshaled JSON event envelopes plus a Close to unregister.
type Subscription struct {
	id     uint64
	bus    *Bus
	events chan []byte
	filter map[string]bool
}

// Events returns the channel events are delivered on. The channel is
// closed when the subscription is dropped, either explicitly via Close
// or by the bus after a slow_consumer disconnect.
func (s *Subscription) Events() <-chan []byte { return s.events }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// Bus serializes every mutation of SystemState behind a single mutex and
// fans out the resulting event to every subscriber's bounded queue.
type Bus struct {
	log *log.Logger

	mu     sync.Mutex
	state  SystemState
	subs   map[uint64]*Subscription
	nextID uint64
}

// New creates a bus in the idle state.
func New(logger *log.Logger) *Bus {
	return &Bus{
		log: logger,
		state: SystemState{
			Status:     StatusIdle,
			LastUpdate: time.Now().UTC(),
		},
		subs: make(map[uint64]*Subscription),
	}
}

// GetState returns an immutable snapshot of the current state.
func (b *Bus) GetState() SystemState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.clone()
}

// Subscribe registers a new consumer. filterTypes, if non-empty, limits
// delivery to only those event type names; an empty filter receives
// everything.
func (b *Bus) Subscribe(filterTypes []string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		bus:    b,
		events: make(chan []byte, queueDepth),
	}
	if len(filterTypes) > 0 {
		sub.filter = make(map[string]bool, len(filterTypes))
		for _, t := range filterTypes {
			sub.filter[t] = true
		}
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.events)
	}
}

// SubscriberCount reports how many consumers are currently attached.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// emitLocked marshals an event and fans it out. Must be called with b.mu held.
func (b *Bus) emitLocked(eventType string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["type"] = eventType
	fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(fields)
	if err != nil {
		return
	}

	var slow []uint64
	for id, sub := range b.subs {
		if sub.filter != nil && !sub.filter[eventType] {
			continue
		}
		select {
		case sub.events <- payload:
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.events)
			if b.log != nil {
				b.log.Printf("statebus: dropping subscriber %d: slow_consumer", id)
			}
		}
	}
}

// Emit publishes an arbitrary event without touching SystemState. Used by
// components that have their own event vocabulary (fft_slice, progress
// detail lines, log relays) but still want the bus's ordering and
// slow-consumer guarantees.
func (b *Bus) Emit(eventType string, fields map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitLocked(eventType, fields)
}

// SetStatus updates the status field and emits status_change.
func (b *Bus) SetStatus(status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Status == status {
		return
	}
	from := b.state.Status
	b.state.Status = status
	b.state.LastUpdate = time.Now().UTC()
	b.emitLocked(string(telemetry.EventStatusChange), map[string]any{
		"from": string(from),
		"to":   string(status),
	})
}

// SetSDRConnected updates the SDR connectivity flag.
func (b *Bus) SetSDRConnected(connected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.SDRConnected = connected
	b.state.LastUpdate = time.Now().UTC()
}

// SetUpcomingPasses replaces the upcoming-passes list, enforcing I3: strictly
// AOS-sorted and no pass whose LOS has already passed.
func (b *Bus) SetUpcomingPasses(passes []PassSummary) {
	now := time.Now().UTC()
	filtered := make([]PassSummary, 0, len(passes))
	for _, p := range passes {
		if p.LOS.Before(now) {
			continue
		}
		filtered = append(filtered, p)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].AOS.Before(filtered[j].AOS) })

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.UpcomingPasses = filtered
	if len(filtered) > 0 {
		np := filtered[0]
		b.state.NextPass = &np
	} else {
		b.state.NextPass = nil
	}
	b.state.LastUpdate = time.Now().UTC()
}

// StartPass transitions to capturing with the given pass as current, and
// emits pass_start.
func (b *Bus) StartPass(pass PassSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Status = StatusCapturing
	b.state.CurrentPass = &pass
	b.state.LastUpdate = time.Now().UTC()
	b.emitLocked(string(telemetry.EventPassStart), map[string]any{
		"satellite": pass.Satellite,
		"norad_id":  pass.NoradID,
		"freq_hz":   pass.FreqHz,
		"aos":       pass.AOS.Format(time.RFC3339),
		"los":       pass.LOS.Format(time.RFC3339),
		"max_elev":  pass.MaxElev,
	})
}

// CompletePass clears the current pass and emits pass_complete with the
// supplied result fields (satellite, success, error, image count, ...).
func (b *Bus) CompletePass(fields map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.CurrentPass = nil
	b.state.Progress = nil
	b.state.LastUpdate = time.Now().UTC()
	b.emitLocked(string(telemetry.EventPassComplete), fields)
}

// UpdateProgress sets the progress snapshot and emits progress.
func (b *Bus) UpdateProgress(percent int, elapsed, total time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Progress = &Progress{Percent: percent, Elapsed: elapsed, Total: total}
	b.state.LastUpdate = time.Now().UTC()
	b.emitLocked(string(telemetry.EventProgress), map[string]any{
		"percent":      percent,
		"elapsed_s":    int(elapsed.Seconds()),
		"total_s":      int(total.Seconds()),
	})
}

// SetScanningFrequency records the frequency the SstvScanner is currently
// dwelling on (nil to clear) and emits scanning_frequency.
func (b *Bus) SetScanningFrequency(freqHz *int, label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.ScanningFrequency = freqHz
	b.state.ScanningLabel = label
	b.state.LastUpdate = time.Now().UTC()
	fields := map[string]any{"label": label}
	if freqHz != nil {
		fields["freq_hz"] = *freqHz
	}
	b.emitLocked(string(telemetry.EventScanningFreq), fields)
}
