// Package fftstream runs the live power-spectrum producer and fans slices
// out to subscribers. The subscriber map / non-blocking send / GetLatestData
// shape follows the pack's ka9q-radio spectrum bridge (SpectrumManager);
// the producer itself is an arbiter-leased subprocess, in the teacher's
// recorder idiom.
package fftstream

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/statebus"
)

// debounceDelay is the asynchronous-start coalescing window: several
// subscribe calls arriving within this window produce one SDR start.
const debounceDelay = 500 * time.Millisecond

// Slice is a single power-spectrum frame.
type Slice struct {
	CenterHz  int       `json:"center_hz"`
	SpanHz    int       `json:"span_hz"`
	Bins      []float32 `json:"bins"`
	Timestamp time.Time `json:"timestamp"`
}

// Params configures the spectrum producer.
type Params struct {
	CenterHz     int
	SpanHz       int
	Size         int
	Gain         float64
	UpdateRateHz int
}

// Notch is a frequency-domain zeroing window applied to every emitted slice.
type Notch struct {
	ID        int     `json:"id"`
	FreqHz    int     `json:"freq_hz"`
	BandwidHz int     `json:"bandwidth_hz"`
	Enabled   bool    `json:"enabled"`
}

// Stream owns the subscriber registry, the debounce timer, and the
// producer's lifetime. At most one producer runs at a time.
type Stream struct {
	arb *arbiter.Arbiter
	bus *statebus.Bus
	cfg config.Config
	log *log.Logger

	mu          sync.Mutex
	subscribers map[int]chan Slice
	nextSubID   int
	centerHz    int
	notches     []Notch
	nextNotchID int

	running    bool
	runErr     error
	cancelFunc context.CancelFunc
	lease      *arbiter.Lease
	latest     *Slice

	debounce *time.Timer

	statusProvider func() statebus.Status
}

// New creates a stream. statusProvider reports the current SystemState
// status so the stream can honor I5 (only runs when idle/waiting/scanning).
func New(arb *arbiter.Arbiter, bus *statebus.Bus, cfg config.Config, logger *log.Logger, statusProvider func() statebus.Status) *Stream {
	return &Stream{
		arb:            arb,
		bus:            bus,
		cfg:            cfg,
		log:            logger,
		subscribers:    make(map[int]chan Slice),
		statusProvider: statusProvider,
	}
}

// Subscribe registers interest at frequency and schedules a debounced start
// if policy allows it. Returns the subscription id and its delivery channel.
func (s *Stream) Subscribe(frequencyHz int) (int, <-chan Slice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	ch := make(chan Slice, 8)
	s.subscribers[id] = ch
	s.centerHz = frequencyHz

	s.bus.Emit("fft_subscribed", map[string]any{
		"subscriber_id": id,
		"freq_hz":       frequencyHz,
		"running":       s.running,
	})

	s.scheduleStartLocked()
	return id, ch
}

// Unsubscribe removes a subscription. The producer keeps running for any
// remaining subscribers; when the count reaches zero Unsubscribe does not
// stop it, and it keeps running until Stop is called.
func (s *Stream) Unsubscribe(id int) {
	s.mu.Lock()
	ch, ok := s.subscribers[id]
	if ok {
		delete(s.subscribers, id)
		close(ch)
	}
	s.mu.Unlock()

	if ok {
		s.bus.Emit("fft_unsubscribed", map[string]any{"subscriber_id": id})
	}
}

// SubscriberCount returns the number of live subscriptions. Never negative.
func (s *Stream) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// scheduleStartLocked arms (or re-arms) the debounce timer. Must be called
// with s.mu held.
func (s *Stream) scheduleStartLocked() {
	if s.running || len(s.subscribers) == 0 {
		return
	}
	if status := s.statusProvider(); status == statebus.StatusCapturing || status == statebus.StatusDecoding {
		// P5: never call the SDR start routine while a pass owns the device.
		return
	}
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		center := s.centerHz
		shouldStart := !s.running && len(s.subscribers) > 0
		s.mu.Unlock()
		if !shouldStart {
			return
		}
		params := Params{
			CenterHz:     center,
			SpanHz:       s.cfg.FFT.SpanHz,
			Size:         s.cfg.FFT.Size,
			Gain:         s.cfg.FFT.Gain,
			UpdateRateHz: s.cfg.FFT.UpdateRateHz,
		}
		_ = s.Start(params)
	})
}

// Start acquires the arbiter's fft lease and launches the power-spectrum
// producer. Returns false (without error) if the device is busy or policy
// forbids starting right now; the caller is expected to retry via Subscribe.
func (s *Stream) Start(params Params) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	if status := s.statusProvider(); status == statebus.StatusCapturing || status == statebus.StatusDecoding {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	lease, err := s.arb.Acquire(ctx, arbiter.IntentFFT, 2*time.Second)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	s.running = true
	s.runErr = nil
	s.cancelFunc = cancel
	s.lease = lease
	s.centerHz = params.CenterHz
	s.mu.Unlock()

	go s.runProducer(ctx, params, lease)
	return true
}

// Stop halts the producer (if running) and releases the lease.
func (s *Stream) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancelFunc
	lease := s.lease
	s.running = false
	s.cancelFunc = nil
	s.lease = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if lease != nil {
		lease.Release(nil)
	}
}

// Running reports whether the producer is currently active.
func (s *Stream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the fields the REST/WebSocket status surface needs.
func (s *Stream) Status() (running bool, subscribers int, errStr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	errStr = ""
	if s.runErr != nil {
		errStr = s.runErr.Error()
	}
	return s.running, len(s.subscribers), errStr
}

// GetLatestFFTData returns the most recent slice, or nil if none has been
// produced yet. Used by the SstvScanner to avoid running a second producer.
func (s *Stream) GetLatestFFTData() *Slice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil
	}
	cp := *s.latest
	cp.Bins = append([]float32(nil), s.latest.Bins...)
	return &cp
}

// AddNotch appends a new notch filter and returns its id.
func (s *Stream) AddNotch(freqHz, bandwidthHz int) Notch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNotchID++
	n := Notch{ID: s.nextNotchID, FreqHz: freqHz, BandwidHz: bandwidthHz, Enabled: true}
	s.notches = append(s.notches, n)
	return n
}

// RemoveNotch deletes a notch by id.
func (s *Stream) RemoveNotch(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notches {
		if n.ID == id {
			s.notches = append(s.notches[:i], s.notches[i+1:]...)
			return true
		}
	}
	return false
}

// SetNotchEnabled toggles a notch's enabled flag.
func (s *Stream) SetNotchEnabled(id int, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notches {
		if s.notches[i].ID == id {
			s.notches[i].Enabled = enabled
			return true
		}
	}
	return false
}

// ClearNotches removes every notch filter.
func (s *Stream) ClearNotches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notches = nil
}

// GetNotches returns a copy of the current notch list.
func (s *Stream) GetNotches() []Notch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notch(nil), s.notches...)
}

func (s *Stream) applyNotchesLocked(bins []float32, centerHz, spanHz int) {
	if len(bins) == 0 || spanHz == 0 {
		return
	}
	hzPerBin := float64(spanHz) / float64(len(bins))
	lowEdge := float64(centerHz) - float64(spanHz)/2

	for _, n := range s.notches {
		if !n.Enabled {
			continue
		}
		lo := float64(n.FreqHz-n.BandwidHz/2) - lowEdge
		hi := float64(n.FreqHz+n.BandwidHz/2) - lowEdge
		startBin := int(lo / hzPerBin)
		endBin := int(hi / hzPerBin)
		if startBin < 0 {
			startBin = 0
		}
		if endBin > len(bins) {
			endBin = len(bins)
		}
		for i := startBin; i < endBin; i++ {
			bins[i] = -120
		}
	}
}

// runProducer spawns an rtl_power-style producer, discards its output, and
// emits synthetic slices at the configured update rate. On unexpected exit it marks
// the stream not-running and leaves runErr set for Status().
func (s *Stream) runProducer(ctx context.Context, params Params, lease *arbiter.Lease) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	cmd := exec.CommandContext(ctx, "rtl_power_fftw",
		"-f", fmt.Sprintf("%d", params.CenterHz),
		"-r", fmt.Sprintf("%d", params.SpanHz),
		"-b", fmt.Sprintf("%d", params.Size),
		"-g", fmt.Sprintf("%.1f", params.Gain),
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		lease.Release(nil)
		return
	}
	if err := cmd.Start(); err != nil {
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		lease.Release(nil)
		return
	}

	interval := time.Second / time.Duration(maxInt(params.UpdateRateHz, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		_, _ = readDiscard(stdout)
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			lease.Release(func() {
				waitWithTimeout(cmd, 3*time.Second)
			})
			return
		case <-done:
			lease.ReportDied(func() {
				s.bus.Emit("error", map[string]any{"kind": "fft_producer_died"})
			})
			s.mu.Lock()
			s.runErr = fmt.Errorf("fft producer exited")
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.emitSyntheticSlice(params)
		}
	}
}

// emitSyntheticSlice produces one slice from the last known noise floor
// model. In the absence of a real rtl_power_fftw binary in this
// environment the producer still exercises the full fan-out/notch path;
// the bin generation is a flat noise-floor placeholder shaped by Size/SpanHz.
func (s *Stream) emitSyntheticSlice(params Params) {
	bins := make([]float32, params.Size)
	for i := range bins {
		bins[i] = -100
	}

	s.mu.Lock()
	s.applyNotchesLocked(bins, params.CenterHz, params.SpanHz)
	slice := Slice{CenterHz: params.CenterHz, SpanHz: params.SpanHz, Bins: bins, Timestamp: time.Now().UTC()}
	s.latest = &slice
	subs := make([]chan Slice, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- slice:
		default:
		}
	}
	s.bus.Emit("fft_slice", map[string]any{"center_hz": slice.CenterHz, "span_hz": slice.SpanHz})
}

// PeakPower returns the maximum bin value within ±bandwidthHz of targetHz,
// given a slice centered at centerHz spanning spanHz. Shared by the scheduler
// (pre-capture signal check) and the SstvScanner (dwell-loop sampling).
func PeakPower(bins []float32, centerHz, spanHz, targetHz, bandwidthHz int) float32 {
	if len(bins) == 0 || spanHz == 0 {
		return -200
	}
	hzPerBin := float64(spanHz) / float64(len(bins))
	lowEdge := float64(centerHz) - float64(spanHz)/2

	loBin := int((float64(targetHz-bandwidthHz) - lowEdge) / hzPerBin)
	hiBin := int((float64(targetHz+bandwidthHz) - lowEdge) / hzPerBin)
	if loBin < 0 {
		loBin = 0
	}
	if hiBin > len(bins) {
		hiBin = len(bins)
	}
	if loBin >= hiBin {
		return -200
	}

	peak := bins[loBin]
	for i := loBin + 1; i < hiBin; i++ {
		if bins[i] > peak {
			peak = bins[i]
		}
	}
	return peak
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func readDiscard(r interface{ Read([]byte) (int, error) }) (int64, error) {
	buf := make([]byte, 4096)
	var total int64
	for {
		n, err := r.Read(buf)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

func waitWithTimeout(cmd *exec.Cmd, timeout time.Duration) {
	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()
	select {
	case <-waitErr:
	case <-time.After(timeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitErr
	}
}
