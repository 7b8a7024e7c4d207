// Package sstvscanner opportunistically dwells on configured SSTV
// frequencies during idle periods, watching the FftStream for carrier
// power above threshold, and hands off to the Recorder on detection. The
// dwell loop's cooperative-cancellation shape (ticker + flag checked each
// iteration, never busy-polling) follows the scheduler's sleepOrCommand /
// waitForPass idiom.
package sstvscanner

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/fftstream"
	"github.com/milesburton/night-watch/internal/satellite"
	"github.com/milesburton/night-watch/internal/statebus"
)

// bandwidthHz is the ± window around the dwell center frequency examined
// for carrier power on each sample.
const bandwidthHz = 5000

// perFrequencyTimeout bounds how long the scanner dwells on one frequency
// before declaring no-detection and moving to the next.
const perFrequencyTimeout = 20 * time.Second

const sampleInterval = 500 * time.Millisecond

// CaptureFunc records audio from freqHz for duration and returns the
// output path. Supplied by the caller (the scheduler passes its
// captureManualSSTV, which records via the recorder) so this package stays
// decoupled from the recorder's concrete type.
type CaptureFunc func(ctx context.Context, freqHz int, duration time.Duration) (string, error)

// Scanner runs the opportunistic dwell loop. Only one scan may be in
// flight; a concurrent Run call is a no-op, matching the singleton
// semantics of the original dwell loop.
type Scanner struct {
	fft     *fftstream.Stream
	bus     *statebus.Bus
	cfg     config.Config
	log     *log.Logger
	capture CaptureFunc

	inFlight atomic.Bool
	stopFlag atomic.Bool
}

// New creates a scanner bound to the given FftStream and capture callback.
func New(fft *fftstream.Stream, bus *statebus.Bus, cfg config.Config, logger *log.Logger, capture CaptureFunc) *Scanner {
	return &Scanner{fft: fft, bus: bus, cfg: cfg, log: logger, capture: capture}
}

// Running reports whether a scan is currently in flight.
func (s *Scanner) Running() bool { return s.inFlight.Load() }

// Stop requests cooperative cancellation; the scanner returns at the next
// poll point. Safe to call when no scan is running.
func (s *Scanner) Stop() { s.stopFlag.Store(true) }

// Run executes one full pass over the configured frequency list. A
// concurrent call while one is already in flight returns immediately
// without starting a second scan — matching "scan_for_sstv returns null".
func (s *Scanner) Run(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	s.stopFlag.Store(false)
	s.bus.SetStatus(statebus.StatusScanning)

	defer func() {
		s.inFlight.Store(false)
		if s.bus.GetState().Status == statebus.StatusScanning {
			s.bus.SetStatus(statebus.StatusIdle)
		}
		s.bus.SetScanningFrequency(nil, "")
	}()

	for _, freqHz := range s.cfg.Scan.FrequenciesHz {
		if s.stopFlag.Load() || ctx.Err() != nil {
			return
		}
		detected := s.dwell(ctx, freqHz)
		if detected {
			s.handleDetection(ctx, freqHz)
			if s.stopFlag.Load() || ctx.Err() != nil {
				return
			}
			s.bus.SetStatus(statebus.StatusScanning)
		}
	}
}

// dwell tunes the FftStream to freqHz and samples peak power in the dwell
// band every 500 ms for up to 20 s, returning true on the first sample
// that strictly exceeds the configured threshold. No offset is applied to
// the threshold: a prior -5 dB fudge produced false positives near the
// noise floor and was removed.
func (s *Scanner) dwell(ctx context.Context, freqHz int) bool {
	label := fmt.Sprintf("%.3f MHz", float64(freqHz)/1e6)
	s.bus.SetScanningFrequency(&freqHz, label)

	subID, ch := s.fft.Subscribe(freqHz)
	defer s.fft.Unsubscribe(subID)

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(perFrequencyTimeout)
	defer deadline.Stop()

	threshold := s.cfg.SDR.MinSignalStrength

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
			if s.stopFlag.Load() {
				return false
			}
			if slice := s.fft.GetLatestFFTData(); slice != nil {
				if fftstream.PeakPower(slice.Bins, slice.CenterHz, slice.SpanHz, freqHz, bandwidthHz) > threshold {
					return true
				}
			}
		case slice, ok := <-ch:
			if !ok {
				continue
			}
			if fftstream.PeakPower(slice.Bins, slice.CenterHz, slice.SpanHz, freqHz, bandwidthHz) > threshold {
				return true
			}
		}
	}
}

// handleDetection stops the FftStream, waits out the USB cooldown, and
// records for 150 s (covers the longest common SSTV mode, PD120).
func (s *Scanner) handleDetection(ctx context.Context, freqHz int) {
	s.fft.Stop()

	select {
	case <-time.After(1 * time.Second):
	case <-ctx.Done():
		return
	}

	const sstvCaptureDuration = 150 * time.Second
	if _, err := s.capture(ctx, freqHz, sstvCaptureDuration); err != nil && s.log != nil {
		s.log.Printf("sstvscanner: capture failed for %d Hz: %v", freqHz, err)
	}
}

// ManualSatellite builds the virtual satellite descriptor for an on-demand
// SSTV capture at freqHz, used when invoking CaptureFunc implementations
// backed by the recorder package.
func ManualSatellite(freqHz int) satellite.Satellite {
	return satellite.Manual(freqHz)
}
