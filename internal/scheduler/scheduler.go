// Package scheduler orchestrates the predict-wait-capture loop that drives
// the Night Watch daemon. It continuously computes upcoming passes, waits
// for each AOS (opportunistically dwelling for SSTV in the idle gap),
// records the pass, dispatches the correct decoder for the signal kind, and
// persists the result before cycling back to idle.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/fftstream"
	"github.com/milesburton/night-watch/internal/predict"
	"github.com/milesburton/night-watch/internal/recorder"
	"github.com/milesburton/night-watch/internal/satellite"
	"github.com/milesburton/night-watch/internal/sstvdecoder"
	"github.com/milesburton/night-watch/internal/sstvscanner"
	"github.com/milesburton/night-watch/internal/statebus"
	"github.com/milesburton/night-watch/internal/store"
)

// signalCheckBandwidthHz bounds the pre-capture signal verification band,
// matching the SstvScanner's dwell bandwidth.
const signalCheckBandwidthHz = 5000

// signalCheckTimeout bounds how long the pre-capture signal check waits for
// a spectrum sample before giving up.
const signalCheckTimeout = 3 * time.Second

// PassInfo mirrors the app layer's view of the currently scheduled pass, for
// callback typing.
type PassInfo struct {
	Satellite string  `json:"satellite"`
	NoradID   int     `json:"norad_id"`
	FreqHz    int     `json:"freq_hz"`
	AOS       string  `json:"aos"`
	LOS       string  `json:"los"`
	MaxElev   float64 `json:"max_elev"`
	Stage     string  `json:"stage"`
}

// Command represents an external command sent to the scheduler via its
// Commands channel. The Reply channel receives exactly one result.
type Command struct {
	Type    string
	Payload json.RawMessage
	Reply   chan<- CommandResult
}

// CommandResult is the response sent back through a Command's Reply channel.
type CommandResult struct {
	OK                bool   `json:"ok"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	SatellitesUpdated int    `json:"satellites_updated,omitempty"`
}

// Runner owns the main scheduling loop, coordinating the predictor, the
// arbiter-leased Recorder/FftStream/SstvScanner, and result persistence
// through each satellite pass.
type Runner struct {
	Bus *statebus.Bus
	Arb *arbiter.Arbiter
	Cfg config.Config
	Log *log.Logger

	// Commands receives external commands from HTTP handlers.
	// The scheduler checks this channel during wait periods.
	Commands chan Command

	predictor *predict.Predictor
	rec       *recorder.Recorder
	fft       *fftstream.Stream
	scanner   *sstvscanner.Scanner
	store     *store.Store

	// Pause state.
	paused atomic.Bool

	// Cancel support: when a capture is active, captureCancel can abort it.
	captureMu     sync.Mutex
	captureCancel context.CancelFunc

	// Callbacks into the app layer.
	passCallback    func(*PassInfo)
	captureCallback func(satellite string, bytesWritten int64)
}

// New creates a scheduler with its own predictor, recorder, FftStream, and
// SstvScanner, all sharing the given arbiter and bus. simulate disables real
// subprocess capture (a synthetic tone is recorded instead), for testing the
// pipeline without SDR hardware attached.
func New(bus *statebus.Bus, arb *arbiter.Arbiter, cfg config.Config, logger *log.Logger, st *store.Store, simulate bool) *Runner {
	r := &Runner{
		Bus:       bus,
		Arb:       arb,
		Cfg:       cfg,
		Log:       logger,
		Commands:  make(chan Command, 4),
		predictor: predict.NewPredictor(bus, cfg, logger),
		rec:       recorder.New(arb, bus, cfg, logger, simulate),
		store:     st,
	}
	r.fft = fftstream.New(arb, bus, cfg, logger, func() statebus.Status {
		return r.Bus.GetState().Status
	})
	r.scanner = sstvscanner.New(r.fft, bus, cfg, logger, r.captureManualSSTV)
	return r
}

// SetPassCallback registers a function called when the current pass changes.
func (r *Runner) SetPassCallback(fn func(*PassInfo)) {
	r.passCallback = fn
}

// SetCaptureCallback registers a function called when a capture completes.
func (r *Runner) SetCaptureCallback(fn func(string, int64)) {
	r.captureCallback = fn
}

// IsPaused reports whether the scheduler is paused.
func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

// FftStream exposes the shared spectrum stream for the REST/WebSocket layer.
func (r *Runner) FftStream() *fftstream.Stream { return r.fft }

// PredictorCacheInfo exposes the TLE store's cache state for status reporting.
func (r *Runner) PredictorCacheInfo() predict.CacheInfo {
	return r.predictor.CacheInfo()
}

// Run is the main scheduler loop.
//
// Lifecycle, per spec.md §4.6:
//  1. Compute passes (idle state).
//  2. If none, sleep for tle_refresh_hours then recompute.
//  3. Pick next pass, wait_for_pass (opportunistic SSTV scan in the idle gap).
//  4. capture_pass: stop FftStream, verify signal, record, decode, persist.
//  5. Loop back to step 1.
func (r *Runner) Run(ctx context.Context, setState func(string)) {
	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "scheduler",
		"message":   "scheduler started",
	})

	for {
		if ctx.Err() != nil {
			return
		}

		if r.paused.Load() {
			setState("idle")
			r.notifyPass(nil)
			r.Bus.Emit("log", map[string]any{
				"level":     "info",
				"component": "scheduler",
				"message":   "scheduler paused, waiting for resume",
			})
			if r.sleepOrCommand(ctx, 24*365*time.Hour, setState) == sleepCancelled {
				return
			}
			continue
		}

		passes, err := r.predictor.ComputePasses()
		if err != nil {
			r.Bus.Emit("log", map[string]any{
				"level":     "error",
				"component": "scheduler",
				"message":   "prediction failed: " + err.Error(),
			})
			if r.sleepOrCommand(ctx, 5*time.Minute, setState) != sleepCompleted && ctx.Err() != nil {
				return
			}
			continue
		}

		now := time.Now().UTC()
		var upcoming []predict.Pass
		for _, p := range passes {
			if p.LOS.After(now) {
				upcoming = append(upcoming, p)
			}
		}

		if len(upcoming) == 0 {
			r.Bus.Emit("log", map[string]any{
				"level":     "info",
				"component": "scheduler",
				"message":   "no upcoming passes, will recompute later",
			})
			refreshDur := time.Duration(r.Cfg.Predict.TLERefreshHours) * time.Hour
			if r.sleepOrCommand(ctx, refreshDur, setState) != sleepCompleted && ctx.Err() != nil {
				return
			}
			continue
		}

		for _, pass := range upcoming {
			if ctx.Err() != nil {
				return
			}

			// A long capture may push us past a later pass's LOS; skip it.
			if time.Now().UTC().After(pass.LOS) {
				continue
			}

			if r.paused.Load() {
				break
			}

			r.notifyPass(&PassInfo{
				Satellite: pass.Satellite.Name,
				NoradID:   pass.Satellite.NoradID,
				FreqHz:    pass.Satellite.FreqHz,
				AOS:       pass.AOS.Format(time.RFC3339),
				LOS:       pass.LOS.Format(time.RFC3339),
				MaxElev:   pass.MaxElev,
				Stage:     "waiting",
			})

			r.Bus.Emit("pass_scheduled", map[string]any{
				"satellite":  pass.Satellite.Name,
				"norad_id":   pass.Satellite.NoradID,
				"freq_hz":    pass.Satellite.FreqHz,
				"aos":        pass.AOS.Format(time.RFC3339),
				"los":        pass.LOS.Format(time.RFC3339),
				"max_elev":   pass.MaxElev,
				"duration_s": int(pass.Duration.Seconds()),
			})

			if !r.waitForPass(ctx, pass, setState) {
				if ctx.Err() != nil {
					return
				}
				break
			}

			r.notifyPass(&PassInfo{
				Satellite: pass.Satellite.Name,
				NoradID:   pass.Satellite.NoradID,
				FreqHz:    pass.Satellite.FreqHz,
				AOS:       pass.AOS.Format(time.RFC3339),
				LOS:       pass.LOS.Format(time.RFC3339),
				MaxElev:   pass.MaxElev,
				Stage:     "recording",
			})

			result := r.capturePass(ctx, pass.Satellite, pass.AOS, pass.LOS, pass.MaxElev)

			if r.captureCallback != nil && result.RecordingPath != "" {
				if size, statErr := captureFileSize(result.RecordingPath); statErr == nil {
					r.captureCallback(pass.Satellite.Name, size)
				}
			}

			r.notifyPass(nil)
			setState("idle")
		}
	}
}

// waitForPass implements spec.md §4.6's wait_for_pass: if the idle gap
// before AOS is large enough and ground-scan is enabled, the SstvScanner
// dwells opportunistically (bounded by aos - now - safety_margin); either
// way the call yields until pre_pass_lead before AOS. Returns false if
// interrupted by context cancellation or a command.
func (r *Runner) waitForPass(ctx context.Context, pass predict.Pass, setState func(string)) bool {
	now := time.Now().UTC()
	if pass.AOS.After(now) {
		setState("waiting")

		idleGap := pass.AOS.Sub(now)
		idleThreshold := time.Duration(r.Cfg.Scan.IdleThresholdSec) * time.Second
		safetyMargin := time.Duration(r.Cfg.Scan.SafetyMarginSec) * time.Second
		prePassLead := time.Duration(r.Cfg.Scan.PrePassLeadSec) * time.Second

		var scanCtx context.Context
		var scanCancel context.CancelFunc
		scanStarted := false
		if r.Cfg.Scan.Enabled && idleGap >= idleThreshold && !r.scanner.Running() {
			scanCtx, scanCancel = context.WithTimeout(ctx, idleGap-safetyMargin)
			go r.scanner.Run(scanCtx)
			scanStarted = true
		}

		for {
			remaining := pass.AOS.Sub(time.Now().UTC())
			if remaining <= prePassLead {
				break
			}
			r.Bus.Emit("progress", map[string]any{
				"stage":   "waiting",
				"percent": 0,
				"detail":  fmt.Sprintf("AOS in %s for %s", remaining.Truncate(time.Second), pass.Satellite.Name),
			})

			sleepDur := 30 * time.Second
			if waitUntilLead := remaining - prePassLead; waitUntilLead < sleepDur {
				sleepDur = waitUntilLead
			}
			if sleepDur <= 0 {
				break
			}
			result := r.sleepOrCommand(ctx, sleepDur, setState)
			if result == sleepCancelled || result == sleepInterrupted {
				if scanStarted {
					scanCancel()
					r.scanner.Stop()
				}
				return false
			}
		}

		if scanStarted {
			r.scanner.Stop()
			scanCancel()
		}
	}

	return true
}

// capturePass implements spec.md §4.6's capture_pass: stop FftStream,
// verify signal, record, decode, persist, and broadcast. Never returns an
// error directly; failures are reflected in the returned CaptureResult.
func (r *Runner) capturePass(ctx context.Context, sat satellite.Satellite, aos, los time.Time, maxElev float64) store.CaptureResult {
	start := time.Now().UTC()
	result := store.CaptureResult{
		Satellite: sat.Name,
		NoradID:   sat.NoradID,
		StartTime: start,
	}

	r.fft.Stop()
	select {
	case <-time.After(arbiter.Cooldown):
	case <-ctx.Done():
		result.Error = "cancelled"
		result.EndTime = time.Now().UTC()
		return result
	}

	if !r.Cfg.SDR.SkipSignalCheck {
		peak, ok := r.checkSignal(ctx, sat.FreqHz)
		if !ok {
			result.Success = false
			result.Error = "signal_too_weak"
			result.PeakSignal = peak
			result.EndTime = time.Now().UTC()
			r.Bus.Emit("log", map[string]any{
				"level":     "warn",
				"component": "scheduler",
				"message":   fmt.Sprintf("signal too weak for %s (peak %.1f dB)", sat.Name, peak),
			})
			return result
		}
		result.PeakSignal = peak
	}

	r.Bus.StartPass(statebus.PassSummary{
		Satellite: sat.Name,
		NoradID:   sat.NoradID,
		FreqHz:    sat.FreqHz,
		AOS:       aos,
		LOS:       los,
		MaxElev:   maxElev,
	})

	duration := los.Sub(aos)
	if duration <= 0 {
		duration = time.Second
	}

	captureCtx, cancel := context.WithCancel(ctx)
	r.captureMu.Lock()
	r.captureCancel = cancel
	r.captureMu.Unlock()

	outPath, err := r.rec.RecordPass(captureCtx, sat, duration, func(elapsed, total time.Duration) {
		percent := 0
		if total > 0 {
			percent = int(100 * elapsed / total)
		}
		r.Bus.UpdateProgress(percent, elapsed, total)
	})
	cancel()

	r.captureMu.Lock()
	r.captureCancel = nil
	r.captureMu.Unlock()

	if err != nil {
		result.Success = false
		result.Error = err.Error()
		result.EndTime = time.Now().UTC()
		r.Bus.CompletePass(map[string]any{
			"satellite": sat.Name,
			"success":   false,
			"error":     err.Error(),
		})
		return result
	}

	result.RecordingPath = outPath
	r.Bus.SetStatus(statebus.StatusDecoding)

	images, decodeErr := r.decode(sat, outPath, start)
	result.ImagePaths = images
	result.Success = true
	if decodeErr != nil {
		result.Error = decodeErr.Error()
	}
	result.EndTime = time.Now().UTC()

	if saveErr := r.store.Save(result); saveErr != nil && r.Log != nil {
		r.Log.Printf("scheduler: failed to persist capture result: %v", saveErr)
	}

	r.Bus.CompletePass(map[string]any{
		"satellite":   sat.Name,
		"success":     result.Success,
		"image_count": len(result.ImagePaths),
		"recording":   result.RecordingPath,
	})

	return result
}

// decode dispatches to the correct decoder for the signal kind. SSTV
// recordings are decoded in-process via sstvdecoder; LRPT baseband is
// handed to an external decoder program (out of scope per spec.md §1: "the
// LRPT demodulator... treat as an external program invoked on a recorded IQ
// file"). A decode failure never fails the capture: the recording is
// retained and an empty image list is returned (decode_failed).
func (r *Runner) decode(sat satellite.Satellite, wavPath string, start time.Time) ([]string, error) {
	switch sat.Kind {
	case satellite.KindSSTV:
		return r.decodeSSTV(sat, wavPath, start)
	case satellite.KindLRPT:
		return r.decodeLRPT(sat, wavPath, start)
	default:
		return nil, fmt.Errorf("unknown satellite kind: %s", sat.Kind)
	}
}

func (r *Runner) decodeSSTV(sat satellite.Satellite, wavPath string, start time.Time) ([]string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := sstvdecoder.Decode(f)
	if err != nil {
		r.Bus.Emit("log", map[string]any{
			"level":     "warn",
			"component": "sstvdecoder",
			"message":   fmt.Sprintf("decode failed for %s: %v", sat.Name, err),
		})
		return nil, err
	}

	imgPath := filepath.Join(r.Cfg.Data.Images, imageFilename(sat, start))
	if err := os.WriteFile(imgPath, res.PNG, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "sstvdecoder",
		"message":   fmt.Sprintf("decoded %s as %s, verdict=%s", sat.Name, res.Mode, res.Quality.Verdict),
	})

	return []string{imgPath}, nil
}

func (r *Runner) decodeLRPT(sat satellite.Satellite, iqPath string, start time.Time) ([]string, error) {
	outPrefix := filepath.Join(r.Cfg.Data.Images, imageFilename(sat, start))
	cmd := exec.Command("medet", iqPath, outPrefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		r.Bus.Emit("log", map[string]any{
			"level":     "warn",
			"component": "lrpt_decoder",
			"message":   fmt.Sprintf("external LRPT decoder unavailable or failed for %s: %v (%s)", sat.Name, err, string(out)),
		})
		return nil, err
	}

	matches, _ := filepath.Glob(outPrefix + "*.png")
	return matches, nil
}

func imageFilename(sat satellite.Satellite, start time.Time) string {
	return fmt.Sprintf("%s_%s", sat.Name, start.UTC().Format("20060102T150405Z"))
}

// checkSignal briefly starts the FftStream at freqHz and samples peak power
// against the configured threshold, per spec.md §4.6's pre-capture signal
// verification. Returns the observed peak and whether it cleared threshold.
func (r *Runner) checkSignal(ctx context.Context, freqHz int) (float64, bool) {
	params := fftstream.Params{
		CenterHz:     freqHz,
		SpanHz:       r.Cfg.FFT.SpanHz,
		Size:         r.Cfg.FFT.Size,
		Gain:         r.Cfg.FFT.Gain,
		UpdateRateHz: r.Cfg.FFT.UpdateRateHz,
	}
	if !r.fft.Start(params) {
		return -200, false
	}
	defer r.fft.Stop()

	deadline := time.NewTimer(signalCheckTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var bestPeak float32 = -200
	for {
		select {
		case <-ctx.Done():
			return float64(bestPeak), false
		case <-deadline.C:
			return float64(bestPeak), false
		case <-ticker.C:
			if slice := r.fft.GetLatestFFTData(); slice != nil {
				peak := fftstream.PeakPower(slice.Bins, slice.CenterHz, slice.SpanHz, freqHz, signalCheckBandwidthHz)
				if peak > bestPeak {
					bestPeak = peak
				}
				if peak > float32(r.Cfg.SDR.MinSignalStrength) {
					return float64(peak), true
				}
			}
		}
	}
}

// TriggerManualSSTV kicks off an on-demand SSTV capture at freqHz in the
// background and returns immediately, for the REST /api/sstv/capture
// handler. The background context is bounded to duration plus a fixed
// grace period so a stuck capture cannot run forever after the request
// that started it has long since returned.
func (r *Runner) TriggerManualSSTV(freqHz int, duration time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), duration+30*time.Second)
	go func() {
		defer cancel()
		if _, err := r.captureManualSSTV(ctx, freqHz, duration); err != nil {
			r.Bus.Emit("log", map[string]any{
				"level":     "warn",
				"component": "scheduler",
				"message":   fmt.Sprintf("manual sstv capture at %d Hz failed: %v", freqHz, err),
			})
		}
	}()
}

// captureManualSSTV is the SstvScanner's CaptureFunc: it records at freqHz
// for duration using a virtual manual-capture satellite entry, then decodes
// and persists the result exactly as a scheduled pass would.
func (r *Runner) captureManualSSTV(ctx context.Context, freqHz int, duration time.Duration) (string, error) {
	sat := sstvscanner.ManualSatellite(freqHz)
	now := time.Now().UTC()
	result := r.capturePass(ctx, sat, now, now.Add(duration), 90)
	if !result.Success {
		return "", fmt.Errorf("%s", result.Error)
	}
	return result.RecordingPath, nil
}

// notifyPass calls the pass callback if set.
func (r *Runner) notifyPass(info *PassInfo) {
	if r.passCallback != nil {
		r.passCallback(info)
	}
}

// sleepResult indicates what ended a sleep period.
type sleepResult int

const (
	sleepCompleted   sleepResult = iota // timer expired normally
	sleepCancelled                      // context was cancelled
	sleepInterrupted                    // a command was received and handled
)

// sleepOrCommand blocks for duration d, until ctx is cancelled, or until a
// command arrives on r.Commands. Commands are handled inline. Returns what
// ended the sleep.
func (r *Runner) sleepOrCommand(ctx context.Context, d time.Duration, setState func(string)) sleepResult {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return sleepCancelled
	case <-t.C:
		return sleepCompleted
	case cmd := <-r.Commands:
		r.handleCommand(ctx, cmd, setState)
		return sleepInterrupted
	}
}

// handleCommand dispatches an incoming command to the appropriate handler.
func (r *Runner) handleCommand(ctx context.Context, cmd Command, setState func(string)) {
	switch cmd.Type {
	case "trigger":
		r.handleTriggerCommand(ctx, cmd, setState)
	case "tle_refresh":
		r.handleTLERefreshCommand(cmd)
	case "pause":
		r.handlePauseCommand(cmd)
	case "resume":
		r.handleResumeCommand(cmd)
	case "skip":
		r.handleSkipCommand(cmd)
	case "cancel":
		r.handleCancelCommand(cmd)
	default:
		cmd.Reply <- CommandResult{OK: false, Error: "unknown command: " + cmd.Type}
	}
}

// handleTriggerCommand starts an immediate capture for the requested satellite.
func (r *Runner) handleTriggerCommand(ctx context.Context, cmd Command, setState func(string)) {
	var payload struct {
		NoradID         int `json:"norad_id"`
		DurationSeconds int `json:"duration_seconds"`
	}
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		cmd.Reply <- CommandResult{OK: false, Error: "invalid payload: " + err.Error()}
		return
	}

	sat := satellite.ByNoradID(payload.NoradID)
	if sat == nil {
		cmd.Reply <- CommandResult{OK: false, Error: fmt.Sprintf("unknown NORAD ID: %d", payload.NoradID)}
		return
	}

	dur := time.Duration(payload.DurationSeconds) * time.Second
	now := time.Now().UTC()

	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "scheduler",
		"message":   fmt.Sprintf("manual trigger: capturing %s for %s", sat.Name, dur.Truncate(time.Second)),
	})

	// Reply immediately so the HTTP handler is not blocked during capture.
	cmd.Reply <- CommandResult{
		OK:      true,
		Message: fmt.Sprintf("capture triggered for %s (%s)", sat.Name, dur.Truncate(time.Second)),
	}

	result := r.capturePass(ctx, *sat, now, now.Add(dur), 90)
	if !result.Success {
		r.Bus.Emit("log", map[string]any{
			"level":     "error",
			"component": "scheduler",
			"message":   "triggered capture failed: " + result.Error,
		})
	} else if r.captureCallback != nil && result.RecordingPath != "" {
		if size, statErr := captureFileSize(result.RecordingPath); statErr == nil {
			r.captureCallback(sat.Name, size)
		}
	}

	setState("idle")
}

// handleTLERefreshCommand forces an immediate TLE data refresh.
func (r *Runner) handleTLERefreshCommand(cmd Command) {
	n, err := r.predictor.ForceRefreshTLEs()
	if err != nil {
		cmd.Reply <- CommandResult{OK: false, Error: "TLE refresh failed: " + err.Error()}
		return
	}

	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "scheduler",
		"message":   fmt.Sprintf("TLE data refreshed, %d satellites updated", n),
	})

	cmd.Reply <- CommandResult{
		OK:                true,
		Message:           fmt.Sprintf("TLE data refreshed, %d satellites updated", n),
		SatellitesUpdated: n,
	}
}

func (r *Runner) handlePauseCommand(cmd Command) {
	if r.paused.Load() {
		cmd.Reply <- CommandResult{OK: true, Message: "scheduler already paused"}
		return
	}
	r.paused.Store(true)
	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "scheduler",
		"message":   "scheduler paused by user",
	})
	cmd.Reply <- CommandResult{OK: true, Message: "scheduler paused"}
}

func (r *Runner) handleResumeCommand(cmd Command) {
	if !r.paused.Load() {
		cmd.Reply <- CommandResult{OK: true, Message: "scheduler already running"}
		return
	}
	r.paused.Store(false)
	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "scheduler",
		"message":   "scheduler resumed by user",
	})
	cmd.Reply <- CommandResult{OK: true, Message: "scheduler resumed"}
}

func (r *Runner) handleSkipCommand(cmd Command) {
	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "scheduler",
		"message":   "skipping current pass by user request",
	})
	r.notifyPass(nil)
	cmd.Reply <- CommandResult{OK: true, Message: "pass skipped, recomputing schedule"}
}

func (r *Runner) handleCancelCommand(cmd Command) {
	r.captureMu.Lock()
	cancel := r.captureCancel
	r.captureMu.Unlock()

	if cancel == nil {
		cmd.Reply <- CommandResult{OK: false, Error: "no capture in progress"}
		return
	}

	cancel()
	r.Bus.Emit("log", map[string]any{
		"level":     "info",
		"component": "scheduler",
		"message":   "capture cancelled by user",
	})
	cmd.Reply <- CommandResult{OK: true, Message: "capture cancelled"}
}

// captureFileSize returns the size of a capture file.
func captureFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
