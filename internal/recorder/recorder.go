// Package recorder writes a WAV file of a satellite pass. It composes an
// SDR source process (rtl_fm for FM-demodulated signals, rtl_sdr for raw
// baseband IQ) with an in-process WAV sink, under an arbiter lease so it
// never runs concurrently with the FFT stream or SSTV scanner.
package recorder

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/satellite"
	"github.com/milesburton/night-watch/internal/statebus"
)

// ProgressFunc is called roughly once per second with elapsed/total.
type ProgressFunc func(elapsed, total time.Duration)

// Session is a single in-flight recording. Stop tears down the pipeline
// and releases the arbiter lease.
type Session struct {
	Satellite  satellite.Satellite
	OutputPath string
	StartTime  time.Time

	stop func()
}

// Stop terminates the pipeline (source first, SIGTERM then SIGKILL after
// 3s), then waits for the in-process sink to return, with no time bound on
// that wait, finalizes the WAV header, and releases the arbiter lease last.
func (s *Session) Stop() { s.stop() }

// Recorder runs capture pipelines under the arbiter's record intent.
type Recorder struct {
	Arb      *arbiter.Arbiter
	Bus      *statebus.Bus
	Cfg      config.Config
	Log      *log.Logger
	Simulate bool
}

// New creates a recorder. When simulate is true no subprocess is spawned;
// a synthetic tone is generated instead, which keeps the full pipeline
// (WAV write, header fixup, decoder handoff) testable without hardware.
func New(arb *arbiter.Arbiter, bus *statebus.Bus, cfg config.Config, logger *log.Logger, simulate bool) *Recorder {
	return &Recorder{Arb: arb, Bus: bus, Cfg: cfg, Log: logger, Simulate: simulate}
}

// outputFilename applies the "<slug>_<ISO-8601-utc>.wav" naming policy.
// The slug is the lower-cased name with every character other than a-z and
// 0-9 replaced by '-'.
func outputFilename(sat satellite.Satellite, start time.Time) string {
	slug := make([]rune, 0, len(sat.Name))
	for _, c := range sat.Name {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			slug = append(slug, c)
		case c >= 'A' && c <= 'Z':
			slug = append(slug, c-'A'+'a')
		default:
			slug = append(slug, '-')
		}
	}
	return fmt.Sprintf("%s_%s.wav", string(slug), start.UTC().Format("20060102T150405Z"))
}

// Start acquires the record lease, spawns the source -> sink pipeline, and
// returns immediately with a live Session. The caller drives its own
// lifetime (typically via RecordPass, which blocks for the pass duration).
func (r *Recorder) Start(ctx context.Context, sat satellite.Satellite) (*Session, error) {
	lease, err := r.Arb.Acquire(ctx, arbiter.IntentRecord, 10*time.Second)
	if err != nil {
		return nil, err
	}

	start := time.Now().UTC()
	outPath := filepath.Join(r.Cfg.Data.Recordings, outputFilename(sat, start))

	f, err := os.Create(outPath)
	if err != nil {
		lease.Release(nil)
		return nil, fmt.Errorf("create wav: %w", err)
	}

	numChannels, bitsPerSample := uint16(1), uint16(16)
	if sat.Demod == satellite.DemodIQ {
		numChannels = 2
	}
	if err := writeWAVHeader(f, uint32(sat.SampleRate), numChannels, bitsPerSample, 0); err != nil {
		f.Close()
		lease.Release(nil)
		return nil, fmt.Errorf("write wav header: %w", err)
	}

	pipelineCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	var bytesWritten int64

	go func() {
		defer close(done)
		if r.Simulate {
			bytesWritten = r.simulateCapture(pipelineCtx, f, sat)
		} else {
			bytesWritten, err = r.liveCapture(pipelineCtx, f, sat, lease)
		}
	}()

	sess := &Session{
		Satellite:  sat,
		OutputPath: outPath,
		StartTime:  start,
	}
	sess.stop = func() {
		cancel()
		<-done
		if bytesWritten > 0 {
			if ferr := fixWAVHeader(f); ferr != nil && r.Log != nil {
				r.Log.Printf("recorder: failed to finalize WAV header: %v", ferr)
			}
		}
		f.Close()
		lease.Release(func() {
			// By the time Stop is called the subprocess has already been
			// stopped by the pipeline's own context cancellation (see
			// liveCapture); this closure exists so future producers gain
			// an explicit teardown hook without changing the lease API.
		})
	}
	return sess, nil
}

// RecordPass is the convenience entry point the scheduler calls: start,
// poll progress at 1 Hz, stop at duration (or context cancellation), and
// return the output path.
func (r *Recorder) RecordPass(ctx context.Context, sat satellite.Satellite, duration time.Duration, onProgress ProgressFunc) (string, error) {
	sess, err := r.Start(ctx, sat)
	if err != nil {
		return "", err
	}

	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	start := time.Now()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline.C:
			break loop
		case <-ticker.C:
			if onProgress != nil {
				onProgress(time.Since(start), duration)
			}
		}
	}

	sess.Stop()
	return sess.OutputPath, nil
}

// liveCapture spawns the appropriate SDR source process and streams its
// output into the WAV file, converting raw IQ to s16 stereo when needed.
func (r *Recorder) liveCapture(ctx context.Context, f io.Writer, sat satellite.Satellite, lease *arbiter.Lease) (int64, error) {
	var cmd *exec.Cmd
	switch sat.Demod {
	case satellite.DemodIQ:
		args := buildRtlSdrArgs(r.Cfg.SDR, sat.FreqHz, sat.SampleRate)
		cmd = exec.CommandContext(ctx, "rtl_sdr", args...)
	default:
		args := buildRtlFmArgs(r.Cfg.SDR, sat.FreqHz, sat.SampleRate)
		cmd = exec.CommandContext(ctx, "rtl_fm", args...)
	}
	// On cancellation send SIGTERM; SIGKILL follows if it has not exited
	// within 3s.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 3 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start source: %w", err)
	}

	var written int64
	if sat.Demod == satellite.DemodIQ {
		written = r.streamIQ(ctx, f, stdout, sat)
	} else {
		written = r.streamPCM(ctx, f, stdout, sat)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil && ctx.Err() == nil {
			lease.ReportDied(func() {
				r.Bus.Emit("error", map[string]any{"kind": "producer_died", "satellite": sat.Name})
			})
		}
	case <-time.After(3 * time.Second):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitErr
	}

	return written, nil
}

// streamPCM copies FM-demodulated 16-bit mono PCM straight through.
func (r *Recorder) streamPCM(ctx context.Context, dst io.Writer, src io.Reader, sat satellite.Satellite) int64 {
	buf := make([]byte, 8192)
	var written int64
	lastReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			return written
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)
			if writeErr != nil {
				return written
			}
		}
		if time.Since(lastReport) >= 2*time.Second {
			r.Bus.Emit("progress_detail", map[string]any{"satellite": sat.Name, "bytes": written})
			lastReport = time.Now()
		}
		if readErr != nil {
			return written
		}
	}
}

// streamIQ converts interleaved unsigned 8-bit IQ samples (rtl_sdr's native
// format) to signed 16-bit stereo, centering each sample around zero and
// scaling to full range.
func (r *Recorder) streamIQ(ctx context.Context, dst io.Writer, src io.Reader, sat satellite.Satellite) int64 {
	const chunk = 8192
	in := make([]byte, chunk)
	out := make([]byte, chunk*4) // u8 -> s16: 2x samples become 2x bytes each
	var written int64
	lastReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			return written
		default:
		}

		n, readErr := src.Read(in)
		if n > 0 {
			pairs := n
			for i := 0; i < pairs; i++ {
				v := int16((int(in[i]) - 128) * 256)
				binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
			}
			nw, writeErr := dst.Write(out[:pairs*2])
			written += int64(nw)
			if writeErr != nil {
				return written
			}
		}
		if time.Since(lastReport) >= 2*time.Second {
			r.Bus.Emit("progress_detail", map[string]any{"satellite": sat.Name, "bytes": written})
			lastReport = time.Now()
		}
		if readErr != nil {
			return written
		}
	}
}

// simulateCapture writes a synthetic tone so the full recorder -> decoder
// handoff can be exercised without hardware. FM-kind satellites get a
// 1900 Hz tone (inside SSTV's VIS leader band); IQ-kind satellites get the
// same tone written to both interleaved channels.
func (r *Recorder) simulateCapture(ctx context.Context, f io.Writer, sat satellite.Satellite) int64 {
	const simDuration = 3 * time.Second
	sampleRate := sat.SampleRate
	totalSamples := int(simDuration.Seconds()) * sampleRate

	const chunkSamples = 4096
	channels := 1
	if sat.Demod == satellite.DemodIQ {
		channels = 2
	}
	buf := make([]byte, chunkSamples*2*channels)

	var written int64
	samplesWritten := 0
	freq := 1900.0

	for samplesWritten < totalSamples {
		select {
		case <-ctx.Done():
			return written
		default:
		}

		n := chunkSamples
		if samplesWritten+n > totalSamples {
			n = totalSamples - samplesWritten
		}

		for i := 0; i < n; i++ {
			t := float64(samplesWritten+i) / float64(sampleRate)
			sample := int16(16000.0 * math.Sin(2.0*math.Pi*freq*t))
			for c := 0; c < channels; c++ {
				binary.LittleEndian.PutUint16(buf[(i*channels+c)*2:], uint16(sample))
			}
		}

		nw, err := f.Write(buf[:n*2*channels])
		written += int64(nw)
		samplesWritten += n
		if err != nil {
			return written
		}
	}
	return written
}

func buildRtlFmArgs(sdr config.SDRConfig, freqHz, sampleRate int) []string {
	return []string{
		"-f", fmt.Sprintf("%d", freqHz),
		"-s", fmt.Sprintf("%d", sampleRate),
		"-g", fmt.Sprintf("%.1f", sdr.Gain),
		"-p", fmt.Sprintf("%d", sdr.PPMCorrection),
		"-d", fmt.Sprintf("%d", sdr.DeviceIndex),
		"-E", "dc",
		"-M", "fm",
		"-",
	}
}

func buildRtlSdrArgs(sdr config.SDRConfig, freqHz, sampleRate int) []string {
	return []string{
		"-f", fmt.Sprintf("%d", freqHz),
		"-s", fmt.Sprintf("%d", sampleRate),
		"-g", fmt.Sprintf("%.1f", sdr.Gain),
		"-p", fmt.Sprintf("%d", sdr.PPMCorrection),
		"-d", fmt.Sprintf("%d", sdr.DeviceIndex),
		"-",
	}
}
