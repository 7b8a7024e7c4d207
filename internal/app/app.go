// Package app wires together the HTTP server, WebSocket hub, and the pass
// scheduler. It owns the daemon's lifecycle and exposes the REST/WebSocket
// surface the operator UI and nightwatchctl consume.
package app

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/scheduler"
	"github.com/milesburton/night-watch/internal/statebus"
	"github.com/milesburton/night-watch/internal/store"
	"github.com/milesburton/night-watch/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *log.Logger
	Cfg        config.Config
	ConfigPath string
	Bind       string
	Simulate   bool
}

// logEntry is one ring-buffer line surfaced by GET /api/logs.
type logEntry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// captureStats tracks running totals for GET /api/stats.
type captureStats struct {
	mu            sync.Mutex
	TotalCaptures int            `json:"total_captures"`
	TotalBytes    int64          `json:"total_bytes"`
	CapturesBySat map[string]int `json:"captures_by_satellite"`
	LastCaptureAt time.Time      `json:"last_capture_at"`
}

// App is the top-level daemon process: HTTP server, WebSocket hub, StateBus,
// arbiter, and the scheduler that drives them.
type App struct {
	log    *log.Logger
	bind   string
	server *http.Server

	startedAt time.Time

	cfgMu      sync.Mutex
	cfg        config.Config
	configPath string

	bus       *statebus.Bus
	arb       *arbiter.Arbiter
	store     *store.Store
	scheduler *scheduler.Runner
	wsHub     *ws.Hub

	currentPass  atomic.Value // *scheduler.PassInfo
	captureStats captureStats

	logBufMu sync.Mutex
	logBuf   []logEntry
}

// New constructs an App and its collaborators (StateBus, arbiter, store,
// scheduler). Call Run to start serving.
func New(opts Options) (*App, error) {
	st, err := store.New(filepath.Join(opts.Cfg.Data.Root, "captures.jsonl"))
	if err != nil {
		return nil, err
	}

	bus := statebus.New(opts.Logger)
	arb := arbiter.New(opts.Logger)

	a := &App{
		log:        opts.Logger,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		cfg:        opts.Cfg,
		configPath: opts.ConfigPath,
		bus:        bus,
		arb:        arb,
		store:      st,
	}
	a.captureStats.CapturesBySat = make(map[string]int)

	a.scheduler = scheduler.New(bus, arb, opts.Cfg, opts.Logger, st, opts.Simulate)
	a.scheduler.SetPassCallback(a.onPassChange)
	a.scheduler.SetCaptureCallback(a.onCaptureComplete)

	a.wsHub = ws.NewHub(bus, a.scheduler.FftStream(), opts.Logger)

	return a, nil
}

// Run starts the HTTP server and the scheduler loop. It blocks until the
// context is cancelled or the server returns an error.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" {
		bind = a.getConfig().Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	mux := a.routes()

	a.server = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Printf("listening on http://%s", bind)
	a.logEvent("info", "app", "night watch daemon started")

	go a.relayLogEvents(ctx)
	go a.scheduler.Run(ctx, func(state string) {})

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		_ = a.server.Shutdown(context.Background())
	}()

	return a.server.Serve(ln)
}

func (a *App) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/ws", a.wsHub.Handler())

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/satellites", a.handleSatellites)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/config/gain", a.handleConfigGain)
	mux.HandleFunc("/api/config/profiles", a.handleConfigProfiles)
	mux.HandleFunc("/api/passes", a.handlePasses)
	mux.HandleFunc("/api/next-pass", a.handleNextPass)
	mux.HandleFunc("/api/trigger", a.handleTrigger)
	mux.HandleFunc("/api/tle/refresh", a.handleTLERefresh)
	mux.HandleFunc("/api/tle/info", a.handleTLEInfo)
	mux.HandleFunc("/api/captures", a.handleCaptures)
	mux.HandleFunc("/api/summary", a.handleSummary)
	mux.HandleFunc("/api/images/", a.handleImages)
	mux.HandleFunc("/api/system", a.handleSystem)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/fft/status", a.handleFFTStatus)
	mux.HandleFunc("/api/fft/stop", a.handleFFTStop)
	mux.HandleFunc("/api/fft/notch", a.handleFFTNotch)
	mux.HandleFunc("/api/fft/notch/", a.handleFFTNotchByID)
	mux.HandleFunc("/api/sstv/status", a.handleSSTVStatus)
	mux.HandleFunc("/api/sstv/capture", a.handleSSTVCapture)
	mux.HandleFunc("/api/pause", a.handlePause)
	mux.HandleFunc("/api/resume", a.handleResume)
	mux.HandleFunc("/api/skip", a.handleSkip)
	mux.HandleFunc("/api/cancel", a.handleCancel)
	mux.HandleFunc("/api/reload", a.handleReload)

	return mux
}

// getConfig returns a snapshot of the current configuration.
func (a *App) getConfig() config.Config {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	return a.cfg
}

// onPassChange is the scheduler's PassCallback: it updates the currentPass
// atomic.
func (a *App) onPassChange(info *scheduler.PassInfo) {
	a.currentPass.Store(info)
}

// onCaptureComplete is the scheduler's CaptureCallback: it folds a finished
// capture into the running stats.
func (a *App) onCaptureComplete(satellite string, bytesWritten int64) {
	a.captureStats.mu.Lock()
	a.captureStats.TotalCaptures++
	a.captureStats.TotalBytes += bytesWritten
	a.captureStats.CapturesBySat[satellite]++
	a.captureStats.LastCaptureAt = time.Now().UTC()
	a.captureStats.mu.Unlock()
}

// logEvent emits a log event on the bus; relayLogEvents is responsible for
// folding it (and every other component's log event) into the ring buffer.
func (a *App) logEvent(level, component, message string) {
	a.bus.Emit("log", map[string]any{
		"level":     level,
		"component": component,
		"message":   message,
	})
}

// relayLogEvents subscribes to the bus's "log" events and folds each into
// the bounded ring buffer GET /api/logs serves. This is the single place
// log events become buffer entries, whether they originated from the app,
// the scheduler, predict, or any other bus.Emit("log", ...) caller.
func (a *App) relayLogEvents(ctx context.Context) {
	const ringSize = 500

	sub := a.bus.Subscribe([]string{"log"})
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.Events():
			if !ok {
				return
			}
			var fields struct {
				Level     string `json:"level"`
				Component string `json:"component"`
				Message   string `json:"message"`
				TS        string `json:"ts"`
			}
			if err := json.Unmarshal(raw, &fields); err != nil {
				continue
			}
			ts, err := time.Parse(time.RFC3339Nano, fields.TS)
			if err != nil {
				ts = time.Now().UTC()
			}

			a.logBufMu.Lock()
			a.logBuf = append(a.logBuf, logEntry{
				Time:      ts,
				Level:     fields.Level,
				Component: fields.Component,
				Message:   fields.Message,
			})
			if len(a.logBuf) > ringSize {
				a.logBuf = a.logBuf[len(a.logBuf)-ringSize:]
			}
			a.logBufMu.Unlock()
		}
	}
}
