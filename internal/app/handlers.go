package app

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/predict"
	"github.com/milesburton/night-watch/internal/satellite"
	"github.com/milesburton/night-watch/internal/scheduler"
)

// ---------------------------------------------------------------------------
// Core status surface
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleStatus serves GET /api/status: the SystemState snapshot plus the
// process-level fields the operator UI's header bar needs.
func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	state := a.bus.GetState()

	resp := map[string]any{
		"state":          state,
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"paused":         a.scheduler.IsPaused(),
	}

	cfg := a.getConfig()
	if du := diskUsage(cfg.Data.Root); du != nil {
		resp["disk"] = du
	}
	if pi, ok := a.currentPass.Load().(*scheduler.PassInfo); ok && pi != nil {
		resp["current_pass"] = pi
	}

	writeJSON(w, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) handleSatellites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"satellites": satellite.Catalog})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.getConfig())
}

// handleConfigGain serves POST /api/config/gain, validating gain in [0, 49]
// per spec and applying it live to both the app's config snapshot and the
// scheduler's (shared by the Recorder and FftStream on their next start).
func (a *App) handleConfigGain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Gain float64 `json:"gain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Gain < 0 || req.Gain > 49 {
		jsonError(w, "gain must be between 0 and 49", http.StatusBadRequest)
		return
	}

	a.cfgMu.Lock()
	a.cfg.SDR.Gain = req.Gain
	a.cfgMu.Unlock()
	a.scheduler.Cfg.SDR.Gain = req.Gain

	a.logEvent("info", "app", "SDR gain set to "+strconv.FormatFloat(req.Gain, 'f', 1, 64))
	writeJSON(w, map[string]any{"ok": true, "gain": req.Gain})
}

func (a *App) handleConfigProfiles(w http.ResponseWriter, _ *http.Request) {
	profiles, err := config.ListProfiles(config.DefaultConfigDir())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []config.ProfileInfo{}
	}
	writeJSON(w, map[string]any{
		"config_dir": config.DefaultConfigDir(),
		"profiles":   profiles,
	})
}

// ---------------------------------------------------------------------------
// Passes
// ---------------------------------------------------------------------------

func (a *App) handlePasses(w http.ResponseWriter, r *http.Request) {
	cfg := a.getConfig()
	predictor := predict.NewPredictor(a.bus, cfg, a.log)
	passes, err := predictor.ComputePasses()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if satFilter := r.URL.Query().Get("satellite"); satFilter != "" {
		upper := strings.ToUpper(satFilter)
		var filtered []predict.Pass
		for _, p := range passes {
			if strings.ToUpper(p.Satellite.Name) == upper {
				filtered = append(filtered, p)
			}
		}
		passes = filtered
	}

	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if n, err := strconv.Atoi(countStr); err == nil && n > 0 && n < len(passes) {
			passes = passes[:n]
		}
	}

	loc, _ := predictor.ResolveLocation()
	writeJSON(w, map[string]any{
		"passes": passesToJSON(passes),
		"station": map[string]any{
			"lat": loc.Lat,
			"lon": loc.Lon,
			"alt": loc.Alt,
		},
	})
}

func (a *App) handleNextPass(w http.ResponseWriter, r *http.Request) {
	cfg := a.getConfig()
	predictor := predict.NewPredictor(a.bus, cfg, a.log)
	passes, err := predictor.ComputePasses()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if satFilter := r.URL.Query().Get("satellite"); satFilter != "" {
		upper := strings.ToUpper(satFilter)
		var filtered []predict.Pass
		for _, p := range passes {
			if strings.ToUpper(p.Satellite.Name) == upper {
				filtered = append(filtered, p)
			}
		}
		passes = filtered
	}

	now := time.Now().UTC()
	var next *predict.Pass
	for i := range passes {
		if passes[i].AOS.After(now) {
			next = &passes[i]
			break
		}
	}

	resp := map[string]any{"pass": nil}
	if next != nil {
		pj := passesToJSON([]predict.Pass{*next})
		resp["pass"] = pj[0]
		resp["countdown_s"] = int(time.Until(next.AOS).Seconds())
	}

	loc, _ := predictor.ResolveLocation()
	resp["station"] = map[string]any{"lat": loc.Lat, "lon": loc.Lon, "alt": loc.Alt}
	writeJSON(w, resp)
}

func (a *App) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Satellite       string `json:"satellite"`
		NoradID         int    `json:"norad_id"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	var sat *satellite.Satellite
	if req.NoradID != 0 {
		sat = satellite.ByNoradID(req.NoradID)
	} else if req.Satellite != "" {
		sat = satellite.ByName(req.Satellite)
	}
	if sat == nil {
		jsonError(w, "unknown satellite", http.StatusBadRequest)
		return
	}
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 600
	}

	payload, _ := json.Marshal(map[string]any{
		"norad_id":         sat.NoradID,
		"duration_seconds": req.DurationSeconds,
	})
	writeCommandResult(w, a.sendSchedulerCommand("trigger", payload))
}

func (a *App) handleTLERefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeCommandResult(w, a.sendSchedulerCommand("tle_refresh", nil))
}

func (a *App) handleTLEInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.scheduler.PredictorCacheInfo())
}

// ---------------------------------------------------------------------------
// Captures + summary + images
// ---------------------------------------------------------------------------

// handleCaptures serves GET /api/captures?limit=N (recent persisted results)
// and DELETE ?name=... (remove a recording file from disk).
func (a *App) handleCaptures(w http.ResponseWriter, r *http.Request) {
	cfg := a.getConfig()

	if r.Method == http.MethodDelete {
		name := r.URL.Query().Get("name")
		if name == "" {
			jsonError(w, "name parameter required", http.StatusBadRequest)
			return
		}
		if hasPathTraversal(name) || strings.Contains(name, "/") {
			jsonError(w, "invalid filename", http.StatusBadRequest)
			return
		}
		path := filepath.Join(cfg.Data.Recordings, name)
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				jsonError(w, "file not found", http.StatusNotFound)
			} else {
				jsonError(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, map[string]any{"ok": true, "message": "deleted " + name})
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, map[string]any{"captures": a.store.Recent(limit)})
}

// handleSummary serves GET /api/summary -> {total, successful, failed}.
func (a *App) handleSummary(w http.ResponseWriter, _ *http.Request) {
	total, successful, failed := a.store.Summary()
	writeJSON(w, map[string]any{
		"total":      total,
		"successful": successful,
		"failed":     failed,
	})
}

// handleImages serves GET /api/images/:name, rejecting any ".." path
// segment (after percent-decoding) with 403 per P8.
func (a *App) handleImages(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/images/")
	decoded, err := url.PathUnescape(name)
	if err != nil {
		jsonError(w, "invalid path", http.StatusBadRequest)
		return
	}
	if hasPathTraversal(decoded) {
		jsonError(w, "path traversal rejected", http.StatusForbidden)
		return
	}

	cfg := a.getConfig()
	http.ServeFile(w, r, filepath.Join(cfg.Data.Images, decoded))
}

// hasPathTraversal reports whether any "/"-separated segment of name is
// "..", shared by the captures delete and images handlers so both reject
// escaping their data directories the same way.
func hasPathTraversal(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// FftStream control surface
// ---------------------------------------------------------------------------

func (a *App) handleFFTStatus(w http.ResponseWriter, _ *http.Request) {
	running, subscribers, errStr := a.scheduler.FftStream().Status()
	resp := map[string]any{
		"running":     running,
		"subscribers": subscribers,
	}
	if errStr != "" {
		resp["error"] = errStr
	}
	writeJSON(w, resp)
}

func (a *App) handleFFTStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.scheduler.FftStream().Stop()
	writeJSON(w, map[string]any{"success": true, "running": false})
}

// handleFFTNotch serves GET /api/fft/notch (list) and POST /api/fft/notch
// (create).
func (a *App) handleFFTNotch(w http.ResponseWriter, r *http.Request) {
	fft := a.scheduler.FftStream()

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"notches": fft.GetNotches()})
	case http.MethodPost:
		var req struct {
			FreqHz      int `json:"freq_hz"`
			BandwidthHz int `json:"bandwidth_hz"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, fft.AddNotch(req.FreqHz, req.BandwidthHz))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFFTNotchByID serves DELETE /api/fft/notch/:id and, for convenience,
// PATCH to toggle enabled.
func (a *App) handleFFTNotchByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/fft/notch/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonError(w, "invalid notch id", http.StatusBadRequest)
		return
	}
	fft := a.scheduler.FftStream()

	switch r.Method {
	case http.MethodDelete:
		if !fft.RemoveNotch(id) {
			jsonError(w, "notch not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	case http.MethodPatch:
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !fft.SetNotchEnabled(id, req.Enabled) {
			jsonError(w, "notch not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---------------------------------------------------------------------------
// SSTV control surface
// ---------------------------------------------------------------------------

func (a *App) handleSSTVStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()
	state := a.bus.GetState()
	writeJSON(w, map[string]any{
		"manual_enabled":      true,
		"ground_scan_enabled": cfg.Scan.Enabled,
		"status":              state.Status,
		"scanning_frequency":  state.ScanningFrequency,
		"scanning_label":      state.ScanningLabel,
	})
}

// handleSSTVCapture serves POST /api/sstv/capture: starts an on-demand SSTV
// capture at the requested frequency and returns immediately with the
// accepted parameters, per spec's `{ frequency_hz, duration_s }` response.
func (a *App) handleSSTVCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := a.getConfig()
	var req struct {
		FrequencyHz int `json:"frequency_hz"`
		DurationS   int `json:"duration_s"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.FrequencyHz <= 0 {
		jsonError(w, "frequency_hz is required", http.StatusBadRequest)
		return
	}
	if req.DurationS <= 0 {
		req.DurationS = cfg.Scan.RecordDurationSec
	}

	a.scheduler.TriggerManualSSTV(req.FrequencyHz, time.Duration(req.DurationS)*time.Second)
	writeJSON(w, map[string]any{
		"frequency_hz": req.FrequencyHz,
		"duration_s":   req.DurationS,
	})
}

// ---------------------------------------------------------------------------
// System / logs / stats / health
// ---------------------------------------------------------------------------

func (a *App) handleSystem(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()
	resp := map[string]any{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"data_root":  cfg.Data.Root,
		"config_dir": config.DefaultConfigDir(),
	}
	_, err := exec.LookPath("rtl_fm")
	resp["sdr_available"] = err == nil
	if du := diskUsage(cfg.Data.Root); du != nil {
		resp["disk"] = du
	}
	writeJSON(w, resp)
}

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	a.logBufMu.Lock()
	entries := make([]logEntry, len(a.logBuf))
	copy(entries, a.logBuf)
	a.logBufMu.Unlock()

	if levelFilter := r.URL.Query().Get("level"); levelFilter != "" {
		var filtered []logEntry
		for _, e := range entries {
			if e.Level == levelFilter {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	writeJSON(w, map[string]any{"logs": entries})
}

func (a *App) handleStats(w http.ResponseWriter, _ *http.Request) {
	a.captureStats.mu.Lock()
	resp := map[string]any{
		"total_captures":        a.captureStats.TotalCaptures,
		"total_bytes":           a.captureStats.TotalBytes,
		"captures_by_satellite": a.captureStats.CapturesBySat,
		"last_capture_at":       a.captureStats.LastCaptureAt,
		"uptime_seconds":        int64(time.Since(a.startedAt).Seconds()),
	}
	a.captureStats.mu.Unlock()
	writeJSON(w, resp)
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()
	checks := map[string]any{}
	allOK := true

	tmpPath := filepath.Join(cfg.Data.Root, ".healthcheck")
	if err := os.WriteFile(tmpPath, []byte("ok"), 0o644); err != nil {
		checks["data_dir"] = map[string]any{"ok": false, "error": err.Error()}
		allOK = false
	} else {
		os.Remove(tmpPath)
		checks["data_dir"] = map[string]any{"ok": true, "path": cfg.Data.Root}
	}

	info := a.scheduler.PredictorCacheInfo()
	maxAge := time.Duration(cfg.Predict.TLERefreshHours) * time.Hour
	fresh := info.Source == "cache" || info.Source == "network"
	if info.Source == "" {
		checks["tle_cache"] = map[string]any{"ok": false, "error": "no TLE fetch has occurred yet"}
		allOK = false
	} else {
		if !fresh {
			allOK = false
		}
		checks["tle_cache"] = map[string]any{"ok": fresh, "source": info.Source, "age": info.Age, "max_age": maxAge.String()}
	}

	if !cfg.SDR.ServiceMode {
		if _, err := exec.LookPath("rtl_fm"); err != nil {
			checks["sdr"] = map[string]any{"ok": false, "error": "rtl_fm not found in PATH"}
			allOK = false
		} else {
			checks["sdr"] = map[string]any{"ok": true}
		}
	}

	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"healthy": allOK, "checks": checks})
}

// ---------------------------------------------------------------------------
// Scheduler controls + config reload
// ---------------------------------------------------------------------------

func (a *App) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeCommandResult(w, a.sendSchedulerCommand("pause", nil))
}

func (a *App) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeCommandResult(w, a.sendSchedulerCommand("resume", nil))
}

func (a *App) handleSkip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeCommandResult(w, a.sendSchedulerCommand("skip", nil))
}

func (a *App) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeCommandResult(w, a.sendSchedulerCommand("cancel", nil))
}

func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Profile string `json:"profile"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	loadPath := a.configPath
	if body.Profile != "" {
		candidate := filepath.Join(config.DefaultConfigDir(), body.Profile+".toml")
		if _, err := os.Stat(candidate); err != nil {
			jsonError(w, "profile \""+body.Profile+"\" not found at "+candidate, http.StatusNotFound)
			return
		}
		loadPath = candidate
	}
	if loadPath == "" {
		jsonError(w, "no config file path set", http.StatusInternalServerError)
		return
	}

	newCfg, err := config.Load(loadPath)
	if err != nil {
		jsonError(w, "config reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	a.cfgMu.Lock()
	a.cfg = newCfg
	a.configPath = loadPath
	a.cfgMu.Unlock()

	a.logEvent("info", "app", "config reloaded from "+loadPath)
	writeJSON(w, map[string]any{"ok": true, "message": "configuration reloaded from " + loadPath})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (a *App) sendSchedulerCommand(cmdType string, payload json.RawMessage) scheduler.CommandResult {
	reply := make(chan scheduler.CommandResult, 1)
	a.scheduler.Commands <- scheduler.Command{Type: cmdType, Payload: payload, Reply: reply}
	return <-reply
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}

func writeCommandResult(w http.ResponseWriter, result scheduler.CommandResult) {
	w.Header().Set("Content-Type", "application/json")
	if !result.OK {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(result)
}

type passJSON struct {
	Satellite   string  `json:"satellite"`
	NoradID     int     `json:"norad_id"`
	FreqHz      int     `json:"freq_hz"`
	AOS         string  `json:"aos"`
	LOS         string  `json:"los"`
	MaxElev     float64 `json:"max_elev"`
	MaxElevTime string  `json:"max_elev_time"`
	AOSAzimuth  float64 `json:"aos_azimuth"`
	LOSAzimuth  float64 `json:"los_azimuth"`
	DurationS   int     `json:"duration_s"`
}

func passesToJSON(passes []predict.Pass) []passJSON {
	result := make([]passJSON, len(passes))
	for i, p := range passes {
		result[i] = passJSON{
			Satellite:   p.Satellite.Name,
			NoradID:     p.Satellite.NoradID,
			FreqHz:      p.Satellite.FreqHz,
			AOS:         p.AOS.Format(time.RFC3339),
			LOS:         p.LOS.Format(time.RFC3339),
			MaxElev:     p.MaxElev,
			MaxElevTime: p.MaxElevTime.Format(time.RFC3339),
			AOSAzimuth:  p.AOSAzimuth,
			LOSAzimuth:  p.LOSAzimuth,
			DurationS:   int(p.Duration.Seconds()),
		}
	}
	return result
}
