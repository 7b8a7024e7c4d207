package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	// Decode into a generic map to preserve all fields for both display modes.
	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	// Decode into ordered sections for human-readable output.
	var cfg struct {
		Data struct {
			Root       string `json:"root"`
			Recordings string `json:"recordings"`
			Images     string `json:"images"`
			Archive    string `json:"archive"`
		} `json:"data"`
		Logging struct {
			Level string `json:"level"`
		} `json:"logging"`
		Server struct {
			Bind string `json:"bind"`
		} `json:"server"`
		Station struct {
			Latitude     float64 `json:"latitude"`
			Longitude    float64 `json:"longitude"`
			Altitude     float64 `json:"altitude"`
			MinElevation float64 `json:"min_elevation"`
			UseGPSD      bool    `json:"use_gpsd"`
			GPSDHost     string  `json:"gpsd_host"`
		} `json:"station"`
		SDR struct {
			DeviceIndex       int     `json:"device_index"`
			Gain              float64 `json:"gain"`
			PPMCorrection     int     `json:"ppm_correction"`
			MinSignalStrength float64 `json:"min_signal_strength"`
			SkipSignalCheck   bool    `json:"skip_signal_check"`
			ServiceMode       bool    `json:"service_mode"`
		} `json:"sdr"`
		Predict struct {
			TLEURL          string `json:"tle_url"`
			TLERefreshHours int    `json:"tle_refresh_hours"`
			LookaheadHours  int    `json:"lookahead_hours"`
		} `json:"predict"`
		Scan struct {
			Enabled           bool  `json:"enabled"`
			FrequenciesHz     []int `json:"frequencies_hz"`
			IdleThresholdSec  int   `json:"idle_threshold_sec"`
			SafetyMarginSec   int   `json:"safety_margin_sec"`
			PrePassLeadSec    int   `json:"pre_pass_lead_sec"`
			DwellTimeoutSec   int   `json:"dwell_timeout_sec"`
			RecordDurationSec int   `json:"record_duration_sec"`
		} `json:"scan"`
		FFT struct {
			SpanHz       int     `json:"span_hz"`
			Size         int     `json:"size"`
			Gain         float64 `json:"gain"`
			UpdateRateHz int     `json:"update_rate_hz"`
			DebounceMS   int     `json:"debounce_ms"`
		} `json:"fft"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(header("  NIGHT WATCH CONFIGURATION"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))

	section := func(name string) {
		fmt.Printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Printf("    %-20s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("root", cfg.Data.Root)
	field("recordings", cfg.Data.Recordings)
	field("images", cfg.Data.Images)
	field("archive", cfg.Data.Archive)

	section("logging")
	field("level", cfg.Logging.Level)

	section("server")
	field("bind", cfg.Server.Bind)

	section("station")
	field("latitude", cfg.Station.Latitude)
	field("longitude", cfg.Station.Longitude)
	field("altitude", cfg.Station.Altitude)
	field("min_elevation", cfg.Station.MinElevation)
	field("use_gpsd", cfg.Station.UseGPSD)
	field("gpsd_host", cfg.Station.GPSDHost)

	section("sdr")
	field("device_index", cfg.SDR.DeviceIndex)
	field("gain", cfg.SDR.Gain)
	field("ppm_correction", cfg.SDR.PPMCorrection)
	field("min_signal_strength", cfg.SDR.MinSignalStrength)
	field("skip_signal_check", cfg.SDR.SkipSignalCheck)
	field("service_mode", cfg.SDR.ServiceMode)

	section("predict")
	field("tle_url", cfg.Predict.TLEURL)
	field("tle_refresh_hours", cfg.Predict.TLERefreshHours)
	field("lookahead_hours", cfg.Predict.LookaheadHours)

	section("scan")
	field("enabled", cfg.Scan.Enabled)
	field("frequencies_hz", cfg.Scan.FrequenciesHz)
	field("idle_threshold_sec", cfg.Scan.IdleThresholdSec)
	field("safety_margin_sec", cfg.Scan.SafetyMarginSec)
	field("pre_pass_lead_sec", cfg.Scan.PrePassLeadSec)
	field("dwell_timeout_sec", cfg.Scan.DwellTimeoutSec)
	field("record_duration_sec", cfg.Scan.RecordDurationSec)

	section("fft")
	field("span_hz", cfg.FFT.SpanHz)
	field("size", cfg.FFT.Size)
	field("gain", cfg.FFT.Gain)
	field("update_rate_hz", cfg.FFT.UpdateRateHz)
	field("debounce_ms", cfg.FFT.DebounceMS)

	fmt.Println()

	return nil
}

// ConfigProfiles lists the named config profiles available on the daemon's
// host via GET /api/config/profiles.
func ConfigProfiles(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		ConfigDir string `json:"config_dir"`
		Profiles  []struct {
			Name    string `json:"name"`
			Path    string `json:"path"`
			ModTime string `json:"mod_time"`
		} `json:"profiles"`
	}
	if err := getJSON(baseURL, "/api/config/profiles", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  CONFIG PROFILES"))
	fmt.Printf("  %s %s\n", colorize(dim, "directory:"), resp.ConfigDir)
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	if len(resp.Profiles) == 0 {
		fmt.Println(colorize(dim, "  (none found)"))
	}
	for _, p := range resp.Profiles {
		fmt.Printf("  %-20s %s\n", p.Name, colorize(dim, p.Path))
	}
	fmt.Println()

	return nil
}
