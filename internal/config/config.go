// Package config handles loading, defaulting, and validation of the Night
// Watch TOML configuration file. Every section maps to a typed struct so
// the rest of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data    DataConfig    `toml:"data"    json:"data"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Server  ServerConfig  `toml:"server"  json:"server"`
	Station StationConfig `toml:"station" json:"station"`
	SDR     SDRConfig     `toml:"sdr"     json:"sdr"`
	Predict PredictConfig `toml:"predict" json:"predict"`
	Scan    ScanConfig    `toml:"scan"    json:"scan"`
	FFT     FFTConfig     `toml:"fft"     json:"fft"`
}

type DataConfig struct {
	Root       string `toml:"root"       json:"root"`
	Recordings string `toml:"recordings" json:"recordings"`
	Images     string `toml:"images"     json:"images"`
	Archive    string `toml:"archive"    json:"archive"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type StationConfig struct {
	Latitude     float64 `toml:"latitude"      json:"latitude"`
	Longitude    float64 `toml:"longitude"     json:"longitude"`
	Altitude     float64 `toml:"altitude"      json:"altitude"`
	MinElevation float64 `toml:"min_elevation" json:"min_elevation"`
	UseGPSD      bool    `toml:"use_gpsd"      json:"use_gpsd"`
	GPSDHost     string  `toml:"gpsd_host"     json:"gpsd_host"`
}

type SDRConfig struct {
	DeviceIndex       int     `toml:"device_index"        json:"device_index"`
	Gain              float64 `toml:"gain"                json:"gain"`
	PPMCorrection     int     `toml:"ppm_correction"      json:"ppm_correction"`
	MinSignalStrength float64 `toml:"min_signal_strength" json:"min_signal_strength"`
	SkipSignalCheck   bool    `toml:"skip_signal_check"   json:"skip_signal_check"`
	ServiceMode       bool    `toml:"service_mode"        json:"service_mode"`
}

type PredictConfig struct {
	TLEURL          string `toml:"tle_url"           json:"tle_url"`
	TLERefreshHours int    `toml:"tle_refresh_hours" json:"tle_refresh_hours"`
	LookaheadHours  int    `toml:"lookahead_hours"   json:"lookahead_hours"`
}

// ScanConfig tunes the opportunistic SSTV ground-scan behaviour. The
// frequency list is a config item rather than a constant: the original
// source's commented-out "2m alternate" entry suggests the list should
// stay editable, not hardcoded.
type ScanConfig struct {
	Enabled            bool  `toml:"enabled"               json:"enabled"`
	FrequenciesHz      []int `toml:"frequencies_hz"        json:"frequencies_hz"`
	IdleThresholdSec   int   `toml:"idle_threshold_sec"    json:"idle_threshold_sec"`
	SafetyMarginSec    int   `toml:"safety_margin_sec"     json:"safety_margin_sec"`
	PrePassLeadSec     int   `toml:"pre_pass_lead_sec"     json:"pre_pass_lead_sec"`
	DwellTimeoutSec    int   `toml:"dwell_timeout_sec"     json:"dwell_timeout_sec"`
	RecordDurationSec  int   `toml:"record_duration_sec"   json:"record_duration_sec"`
}

// FFTConfig supplies default spectrum-producer parameters for FftStream.
type FFTConfig struct {
	SpanHz        int     `toml:"span_hz"        json:"span_hz"`
	Size          int     `toml:"size"           json:"size"`
	Gain          float64 `toml:"gain"           json:"gain"`
	UpdateRateHz  int     `toml:"update_rate_hz" json:"update_rate_hz"`
	DebounceMS    int     `toml:"debounce_ms"    json:"debounce_ms"`
}

// DefaultConfigDir returns the XDG-compliant config directory for Night
// Watch. It respects $XDG_CONFIG_HOME and falls back to ~/.config/nightwatch.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nightwatch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nightwatch")
}

// DefaultDataDir returns the XDG-compliant data directory for Night Watch.
// It respects $XDG_DATA_HOME and falls back to ~/.local/share/nightwatch.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "nightwatch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "nightwatch")
}

// FindConfigFile searches for a config file in standard locations:
//  1. $NIGHTWATCH_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/nightwatch/config.toml
//  3. /etc/nightwatch/nightwatch.toml
//  4. configs/example.toml (bundled fallback)
//
// Returns the path to the first file found, or empty string if none exist.
func FindConfigFile() string {
	if env := os.Getenv("NIGHTWATCH_CONFIG"); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env
		}
	}

	xdgPath := filepath.Join(DefaultConfigDir(), "config.toml")
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}

	legacyPath := "/etc/nightwatch/nightwatch.toml"
	if _, err := os.Stat(legacyPath); err == nil {
		return legacyPath
	}

	if _, err := os.Stat("configs/example.toml"); err == nil {
		return "configs/example.toml"
	}

	return ""
}

// ProfileInfo describes a config profile discovered in the config directory.
type ProfileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// ListProfiles scans a directory for .toml files and returns them as profiles.
func ListProfiles(configDir string) ([]ProfileInfo, error) {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var profiles []ProfileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".toml")
		profiles = append(profiles, ProfileInfo{
			Name:    name,
			Path:    filepath.Join(configDir, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	return profiles, nil
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	dataDir := DefaultDataDir()
	return Config{
		Data: DataConfig{
			Root:       dataDir,
			Recordings: filepath.Join(dataDir, "recordings"),
			Images:     filepath.Join(dataDir, "images"),
			Archive:    filepath.Join(dataDir, "archive"),
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Bind: "0.0.0.0:8080"},
		Station: StationConfig{
			Latitude:     0.0,
			Longitude:    0.0,
			Altitude:     0.0,
			MinElevation: 10,
			UseGPSD:      false,
			GPSDHost:     "localhost:2947",
		},
		SDR: SDRConfig{
			DeviceIndex:       0,
			Gain:              40.0,
			PPMCorrection:     0,
			MinSignalStrength: -35,
			SkipSignalCheck:   false,
			ServiceMode:       false,
		},
		Predict: PredictConfig{
			TLEURL:          "https://celestrak.org/NORAD/elements/gp.php?GROUP=weather&FORMAT=tle",
			TLERefreshHours: 24,
			LookaheadHours:  24,
		},
		Scan: ScanConfig{
			Enabled:           true,
			FrequenciesHz:     []int{145800000},
			IdleThresholdSec:  120,
			SafetyMarginSec:   30,
			PrePassLeadSec:    10,
			DwellTimeoutSec:   20,
			RecordDurationSec: 150,
		},
		FFT: FFTConfig{
			SpanHz:       2_400_000,
			Size:         2048,
			Gain:         40.0,
			UpdateRateHz: 30,
			DebounceMS:   500,
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. Data directories are created automatically.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	cfg.Data.Root = expandHome(cfg.Data.Root)
	cfg.Data.Recordings = expandHome(cfg.Data.Recordings)
	cfg.Data.Images = expandHome(cfg.Data.Images)
	cfg.Data.Archive = expandHome(cfg.Data.Archive)

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, ensureDirs(cfg)
}

// EnsureDirectories creates the XDG config dir and data directories. Called
// by the daemon on startup regardless of whether a config file was found.
func EnsureDirectories(cfg Config) error {
	if err := os.MkdirAll(DefaultConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return ensureDirs(cfg)
}

func ensureDirs(cfg Config) error {
	for _, dir := range []string{cfg.Data.Root, cfg.Data.Recordings, cfg.Data.Images, cfg.Data.Archive} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if cfg.Data.Recordings == "" {
		return errors.New("data.recordings must not be empty")
	}
	if cfg.Data.Images == "" {
		return errors.New("data.images must not be empty")
	}
	if cfg.Station.MinElevation < 0 || cfg.Station.MinElevation > 90 {
		return errors.New("station.min_elevation must be between 0 and 90")
	}
	if cfg.Predict.TLERefreshHours < 1 {
		return errors.New("predict.tle_refresh_hours must be >= 1")
	}
	if cfg.Predict.LookaheadHours < 1 {
		return errors.New("predict.lookahead_hours must be >= 1")
	}
	if cfg.SDR.Gain < 0 || cfg.SDR.Gain > 49 {
		return errors.New("sdr.gain must be between 0 and 49")
	}
	if cfg.FFT.Size <= 0 {
		return errors.New("fft.size must be > 0")
	}
	return nil
}
