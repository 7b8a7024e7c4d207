package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidation(t *testing.T) {
	cfg := Default()
	cfg.Data.Root = t.TempDir()
	cfg.Data.Recordings = cfg.Data.Root
	cfg.Data.Images = cfg.Data.Root
	cfg.Data.Archive = cfg.Data.Root
	assert.NoError(t, validate(cfg))
}

func TestValidateRejectsOutOfRangeGain(t *testing.T) {
	cfg := Default()
	cfg.Data.Root = t.TempDir()
	cfg.Data.Recordings = cfg.Data.Root
	cfg.Data.Images = cfg.Data.Root
	cfg.Data.Archive = cfg.Data.Root

	cfg.SDR.Gain = 60
	assert.Error(t, validate(cfg))

	cfg.SDR.Gain = -1
	assert.Error(t, validate(cfg))
}

func TestValidateRejectsBadElevation(t *testing.T) {
	cfg := Default()
	cfg.Data.Root = t.TempDir()
	cfg.Data.Recordings = cfg.Data.Root
	cfg.Data.Images = cfg.Data.Root
	cfg.Data.Archive = cfg.Data.Root
	cfg.Station.MinElevation = 95
	assert.Error(t, validate(cfg))
}

func TestLoadLayersOnDefaults(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")

	tomlContent := `
[station]
latitude = 51.5
longitude = -0.12
min_elevation = 15

[sdr]
gain = 35.5

[data]
root = "` + dataDir + `"
recordings = "` + dataDir + `/recordings"
images = "` + dataDir + `/images"
archive = "` + dataDir + `/archive"
`
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 51.5, cfg.Station.Latitude, 0.0001)
	assert.InDelta(t, 35.5, cfg.SDR.Gain, 0.0001)
	// Fields not present in the TOML keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 24, cfg.Predict.LookaheadHours)

	for _, d := range []string{cfg.Data.Root, cfg.Data.Recordings, cfg.Data.Images, cfg.Data.Archive} {
		info, statErr := os.Stat(d)
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	}
}

func TestLoadRejectsInvalidGain(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	tomlContent := `
[sdr]
gain = 100

[data]
root = "` + dataDir + `"
recordings = "` + dataDir + `/recordings"
images = "` + dataDir + `/images"
archive = "` + dataDir + `/archive"
`
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlContent), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestListProfilesFindsTOMLFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.toml"), []byte("[data]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "station-b.toml"), []byte("[data]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	profiles, err := ListProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	names := map[string]bool{}
	for _, p := range profiles {
		names[p.Name] = true
		assert.WithinDuration(t, time.Now(), p.ModTime, time.Minute)
	}
	assert.True(t, names["default"])
	assert.True(t, names["station-b"])
}

func TestListProfilesMissingDirReturnsEmpty(t *testing.T) {
	profiles, err := ListProfiles(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, profiles)
}
