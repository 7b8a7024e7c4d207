package app

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesburton/night-watch/internal/config"
)

func testApp(t *testing.T) *App {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.Root = dir
	cfg.Data.Recordings = dir + "/recordings"
	cfg.Data.Images = dir + "/images"
	cfg.Data.Archive = dir + "/archive"
	for _, d := range []string{cfg.Data.Recordings, cfg.Data.Images, cfg.Data.Archive} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	logger := log.New(os.Stderr, "", 0)
	a, err := New(Options{
		Logger:     logger,
		Cfg:        cfg,
		ConfigPath: "",
		Bind:       "127.0.0.1:0",
		Simulate:   true,
	})
	require.NoError(t, err)
	return a
}

func TestHandleStatusReturnsIdleState(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	state, ok := body["state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", state["status"])
	assert.Equal(t, false, body["paused"])
}

func TestHandleTriggerRejectsUnknownSatellite(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodPost, "/api/trigger", strings.NewReader(`{"satellite":"NOT-A-SAT"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleImagesRejectsPathTraversal(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/images/../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleImagesRejectsEncodedTraversal(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/images/%2e%2e%2fsecret.png", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleConfigGainValidatesRange(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodPost, "/api/config/gain", strings.NewReader(`{"gain":100}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/config/gain", strings.NewReader(`{"gain":30}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 30, a.getConfig().SDR.Gain, 0.001)
}

func TestHandleSSTVCaptureRequiresFrequency(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodPost, "/api/sstv/capture", strings.NewReader(`{"frequency_hz":0}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSSTVCaptureAcceptsRequest(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodPost, "/api/sstv/capture", strings.NewReader(`{"frequency_hz":145800000,"duration_s":5}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		FrequencyHz int `json:"frequency_hz"`
		DurationS   int `json:"duration_s"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 145800000, resp.FrequencyHz)
	assert.Equal(t, 5, resp.DurationS)
}

func TestHandleSatellitesListsCatalog(t *testing.T) {
	a := testApp(t)
	mux := a.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/satellites", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Satellites []struct {
			Name    string `json:"name"`
			NoradID int    `json:"norad_id"`
		} `json:"satellites"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Satellites)
	for _, s := range resp.Satellites {
		assert.NotZero(t, s.NoradID)
	}
}
