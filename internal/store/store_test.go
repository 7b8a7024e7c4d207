package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRecentOrdering(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)

	require.NoError(t, s.Save(CaptureResult{Satellite: "A", Success: true, StartTime: time.Now()}))
	require.NoError(t, s.Save(CaptureResult{Satellite: "B", Success: false, StartTime: time.Now()}))

	recent := s.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "B", recent[0].Satellite) // newest first
	assert.Equal(t, "A", recent[1].Satellite)
}

func TestRecentRespectsLimit(t *testing.T) {
	s, _ := New("")
	for i := 0; i < 5; i++ {
		_ = s.Save(CaptureResult{Satellite: "X"})
	}
	assert.Len(t, s.Recent(2), 2)
}

func TestSummaryCounts(t *testing.T) {
	s, _ := New("")
	_ = s.Save(CaptureResult{Success: true})
	_ = s.Save(CaptureResult{Success: true})
	_ = s.Save(CaptureResult{Success: false})

	total, ok, fail := s.Summary()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, fail)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captures.jsonl")

	s1, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(CaptureResult{Satellite: "Persisted", Success: true}))

	s2, err := New(path)
	require.NoError(t, err)
	recent := s2.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, "Persisted", recent[0].Satellite)
}
