package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issTLE is the canonical Vallado/Celestrak SGP4 test vector for the ISS
// (NORAD 25544), used throughout the sgp4 ecosystem as a known-good sample.
const issTLE = `ISS (ZARYA)
1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927
2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537
`

func TestParseForNOAAExtractsTrackedSatellite(t *testing.T) {
	s := &TLEStore{}
	result, err := s.parseForNOAA(issTLE)
	require.NoError(t, err)
	require.Contains(t, result, 25544)
	assert.Equal(t, 25544, result[25544].SatelliteNumber)
}

func TestParseForNOAAIgnoresUntrackedSatellites(t *testing.T) {
	s := &TLEStore{}
	untracked := `SOME OTHER SAT
1 99999U 20001A   08264.51782528 -.00002182  00000-0 -11606-4 0  2924
2 99999  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563534
`
	_, err := s.parseForNOAA(untracked)
	assert.Error(t, err)
}

func TestFetchFallsBackToEmbeddedWhenNoCacheAndNetworkUnreachable(t *testing.T) {
	s := NewTLEStore("http://127.0.0.1:1/tle", t.TempDir(), 24)
	tles, err := s.Fetch()
	require.NoError(t, err)
	assert.NotEmpty(t, tles)
	assert.Equal(t, "embedded", s.CacheInfo().Source)
}
