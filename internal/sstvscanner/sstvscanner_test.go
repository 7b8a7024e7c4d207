package sstvscanner

import (
	"testing"

	"github.com/milesburton/night-watch/internal/fftstream"
	"github.com/stretchr/testify/assert"
)

// TestPeakPowerThresholdSemantics is P7: peak power equal to the threshold
// must not trigger capture; threshold + 1 dB must. This guards against the
// historical -5 dB fudge regression.
func TestPeakPowerThresholdSemantics(t *testing.T) {
	bins := make([]float32, 2048)
	for i := range bins {
		bins[i] = -100
	}
	centerHz := 145800000
	spanHz := 2400000
	targetHz := 145800000

	hzPerBin := float64(spanHz) / float64(len(bins))
	lowEdge := float64(centerHz) - float64(spanHz)/2
	midBin := int((float64(targetHz) - lowEdge) / hzPerBin)

	const minSignalStrength = -35.0

	bins[midBin] = minSignalStrength
	assert.False(t, fftstream.PeakPower(bins, centerHz, spanHz, targetHz, bandwidthHz) > minSignalStrength)

	bins[midBin] = minSignalStrength + 1
	assert.True(t, fftstream.PeakPower(bins, centerHz, spanHz, targetHz, bandwidthHz) > minSignalStrength)
}

func TestManualSatelliteNaming(t *testing.T) {
	sat := ManualSatellite(145800000)
	assert.Equal(t, "Manual 145.800 MHz", sat.Name)
}
