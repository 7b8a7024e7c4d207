package sstvdecoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hzForPixel is the inverse of freqToPixel: the tone that, once measured and
// mapped back through freqToPixel, reproduces the pixel value v.
func hzForPixel(v float64) float64 {
	return 1500.0 + (v/255.0)*800.0
}

// TestDecodeLinesGBRRoundTripYieldsGoodQuality synthesizes a full
// green/blue/red scan-ordered image (the Martin/Scottie channel order) at
// constant per-channel pixel values and checks it round-trips through
// decodeLines + assessQuality to a "good" verdict with per-channel averages
// within the expected tolerance of the synthesized values.
func TestDecodeLinesGBRRoundTripYieldsGoodQuality(t *testing.T) {
	const wantG, wantB, wantR = 90.0, 40.0, 180.0

	m := mode{
		Name: "test-gbr", Lines: 8, PixelsPerLine: 16,
		SyncDurationMS: 9.0, PorchDurationMS: 1.5,
		ChannelDurationsMS: []float64{40.0, 40.0, 40.0}, // G, B, R
		Format:             formatGBR, LinesPerGroup: 1,
	}

	var pcm []int16
	pcm = append(pcm, toneSamples(breakToneHz, 20.0)...) // Hilbert warm-up lead-in
	startIdx := len(pcm)

	for line := 0; line < m.Lines; line++ {
		pcm = append(pcm, toneSamples(breakToneHz, m.SyncDurationMS)...)
		pcm = append(pcm, toneSamples(leaderToneHz, m.PorchDurationMS)...)
		pcm = append(pcm, toneSamples(hzForPixel(wantG), m.ChannelDurationsMS[0])...)
		pcm = append(pcm, toneSamples(hzForPixel(wantB), m.ChannelDurationsMS[1])...)
		pcm = append(pcm, toneSamples(hzForPixel(wantR), m.ChannelDurationsMS[2])...)
	}
	// Trailing sync tone so the last line has slack for sync-search jitter.
	pcm = append(pcm, toneSamples(breakToneHz, m.SyncDurationMS)...)

	freq := instantaneousFrequency(pcm, testSampleRate)
	img, linesDecoded := decodeLines(freq, testSampleRate, m, startIdx, 0)
	require.Equal(t, m.Lines, linesDecoded)

	q := assessQuality(img, linesDecoded, m.Lines, 0)
	assert.Equal(t, VerdictGood, q.Verdict)
	assert.Empty(t, q.Warnings)
	assert.InDelta(t, wantR, q.AvgR, 10)
	assert.InDelta(t, wantG, q.AvgG, 10)
	assert.InDelta(t, wantB, q.AvgB, 10)
}

// TestDecodeLinesPDRoundTripYieldsGoodQuality exercises the YCbCr 4:2:0
// line-pair path (PD-family modes) and colors.go's ycbcrToRGB, synthesizing
// a neutral-gray image (centered chroma) and checking the round-trip lands
// within tolerance of the expected gray level.
func TestDecodeLinesPDRoundTripYieldsGoodQuality(t *testing.T) {
	const wantGray = 150.0
	const yVal, crVal, cbVal = 145.0, 128.0, 128.0

	m := mode{
		Name: "test-pd", Lines: 4, PixelsPerLine: 8,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{30.0, 30.0, 30.0, 30.0}, // Y1, Cr, Cb, Y2
		Format:             formatYCbCr420, LinesPerGroup: 2,
	}

	var pcm []int16
	pcm = append(pcm, toneSamples(breakToneHz, 20.0)...)
	startIdx := len(pcm)

	for g := 0; g < m.Lines/2; g++ {
		pcm = append(pcm, toneSamples(breakToneHz, m.SyncDurationMS)...)
		pcm = append(pcm, toneSamples(leaderToneHz, m.PorchDurationMS)...)
		pcm = append(pcm, toneSamples(hzForPixel(yVal), m.ChannelDurationsMS[0])...)
		pcm = append(pcm, toneSamples(hzForPixel(crVal), m.ChannelDurationsMS[1])...)
		pcm = append(pcm, toneSamples(hzForPixel(cbVal), m.ChannelDurationsMS[2])...)
		pcm = append(pcm, toneSamples(hzForPixel(yVal), m.ChannelDurationsMS[3])...)
	}
	// Trailing sync tone so the last line has slack for sync-search jitter.
	pcm = append(pcm, toneSamples(breakToneHz, m.SyncDurationMS)...)

	freq := instantaneousFrequency(pcm, testSampleRate)
	img, linesDecoded := decodeLines(freq, testSampleRate, m, startIdx, 0)
	require.Equal(t, m.Lines, linesDecoded)

	q := assessQuality(img, linesDecoded, m.Lines, 0)
	assert.Equal(t, VerdictGood, q.Verdict)
	assert.InDelta(t, wantGray, q.AvgR, 10)
	assert.InDelta(t, wantGray, q.AvgG, 10)
	assert.InDelta(t, wantGray, q.AvgB, 10)
}
