package sstvdecoder

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000

// toneSamples generates n milliseconds of a pure tone at hz, sample rate
// testSampleRate, as int16 PCM.
func toneSamples(hz float64, ms float64) []int16 {
	n := int(ms * testSampleRate / 1000.0)
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / testSampleRate
		out[i] = int16(16000 * math.Sin(2*math.Pi*hz*t))
	}
	return out
}

// buildVISLeader synthesizes the leader + mode-code + parity + stop-bit
// sequence for modeCode, exactly as the dwell/VIS description requires.
func buildVISLeader(modeCode int) []int16 {
	var out []int16
	out = append(out, toneSamples(leaderToneHz, leaderDurMS)...)
	out = append(out, toneSamples(breakToneHz, breakDurMS)...)
	out = append(out, toneSamples(leaderToneHz, leaderDurMS)...)
	out = append(out, toneSamples(breakToneHz, bitDurMS)...) // start bit

	parity := 0
	for b := 0; b < 7; b++ {
		bit := (modeCode >> uint(b)) & 1
		hz := bitZeroHz
		if bit == 1 {
			hz = bitOneHz
			parity++
		}
		out = append(out, toneSamples(hz, bitDurMS)...)
	}
	parityHz := bitZeroHz
	if parity%2 != 0 {
		parityHz = bitOneHz
	}
	out = append(out, toneSamples(parityHz, bitDurMS)...)
	out = append(out, toneSamples(breakToneHz, bitDurMS)...) // stop bit

	return out
}

func TestDetectVISFindsRobot36(t *testing.T) {
	pcm := buildVISLeader(0x08)
	freq := instantaneousFrequency(pcm, testSampleRate)

	result, err := detectVIS(freq, testSampleRate)
	require.NoError(t, err)
	assert.Equal(t, 0x08, result.ModeCode)
	assert.Greater(t, result.AfterIdx, 0)
}

func TestDetectVISNoLeaderReturnsErrNoVIS(t *testing.T) {
	pcm := toneSamples(1500, 2000)
	freq := instantaneousFrequency(pcm, testSampleRate)

	_, err := detectVIS(freq, testSampleRate)
	assert.ErrorIs(t, err, ErrNoVIS)
}

func TestLookupModeUnknownCode(t *testing.T) {
	_, err := lookupMode(0x7F)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestLookupModeKnownCodes(t *testing.T) {
	for _, code := range []int{0x08, 0x0C, 0x2C, 0x28, 0x3C, 0x38, 0x5D, 0x63, 0x5F, 0x62, 0x60, 0x61, 0x5E} {
		m, err := lookupMode(code)
		require.NoError(t, err)
		assert.Equal(t, code, m.VISCode)
	}
}

func TestFreqToPixelClamps(t *testing.T) {
	assert.Equal(t, byte(0), freqToPixel(1500))
	assert.Equal(t, byte(255), freqToPixel(2300))
	assert.Equal(t, byte(0), freqToPixel(1000))
	assert.Equal(t, byte(255), freqToPixel(3000))
}

func TestAssessQualityGoodMidtone(t *testing.T) {
	img := newImage(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.set(x, y, 120, 120, 120)
		}
	}
	q := assessQuality(img, 4, 4, 0)
	assert.Equal(t, VerdictGood, q.Verdict)
	assert.Empty(t, q.Warnings)
}

func TestAssessQualityDarkWarning(t *testing.T) {
	img := newImage(2, 2)
	q := assessQuality(img, 2, 2, 0)
	assert.Contains(t, q.Warnings, "dark")
	assert.NotEqual(t, VerdictGood, q.Verdict)
}

func TestAssessQualityJunkOnShortDecode(t *testing.T) {
	img := newImage(4, 4)
	q := assessQuality(img, 1, 10, 0)
	assert.Equal(t, VerdictJunk, q.Verdict)
}

func TestEncodePNGHeaderAndChunks(t *testing.T) {
	img := newImage(2, 2)
	img.set(0, 0, 255, 0, 0)
	img.set(1, 0, 0, 255, 0)
	img.set(0, 1, 0, 0, 255)
	img.set(1, 1, 255, 255, 255)

	data := encodePNG(img)
	require.True(t, bytes.HasPrefix(data, pngSignature[:]))

	ihdrStart := 8
	length := binary.BigEndian.Uint32(data[ihdrStart : ihdrStart+4])
	assert.Equal(t, uint32(13), length)
	assert.Equal(t, "IHDR", string(data[ihdrStart+4:ihdrStart+8]))

	width := binary.BigEndian.Uint32(data[ihdrStart+8 : ihdrStart+12])
	height := binary.BigEndian.Uint32(data[ihdrStart+12 : ihdrStart+16])
	assert.Equal(t, uint32(2), width)
	assert.Equal(t, uint32(2), height)

	assert.Contains(t, string(data), "IEND")
}

func TestParseWAVRejectsStereo(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))     // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))     // stereo
	_ = binary.Write(&buf, binary.LittleEndian, uint32(48000)) // rate
	_ = binary.Write(&buf, binary.LittleEndian, uint32(192000))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(4))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))

	_, err := parseWAV(&buf)
	assert.ErrorIs(t, err, ErrUnsupportedWAV)
}
