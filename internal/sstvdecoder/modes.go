package sstvdecoder

import "errors"

// ErrUnknownMode is returned when a VIS code has no entry in modeTable.
var ErrUnknownMode = errors.New("unknown_mode")

// colorFormat selects how the per-channel scan buffers are converted to RGB.
type colorFormat int

const (
	formatRobotYUV  colorFormat = iota // Y, then alternating R-Y / B-Y per line
	formatGBR                          // Martin/Scottie: green, blue, red scan order, each full-res
	formatYCbCr420                     // PD: Y of line 1, shared Cr, shared Cb, Y of line 2
)

// mode is the decode parameter record a VIS code maps to.
type mode struct {
	Name            string
	VISCode         int
	Lines           int
	PixelsPerLine   int
	SyncDurationMS  float64
	PorchDurationMS float64
	// ChannelDurationsMS holds the scan duration, in order, of each channel
	// sampled per scan line (or per 2-line group for YCbCr 4:2:0 modes).
	ChannelDurationsMS []float64
	Format             colorFormat
	// LinesPerGroup is 1 for modes that sync every line, 2 for PD modes
	// which sync once per luma-pair and share chroma across both lines.
	LinesPerGroup int
}

var modeTable = map[int]mode{
	0x08: {
		Name: "Robot36", VISCode: 0x08, Lines: 240, PixelsPerLine: 320,
		SyncDurationMS: 9.0, PorchDurationMS: 3.0,
		ChannelDurationsMS: []float64{88.0, 44.0}, // Y, then alternating R-Y/B-Y
		Format:             formatRobotYUV, LinesPerGroup: 1,
	},
	0x0C: {
		Name: "Robot72", VISCode: 0x0C, Lines: 240, PixelsPerLine: 320,
		SyncDurationMS: 9.0, PorchDurationMS: 4.5,
		ChannelDurationsMS: []float64{138.0, 69.0, 69.0},
		Format:             formatRobotYUV, LinesPerGroup: 1,
	},
	0x2C: {
		Name: "MartinM1", VISCode: 0x2C, Lines: 256, PixelsPerLine: 320,
		SyncDurationMS: 4.862, PorchDurationMS: 0.572,
		ChannelDurationsMS: []float64{146.432, 146.432, 146.432}, // G, B, R
		Format:             formatGBR, LinesPerGroup: 1,
	},
	0x28: {
		Name: "MartinM2", VISCode: 0x28, Lines: 256, PixelsPerLine: 320,
		SyncDurationMS: 4.862, PorchDurationMS: 0.572,
		ChannelDurationsMS: []float64{73.216, 73.216, 73.216},
		Format:             formatGBR, LinesPerGroup: 1,
	},
	0x3C: {
		Name: "ScottieS1", VISCode: 0x3C, Lines: 256, PixelsPerLine: 320,
		SyncDurationMS: 9.0, PorchDurationMS: 1.5,
		ChannelDurationsMS: []float64{138.24, 138.24, 138.24}, // G, B, R
		Format:             formatGBR, LinesPerGroup: 1,
	},
	0x38: {
		Name: "ScottieS2", VISCode: 0x38, Lines: 256, PixelsPerLine: 320,
		SyncDurationMS: 9.0, PorchDurationMS: 1.5,
		ChannelDurationsMS: []float64{88.064, 88.064, 88.064},
		Format:             formatGBR, LinesPerGroup: 1,
	},
	0x5D: {
		Name: "PD50", VISCode: 0x5D, Lines: 256, PixelsPerLine: 320,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{91.52, 91.52, 91.52, 91.52},
		Format:             formatYCbCr420, LinesPerGroup: 2,
	},
	0x63: {
		Name: "PD90", VISCode: 0x63, Lines: 256, PixelsPerLine: 320,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{170.24, 170.24, 170.24, 170.24},
		Format:             formatYCbCr420, LinesPerGroup: 2,
	},
	0x5F: {
		Name: "PD120", VISCode: 0x5F, Lines: 496, PixelsPerLine: 320,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{121.6, 121.6, 121.6, 121.6},
		Format:             formatYCbCr420, LinesPerGroup: 2,
	},
	0x62: {
		Name: "PD160", VISCode: 0x62, Lines: 400, PixelsPerLine: 320,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{195.584, 195.584, 195.584, 195.584},
		Format:             formatYCbCr420, LinesPerGroup: 2,
	},
	0x60: {
		Name: "PD180", VISCode: 0x60, Lines: 496, PixelsPerLine: 320,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{183.04, 183.04, 183.04, 183.04},
		Format:             formatYCbCr420, LinesPerGroup: 2,
	},
	0x61: {
		Name: "PD240", VISCode: 0x61, Lines: 496, PixelsPerLine: 320,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{244.48, 244.48, 244.48, 244.48},
		Format:             formatYCbCr420, LinesPerGroup: 2,
	},
	0x5E: {
		Name: "PD290", VISCode: 0x5E, Lines: 616, PixelsPerLine: 320,
		SyncDurationMS: 20.0, PorchDurationMS: 2.08,
		ChannelDurationsMS: []float64{228.8, 228.8, 228.8, 228.8},
		Format:             formatYCbCr420, LinesPerGroup: 2,
	},
}

// lookupMode returns the mode record for a VIS code, or ErrUnknownMode.
func lookupMode(code int) (mode, error) {
	m, ok := modeTable[code]
	if !ok {
		return mode{}, ErrUnknownMode
	}
	return m, nil
}
