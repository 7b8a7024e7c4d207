// Package sstvdecoder decodes a WAV recording of an SSTV transmission into
// a PNG image plus a diagnostics record. It is a pure, deterministic
// CPU-bound consumer of WAV bytes with no dependency on the SDR pipeline,
// so it can be tested and exercised entirely offline.
package sstvdecoder

import (
	"fmt"
	"io"
)

// Result is the decode outcome, regardless of success.
type Result struct {
	Mode         string
	VISCode      int
	FreqOffsetHz float64
	PNG          []byte
	Quality      Quality
	LinesDecoded int
	LinesTotal   int
}

// Decode runs the full pipeline: parse WAV, demodulate instantaneous
// frequency, detect VIS, look up the mode, calibrate, scan lines, convert
// to RGB, encode PNG, and assess quality. Any pipeline-stage failure is
// returned as an error (unsupported_wav, no_vis_found, unknown_mode); the
// caller treats this as "no image produced", not a pipeline abort.
func Decode(r io.Reader) (*Result, error) {
	wav, err := parseWAV(r)
	if err != nil {
		return nil, err
	}
	if wav.Rate < 11000 {
		return nil, fmt.Errorf("%w: sample rate %d below 11 kHz floor", ErrUnsupportedWAV, wav.Rate)
	}

	freq := instantaneousFrequency(wav.Data, wav.Rate)

	vis, err := detectVIS(freq, wav.Rate)
	if err != nil {
		return nil, err
	}

	m, err := lookupMode(vis.ModeCode)
	if err != nil {
		return nil, err
	}

	// Auto-calibrate: the known 1200/1900 Hz tones observed during VIS give
	// a linear frequency offset to subtract from subsequent samples.
	calOffset := ((vis.Calib1200 - breakToneHz) + (vis.Calib1900 - leaderToneHz)) / 2

	img, linesDecoded := decodeLines(freq, wav.Rate, m, vis.AfterIdx, calOffset)

	quality := assessQuality(img, linesDecoded, m.Lines, calOffset)

	return &Result{
		Mode:         m.Name,
		VISCode:      vis.ModeCode,
		FreqOffsetHz: calOffset,
		PNG:          encodePNG(img),
		Quality:      quality,
		LinesDecoded: linesDecoded,
		LinesTotal:   m.Lines,
	}, nil
}
