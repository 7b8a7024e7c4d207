package sstvdecoder

import "math"

// image is a decoded RGB 8-bit raster, row-major, 3 bytes per pixel.
type image struct {
	Width, Height int
	Pix           []byte
}

func newImage(w, h int) *image {
	return &image{Width: w, Height: h, Pix: make([]byte, w*h*3)}
}

func (im *image) set(x, y int, r, g, b byte) {
	if x < 0 || x >= im.Width || y < 0 || y >= im.Height {
		return
	}
	off := (y*im.Width + x) * 3
	im.Pix[off] = r
	im.Pix[off+1] = g
	im.Pix[off+2] = b
}

// freqToPixel maps a measured frequency to an 8-bit luma/chroma value:
// 1500 Hz -> 0, 2300 Hz -> 255, clamped.
func freqToPixel(hz float64) byte {
	v := ((hz - 1500.0) / 800.0) * 255.0
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// findSyncOffset searches +/- searchMS around the expected hsync position
// for the window whose average frequency is closest to 1200 Hz, returning
// the offset (in samples) from expected where the sync pulse actually
// starts. This tolerates small timing drift between lines.
func findSyncOffset(freq []float64, expectedStart, syncLen, sampleRate int, searchMS float64) int {
	span := int(searchMS * float64(sampleRate) / 1000.0)
	best := 0
	bestDist := math.MaxFloat64
	for off := -span; off <= span; off++ {
		s := expectedStart + off
		if s < 0 || s+syncLen > len(freq) {
			continue
		}
		avg := avgFreq(freq, s, s+syncLen)
		d := math.Abs(avg - breakToneHz)
		if d < bestDist {
			bestDist = d
			best = off
		}
	}
	return best
}

// decodeLines walks the frequency trace starting at startIdx, locating one
// hsync pulse per line (or per line-group for PD modes), sampling each
// channel's scan region into pixelsPerLine samples, and reconstructs an RGB
// image per the mode's color format. It returns the image and the number of
// lines successfully decoded (fewer than m.Lines if the trace runs out).
func decodeLines(freq []float64, sampleRate int, m mode, startIdx int, calOffsetHz float64) (*image, int) {
	img := newImage(m.PixelsPerLine, m.Lines)
	samplesPerMS := float64(sampleRate) / 1000.0
	syncLen := int(m.SyncDurationMS * samplesPerMS)
	porchLen := int(m.PorchDurationMS * samplesPerMS)

	pos := startIdx
	linesDecoded := 0

	groups := m.Lines
	if m.LinesPerGroup == 2 {
		groups = (m.Lines + 1) / 2
	}

	for g := 0; g < groups; g++ {
		if pos+syncLen > len(freq) {
			break
		}
		offset := findSyncOffset(freq, pos, syncLen, sampleRate, 2.0)
		pos += offset + syncLen + porchLen

		channelBufs := make([][]byte, len(m.ChannelDurationsMS))
		ok := true
		for ci, durMS := range m.ChannelDurationsMS {
			chLen := int(durMS * samplesPerMS)
			if pos+chLen > len(freq) {
				ok = false
				break
			}
			pixelDur := float64(chLen) / float64(m.PixelsPerLine)
			buf := make([]byte, m.PixelsPerLine)
			for p := 0; p < m.PixelsPerLine; p++ {
				s := pos + int(float64(p)*pixelDur)
				e := pos + int(float64(p+1)*pixelDur)
				avg := avgFreq(freq, s, e) - calOffsetHz
				buf[p] = freqToPixel(avg)
			}
			channelBufs[ci] = buf
			pos += chLen
		}
		if !ok {
			break
		}

		switch m.Format {
		case formatGBR:
			row := g
			for x := 0; x < m.PixelsPerLine; x++ {
				gr, bl, rd := channelBufs[0][x], channelBufs[1][x], channelBufs[2][x]
				img.set(x, row, rd, gr, bl)
			}
			linesDecoded++
		case formatRobotYUV:
			row := g
			y := channelBufs[0]
			chroma := channelBufs[1]
			for x := 0; x < m.PixelsPerLine; x++ {
				var cr, cb byte
				if row%2 == 0 {
					cr, cb = chroma[x], 128
				} else {
					cr, cb = 128, chroma[x]
				}
				r, gg, b := ycbcrToRGB(y[x], cb, cr)
				img.set(x, row, r, gg, b)
			}
			linesDecoded++
		case formatYCbCr420:
			y1, cr, cb, y2 := channelBufs[0], channelBufs[1], channelBufs[2], channelBufs[3]
			row1 := g * 2
			row2 := row1 + 1
			for x := 0; x < m.PixelsPerLine; x++ {
				r, gg, b := ycbcrToRGB(y1[x], cb[x], cr[x])
				img.set(x, row1, r, gg, b)
			}
			linesDecoded++
			if row2 < m.Lines {
				for x := 0; x < m.PixelsPerLine; x++ {
					r, gg, b := ycbcrToRGB(y2[x], cb[x], cr[x])
					img.set(x, row2, r, gg, b)
				}
				linesDecoded++
			}
		}
	}

	return img, linesDecoded
}
