package sstvdecoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedWAV is returned for any input that is not mono 16-bit PCM.
var ErrUnsupportedWAV = errors.New("unsupported_wav")

// samples holds a decoded mono 16-bit PCM stream.
type samples struct {
	Rate int
	Data []int16
}

// parseWAV reads a RIFF/WAVE container and extracts mono 16-bit PCM
// samples, the same header shape internal/recorder writes.
func parseWAV(r io.Reader) (*samples, error) {
	var riffID [4]byte
	if err := binary.Read(r, binary.LittleEndian, &riffID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedWAV, err)
	}
	if string(riffID[:]) != "RIFF" {
		return nil, fmt.Errorf("%w: missing RIFF tag", ErrUnsupportedWAV)
	}

	var riffSize uint32
	if err := binary.Read(r, binary.LittleEndian, &riffSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedWAV, err)
	}

	var waveID [4]byte
	if err := binary.Read(r, binary.LittleEndian, &waveID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedWAV, err)
	}
	if string(waveID[:]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing WAVE tag", ErrUnsupportedWAV)
	}

	var (
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		haveFmt       bool
		pcm           []byte
	)

	for {
		var chunkID [4]byte
		if err := binary.Read(r, binary.LittleEndian, &chunkID); err != nil {
			break
		}
		var chunkSize uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("%w: truncated chunk header", ErrUnsupportedWAV)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrUnsupportedWAV)
			}
			if len(body) < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}
			numChannels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
		case "data":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				// Tolerate a truncated final data chunk: decode what's there.
				pcm = append(pcm, body...)
				goto done
			}
			pcm = body
		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				goto done
			}
		}
		if chunkSize%2 == 1 {
			_, _ = io.CopyN(io.Discard, r, 1)
		}
	}

done:
	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrUnsupportedWAV)
	}
	if numChannels != 1 || bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: require mono 16-bit, got %d channel(s) at %d bits", ErrUnsupportedWAV, numChannels, bitsPerSample)
	}
	if len(pcm) < 2 {
		return nil, fmt.Errorf("%w: no sample data", ErrUnsupportedWAV)
	}

	n := len(pcm) / 2
	data := make([]int16, n)
	for i := 0; i < n; i++ {
		data[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	return &samples{Rate: int(sampleRate), Data: data}, nil
}
