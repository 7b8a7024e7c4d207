package recorder

import (
	"encoding/binary"
	"io"
	"os"
)

// writeWAVHeader writes a 44-byte RIFF/WAV header. Pass dataSize=0 as a
// placeholder and call fixWAVHeader after recording completes.
func writeWAVHeader(w io.Writer, sampleRate uint32, numChannels, bitsPerSample uint16, dataSize uint32) error {
	const audioFormat = 1 // PCM

	byteRate := sampleRate * uint32(numChannels) * uint32(bitsPerSample) / 8
	blockAlign := numChannels * bitsPerSample / 8

	h := struct {
		RiffID   [4]byte
		RiffSize uint32
		WaveID   [4]byte

		FmtID       [4]byte
		FmtSize     uint32
		AudioFormat uint16
		NumChannels uint16
		SampleRate  uint32
		ByteRate    uint32
		BlockAlign  uint16
		BitsPerSamp uint16

		DataID   [4]byte
		DataSize uint32
	}{
		RiffID:      [4]byte{'R', 'I', 'F', 'F'},
		RiffSize:    36 + dataSize,
		WaveID:      [4]byte{'W', 'A', 'V', 'E'},
		FmtID:       [4]byte{'f', 'm', 't', ' '},
		FmtSize:     16,
		AudioFormat: audioFormat,
		NumChannels: numChannels,
		SampleRate:  sampleRate,
		ByteRate:    byteRate,
		BlockAlign:  blockAlign,
		BitsPerSamp: bitsPerSample,
		DataID:      [4]byte{'d', 'a', 't', 'a'},
		DataSize:    dataSize,
	}

	return binary.Write(w, binary.LittleEndian, &h)
}

// fixWAVHeader seeks to the beginning of f and patches the RIFF chunk size
// (offset 4) and data sub-chunk size (offset 40) based on actual file size.
func fixWAVHeader(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	fileSize := info.Size()
	if fileSize < 44 {
		return nil
	}

	dataSize := uint32(fileSize - 44)
	riffSize := uint32(fileSize - 8)

	if _, err := f.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, riffSize); err != nil {
		return err
	}

	if _, err := f.Seek(40, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, dataSize)
}
