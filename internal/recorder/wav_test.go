package recorder

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWAVHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeWAVHeader(&buf, 48000, 1, 16, 1000))

	b := buf.Bytes()
	require.Len(t, b, 44)
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, "fmt ", string(b[12:16]))
	assert.Equal(t, "data", string(b[36:40]))

	riffSize := binary.LittleEndian.Uint32(b[4:8])
	assert.Equal(t, uint32(36+1000), riffSize)

	sampleRate := binary.LittleEndian.Uint32(b[24:28])
	assert.Equal(t, uint32(48000), sampleRate)

	dataSize := binary.LittleEndian.Uint32(b[40:44])
	assert.Equal(t, uint32(1000), dataSize)
}

func TestFixWAVHeaderPatchesSizesToActualFileLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, writeWAVHeader(f, 48000, 1, 16, 0))
	_, err = f.Write(make([]byte, 2000))
	require.NoError(t, err)

	require.NoError(t, fixWAVHeader(f))
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, b, 44+2000)

	riffSize := binary.LittleEndian.Uint32(b[4:8])
	assert.Equal(t, uint32(len(b)-8), riffSize)

	dataSize := binary.LittleEndian.Uint32(b[40:44])
	assert.Equal(t, uint32(2000), dataSize)
}

func TestFixWAVHeaderNoopOnTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 10))
	require.NoError(t, err)

	assert.NoError(t, fixWAVHeader(f))
	require.NoError(t, f.Close())
}
