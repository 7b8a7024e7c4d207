package sstvdecoder

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
)

var pngSignature = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// encodePNG writes img as a non-interlaced, 8-bit RGB PNG using DEFLATE
// level 6, manually assembling IHDR/IDAT/IEND with CRC-32 over type+data
// (polynomial 0xEDB88320 — the IEEE polynomial used by every PNG encoder,
// and Go's crc32.IEEETable is the same table).
func encodePNG(img *image) []byte {
	var out bytes.Buffer
	out.Write(pngSignature[:])

	writeChunk(&out, "IHDR", ihdrData(img.Width, img.Height))
	writeChunk(&out, "IDAT", idatData(img))
	writeChunk(&out, "IEND", nil)

	return out.Bytes()
}

func ihdrData(w, h int) []byte {
	buf := make([]byte, 13)
	binary.BigEndian.PutUint32(buf[0:4], uint32(w))
	binary.BigEndian.PutUint32(buf[4:8], uint32(h))
	buf[8] = 8  // bit depth
	buf[9] = 2  // color type: truecolor (RGB)
	buf[10] = 0 // compression method
	buf[11] = 0 // filter method
	buf[12] = 0 // interlace method: none
	return buf
}

func idatData(img *image) []byte {
	raw := make([]byte, 0, img.Height*(1+img.Width*3))
	stride := img.Width * 3
	for y := 0; y < img.Height; y++ {
		raw = append(raw, 0) // filter type 0: none
		raw = append(raw, img.Pix[y*stride:(y+1)*stride]...)
	}

	var compressed bytes.Buffer
	w, _ := zlib.NewWriterLevel(&compressed, zlib.DefaultCompression)
	_, _ = w.Write(raw)
	_ = w.Close()
	return compressed.Bytes()
}

func writeChunk(out *bytes.Buffer, chunkType string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	out.Write(length[:])

	typeAndData := append([]byte(chunkType), data...)
	out.Write(typeAndData)

	crc := crc32.Checksum(typeAndData, crc32.IEEETable)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	out.Write(crcBuf[:])
}
