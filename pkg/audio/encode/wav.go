// ABOUTME: Streaming WAV header synthesis
// ABOUTME: Builds a 44-byte RIFF header with placeholder lengths for live audio
package encode

import (
	"encoding/binary"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

const (
	// WAVHeaderSize is the size of the canonical RIFF/WAVE PCM header
	WAVHeaderSize = 44

	// StreamingLength marks the RIFF and data lengths as unknown
	StreamingLength = 0xFFFFFFFF
)

// WAVHeader returns a PCM WAV header for format. The live tap has no end, so
// both the RIFF chunk size and the data chunk size carry StreamingLength.
func WAVHeader(format audio.Format) []byte {
	channels := uint16(format.Channels)
	bits := uint16(format.BitDepth)
	blockAlign := channels * (bits / 8)
	byteRate := uint32(format.SampleRate) * uint32(blockAlign)

	hdr := make([]byte, WAVHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], StreamingLength)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], channels)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bits)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], StreamingLength)
	return hdr
}
