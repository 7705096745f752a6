// ABOUTME: PCM audio encoder
// ABOUTME: Encodes normalized samples to 16-bit or 24-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	container Container
	bitDepth  int
	order     binary.ByteOrder
}

// NewPCM creates a new PCM encoder. WAV data is little-endian, RAW (L16/L24)
// is network byte order.
func NewPCM(enc Encoding) (*PCMEncoder, error) {
	if enc.BitDepth != 16 && enc.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", enc.BitDepth)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if enc.Container == RAW {
		order = binary.BigEndian
	}

	return &PCMEncoder{
		container: enc.Container,
		bitDepth:  enc.BitDepth,
		order:     order,
	}, nil
}

// Encode converts samples to PCM bytes
func (e *PCMEncoder) Encode(samples []float32) ([]byte, error) {
	if e.bitDepth == 24 {
		// 24-bit PCM: 3 bytes per sample
		output := make([]byte, len(samples)*3)
		for i, sample := range samples {
			b := audio.SampleTo24Bit(audio.FloatToInt24(sample))
			if e.container == RAW {
				b[0], b[2] = b[2], b[0]
			}
			output[i*3] = b[0]
			output[i*3+1] = b[1]
			output[i*3+2] = b[2]
		}
		return output, nil
	}

	// 16-bit PCM: 2 bytes per sample
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		e.order.PutUint16(output[i*2:], uint16(audio.FloatToInt16(sample)))
	}
	return output, nil
}

// Header returns the WAV header for WAV encoders and nil for RAW
func (e *PCMEncoder) Header(format audio.Format) []byte {
	if e.container != WAV {
		return nil
	}
	return WAVHeader(format.WithBitDepth(e.bitDepth))
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
