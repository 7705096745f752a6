// ABOUTME: Encoder interface and wire encoding descriptors
// ABOUTME: Identifies the container and sample width sent to a renderer
package encode

import (
	"fmt"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

// Container selects how PCM is framed on the wire
type Container int

const (
	// WAV sends a RIFF header once, then little-endian PCM
	WAV Container = iota
	// RAW sends headerless big-endian PCM (audio/L16, audio/L24)
	RAW
)

func (c Container) String() string {
	switch c {
	case WAV:
		return "wav"
	case RAW:
		return "raw"
	default:
		return fmt.Sprintf("Container(%d)", int(c))
	}
}

// Encoding identifies one wire representation. It is comparable so it can
// key per-broadcast caches.
type Encoding struct {
	Container Container
	BitDepth  int
}

func (e Encoding) String() string {
	return fmt.Sprintf("%s/%dbit", e.Container, e.BitDepth)
}

// Encoder encodes normalized samples to wire format
type Encoder interface {
	// Encode converts samples to encoded audio data
	Encode(samples []float32) ([]byte, error)

	// Header returns the bytes sent once before any audio, or nil
	Header(format audio.Format) []byte

	// Close releases encoder resources
	Close() error
}

// New returns the encoder for an encoding
func New(enc Encoding) (Encoder, error) {
	switch enc.Container {
	case WAV, RAW:
		return NewPCM(enc)
	default:
		return nil, fmt.Errorf("unsupported container: %s", enc.Container)
	}
}

// Silence returns encoded silence covering the given number of frames
func Silence(format audio.Format, frames int) []byte {
	// signed PCM silence is all zero bytes in either byte order
	return make([]byte, frames*format.Channels*format.BytesPerSample())
}
