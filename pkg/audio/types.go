// ABOUTME: Audio type definitions
// ABOUTME: Defines the capture format and immutable sample blocks
package audio

import (
	"fmt"
	"math"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleType is the sample representation delivered by the capture device
type SampleType string

const (
	SampleI16 SampleType = "i16"
	SampleU16 SampleType = "u16"
	SampleI24 SampleType = "i24"
	SampleI32 SampleType = "i32"
	SampleF32 SampleType = "f32"
)

// Format describes one capture session. It never changes while capture
// runs; a different format requires restarting capture and all streams.
type Format struct {
	SampleRate int
	Channels   int
	Sample     SampleType // capture representation
	BitDepth   int        // wire encoding width (16 or 24)
}

// Validate checks that the format can be streamed
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	if f.BitDepth != 16 && f.BitDepth != 24 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", f.BitDepth)
	}
	return nil
}

// WithBitDepth returns a copy of f using the given wire width
func (f Format) WithBitDepth(bits int) Format {
	f.BitDepth = bits
	return f
}

// BytesPerSample returns the wire size of one sample
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// ByteRate returns the wire bytes per second
func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BytesPerSample()
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s->%dbit", f.SampleRate, f.Channels, f.Sample, f.BitDepth)
}

// Block is one capture callback worth of interleaved samples, normalized
// to [-1, 1]. Blocks are shared read-only by every consumer.
type Block struct {
	Samples []float32
}

// NewBlock copies samples into a new block
func NewBlock(samples []float32) Block {
	s := make([]float32, len(samples))
	copy(s, samples)
	return Block{Samples: s}
}

// Len returns the number of samples in the block
func (b Block) Len() int {
	return len(b.Samples)
}

func clamp(sample float32) float64 {
	return math.Max(-1.0, math.Min(1.0, float64(sample)))
}

// FloatToInt16 converts a normalized sample to 16-bit
func FloatToInt16(sample float32) int16 {
	return int16(clamp(sample) * 32767.0)
}

// FloatToInt24 converts a normalized sample to the 24-bit range
func FloatToInt24(sample float32) int32 {
	return int32(clamp(sample) * Max24Bit)
}

// Int16ToFloat converts a 16-bit sample to the normalized range
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / 32768.0
}

// Uint16ToFloat converts an unsigned 16-bit sample to the normalized range
func Uint16ToFloat(sample uint16) float32 {
	return (float32(sample) - 32768.0) / 32768.0
}

// IntToFloat converts a signed sample of the given bit depth to the normalized range
func IntToFloat(sample int32, bitDepth int) float32 {
	scale := float32(int64(1) << (bitDepth - 1))
	return float32(sample) / scale
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
