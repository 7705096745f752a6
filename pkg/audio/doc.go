// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Block types and sample conversion functions
// Package audio provides the audio types shared by capture, streaming and
// renderer control.
//
//   - Format: the capture session format (rate, channels, capture sample
//     type, wire bit depth)
//   - Block: one capture callback worth of normalized interleaved samples
//
// It also provides conversions between normalized float samples and the
// 16-bit and 24-bit integer wire representations.
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 48000,
//	    Channels:   2,
//	    Sample:     audio.SampleF32,
//	    BitDepth:   16,
//	}
//
//	pcm := audio.FloatToInt16(block.Samples[0])
package audio
