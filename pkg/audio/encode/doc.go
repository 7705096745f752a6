// ABOUTME: Audio encoder package for PCM wire formats
// ABOUTME: Provides Encoder interface, WAV header synthesis and DLNA descriptors
// Package encode turns captured blocks into the byte streams served to
// renderers.
//
// Supports: WAV (little-endian PCM behind a streaming RIFF header) and raw
// L16/L24 (big-endian PCM), both at 16 or 24 bits.
//
// Example:
//
//	enc := encode.Encoding{Container: encode.WAV, BitDepth: 16}
//	encoder, err := encode.New(enc)
//	header := encoder.Header(format)
//	data, err := encoder.Encode(block.Samples)
package encode
