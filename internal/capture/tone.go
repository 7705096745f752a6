// ABOUTME: Test tone capture source
// ABOUTME: Generates a 440Hz sine wave paced in real time
package capture

import (
	"math"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

// ToneFrequency is the generated pitch (A4)
const ToneFrequency = 440.0

type toneGenerator struct {
	sampleRate  int
	channels    int
	frequency   float64
	sampleIndex uint64
}

func (g *toneGenerator) read(dst []float32) (int, error) {
	frames := len(dst) / g.channels
	for i := 0; i < frames; i++ {
		t := float64(g.sampleIndex+uint64(i)) / float64(g.sampleRate)
		sample := float32(math.Sin(2*math.Pi*g.frequency*t) * 0.5) // 50% volume
		for ch := 0; ch < g.channels; ch++ {
			dst[i*g.channels+ch] = sample
		}
	}
	g.sampleIndex += uint64(frames)
	return frames * g.channels, nil
}

// NewToneSource creates a tone source in the given format
func NewToneSource(sampleRate, channels, bitDepth int) Source {
	g := &toneGenerator{sampleRate: sampleRate, channels: channels, frequency: ToneFrequency}
	format := audio.Format{
		SampleRate: sampleRate,
		Channels:   channels,
		Sample:     audio.SampleF32,
		BitDepth:   bitDepth,
	}
	return newPacedSource(format, g.read, nil, nil)
}
