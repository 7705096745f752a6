// ABOUTME: RMS level metering of captured audio
// ABOUTME: Publishes left/right levels ten times per second
package meter

import (
	"context"
	"math"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

// UpdatesPerSecond is the level refresh rate
const UpdatesPerSecond = 10

// Level is the RMS of one window per channel, on the 16-bit sample scale
type Level struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Meter accumulates samples and emits a Level per window
type Meter struct {
	window   int
	channels int

	n          int
	sumL, sumR int64
	cntL, cntR int
}

// New creates a meter for a capture format
func New(format audio.Format) *Meter {
	window := format.SampleRate * format.Channels / UpdatesPerSecond
	if window < 1 {
		window = 1
	}
	channels := format.Channels
	if channels < 1 {
		channels = 1
	}
	return &Meter{window: window, channels: channels}
}

// Process consumes samples and returns the levels of every window completed
func (m *Meter) Process(samples []float32) []Level {
	var levels []Level
	for i, s := range samples {
		v := int64(audio.FloatToInt16(s))
		// mono feeds both meters; extra channels beyond two are ignored
		switch {
		case m.channels == 1:
			m.sumL += v * v
			m.cntL++
		case i%m.channels == 0:
			m.sumL += v * v
			m.cntL++
		case i%m.channels == 1:
			m.sumR += v * v
			m.cntR++
		}
		m.n++

		if m.n >= m.window {
			levels = append(levels, m.level())
			m.reset()
		}
	}
	return levels
}

func (m *Meter) level() Level {
	l := Level{}
	if m.cntL > 0 {
		l.Left = math.Sqrt(float64(m.sumL) / float64(m.cntL))
	}
	if m.channels == 1 {
		l.Right = l.Left
	} else if m.cntR > 0 {
		l.Right = math.Sqrt(float64(m.sumR) / float64(m.cntR))
	}
	return l
}

func (m *Meter) reset() {
	m.n, m.sumL, m.sumR, m.cntL, m.cntR = 0, 0, 0, 0, 0
}

// Run meters blocks from in until ctx is cancelled or in is closed.
// publish must not block.
func Run(ctx context.Context, format audio.Format, in <-chan audio.Block, publish func(Level)) error {
	m := New(format)
	for {
		select {
		case <-ctx.Done():
			return nil
		case block, ok := <-in:
			if !ok {
				return nil
			}
			for _, l := range m.Process(block.Samples) {
				publish(l)
			}
		}
	}
}
