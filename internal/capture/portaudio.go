//go:build portaudio

// ABOUTME: PortAudio capture backend
// ABOUTME: Cross-platform input capture using PortAudio
package capture

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/swyh-go/swyh-go/pkg/audio"
)

// PortAudio captures from a PortAudio input device
type PortAudio struct {
	logger *slog.Logger
	stream *portaudio.Stream
	format audio.Format

	handler   Handler
	handlerMu sync.RWMutex
	closeOnce sync.Once
}

func openPortAudio(config Config) (Source, error) {
	logger := config.logger()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize portaudio: %v", ErrDeviceUnavailable, err)
	}

	dev, err := portaudio.DefaultInputDevice()
	switch {
	case config.Device != "":
		if found, ferr := findPortAudioDevice(config.Device); ferr == nil && found != nil {
			dev, err = found, nil
		} else {
			logger.Warn("capture device not found, using default", "device", config.Device)
		}
	case runtime.GOOS != "windows":
		if found, ferr := findPortAudioDevice(monitorHint); ferr == nil && found != nil {
			dev, err = found, nil
			logger.Info("using monitor device", "device", found.Name)
		} else {
			logger.Warn("no monitor source found, using default capture device")
		}
	}
	if err != nil || dev == nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: no input device", ErrDeviceUnavailable)
	}

	channels := DefaultChannels
	if dev.MaxInputChannels < channels {
		channels = dev.MaxInputChannels
	}
	if channels < 1 {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %s has no input channels", ErrDeviceUnavailable, dev.Name)
	}

	p := &PortAudio{
		logger: logger,
		format: audio.Format{
			SampleRate: int(dev.DefaultSampleRate),
			Channels:   channels,
			Sample:     audio.SampleF32,
			BitDepth:   config.bitDepth(),
		},
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = channels
	params.FramesPerBuffer = p.format.SampleRate * ChunkDurationMs / 1000

	stream, err := portaudio.OpenStream(params, p.onData)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open stream: %v", ErrDeviceUnavailable, err)
	}
	p.stream = stream

	logger.Info("capture initialized", "format", p.format.String(), "backend", "portaudio", "device", dev.Name)
	return p, nil
}

func (p *PortAudio) onData(in []float32) {
	p.handlerMu.RLock()
	h := p.handler
	p.handlerMu.RUnlock()
	if h != nil {
		h(audio.NewBlock(in))
	}
}

// Format returns the capture format
func (p *PortAudio) Format() audio.Format {
	return p.format
}

// Start begins delivering blocks to h
func (p *PortAudio) Start(h Handler) error {
	p.handlerMu.Lock()
	p.handler = h
	p.handlerMu.Unlock()
	return p.stream.Start()
}

// Close stops the stream and terminates PortAudio
func (p *PortAudio) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.stream != nil {
			p.stream.Stop()
			p.stream.Close()
		}
		err = portaudio.Terminate()
	})
	return err
}

func findPortAudioDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var inputs []*portaudio.DeviceInfo
	var names []string
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
			names = append(names, d.Name)
		}
	}
	if i := matchDevice(names, name); i >= 0 {
		return inputs[i], nil
	}
	return nil, nil
}

func portAudioDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}
