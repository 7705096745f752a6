// ABOUTME: Host audio capture abstraction
// ABOUTME: Selects a capture backend and delivers normalized sample blocks
package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

// ErrDeviceUnavailable is returned when no usable capture device or format
// exists. Startup cannot continue without one.
var ErrDeviceUnavailable = errors.New("capture: no usable audio device")

// Capture defaults
const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	ChunkDurationMs   = 20
)

// Backend names a capture implementation
type Backend string

const (
	BackendMalgo     Backend = "malgo"
	BackendPortAudio Backend = "portaudio"
	BackendTone      Backend = "tone"
	BackendFile      Backend = "file"
)

// Handler receives each captured block. It runs on the capture goroutine
// and must not block.
type Handler func(audio.Block)

// Source produces live audio. There is no pause; audio flows from Start
// until Close.
type Source interface {
	Format() audio.Format
	Start(h Handler) error
	Close() error
}

// Config selects and configures a source
type Config struct {
	Backend  Backend
	Device   string // name or substring; empty chooses the default device
	File     string // for BackendFile
	BitDepth int    // wire width carried in Format
	Logger   *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default().With("component", "capture")
	}
	return c.Logger.With("component", "capture")
}

func (c Config) bitDepth() int {
	if c.BitDepth == 0 {
		return 16
	}
	return c.BitDepth
}

// Open creates the configured source
func Open(config Config) (Source, error) {
	var (
		src Source
		err error
	)

	switch config.Backend {
	case BackendMalgo, "":
		src, err = openMalgo(config)
	case BackendPortAudio:
		src, err = openPortAudio(config)
	case BackendTone:
		src = NewToneSource(DefaultSampleRate, DefaultChannels, config.bitDepth())
	case BackendFile:
		src, err = OpenFile(config.File, config.bitDepth(), config.logger())
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrDeviceUnavailable, config.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := src.Format().Validate(); err != nil {
		src.Close()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return src, nil
}

// Devices lists capture device names for a backend
func Devices(backend Backend) ([]string, error) {
	switch backend {
	case BackendMalgo, "":
		return malgoDevices()
	case BackendPortAudio:
		return portAudioDevices()
	case BackendTone:
		return []string{"440 Hz test tone"}, nil
	case BackendFile:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
