// ABOUTME: miniaudio capture backend via malgo
// ABOUTME: WASAPI loopback on Windows, capture or monitor device elsewhere
package capture

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/swyh-go/swyh-go/pkg/audio"
)

// Malgo captures through miniaudio
type Malgo struct {
	logger   *slog.Logger
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format

	handler   Handler
	handlerMu sync.RWMutex
	closeOnce sync.Once
}

func captureDeviceType() malgo.DeviceType {
	if runtime.GOOS == "windows" {
		return malgo.Loopback
	}
	return malgo.Capture
}

// monitorHint marks PulseAudio and PipeWire sources that mirror an output
const monitorHint = "monitor"

// listDeviceType is the type enumerated for device names; loopback devices
// are playback endpoints.
func listDeviceType() malgo.DeviceType {
	if runtime.GOOS == "windows" {
		return malgo.Playback
	}
	return malgo.Capture
}

func openMalgo(config Config) (Source, error) {
	logger := config.logger()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize malgo context: %v", ErrDeviceUnavailable, err)
	}

	m := &Malgo{logger: logger, malgoCtx: mctx}

	deviceConfig := malgo.DefaultDeviceConfig(captureDeviceType())
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = DefaultChannels
	deviceConfig.SampleRate = 0 // device native rate
	deviceConfig.Alsa.NoMMap = 1

	switch {
	case config.Device != "":
		info, ok, err := findDevice(mctx, listDeviceType(), config.Device)
		switch {
		case err != nil:
			logger.Warn("device enumeration failed, using default", "error", err)
		case !ok:
			logger.Warn("capture device not found, using default", "device", config.Device)
		default:
			deviceConfig.Capture.DeviceID = info.ID.Pointer()
			logger.Info("using capture device", "device", info.Name())
		}
	case runtime.GOOS != "windows":
		// the default capture device is usually a microphone, not what the
		// speakers play
		info, ok, err := findDevice(mctx, malgo.Capture, monitorHint)
		switch {
		case err != nil:
			logger.Warn("device enumeration failed, using default", "error", err)
		case !ok:
			logger.Warn("no monitor source found, using default capture device")
		default:
			deviceConfig.Capture.DeviceID = info.ID.Pointer()
			logger.Info("using monitor device", "device", info.Name())
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: m.onData,
	})
	if err != nil {
		m.freeContext()
		return nil, fmt.Errorf("%w: failed to initialize capture device: %v", ErrDeviceUnavailable, err)
	}
	m.device = device

	if device.CaptureFormat() != malgo.FormatF32 {
		m.Close()
		return nil, fmt.Errorf("%w: unsupported capture format %d", ErrDeviceUnavailable, device.CaptureFormat())
	}

	m.format = audio.Format{
		SampleRate: int(device.SampleRate()),
		Channels:   int(device.CaptureChannels()),
		Sample:     audio.SampleF32,
		BitDepth:   config.bitDepth(),
	}

	logger.Info("capture initialized", "format", m.format.String(), "backend", "malgo")
	return m, nil
}

// Format returns the negotiated capture format
func (m *Malgo) Format() audio.Format {
	return m.format
}

// Start begins delivering blocks to h
func (m *Malgo) Start(h Handler) error {
	m.handlerMu.Lock()
	m.handler = h
	m.handlerMu.Unlock()

	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (m *Malgo) onData(_, input []byte, frameCount uint32) {
	m.handlerMu.RLock()
	h := m.handler
	m.handlerMu.RUnlock()
	if h == nil || len(input) == 0 {
		return
	}
	h(audio.Block{Samples: decodeF32(input)})
}

// decodeF32 converts little-endian float32 capture bytes
func decodeF32(in []byte) []float32 {
	out := make([]float32, len(in)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
	}
	return out
}

// Close stops the device and releases the context
func (m *Malgo) Close() error {
	m.closeOnce.Do(func() {
		if m.device != nil {
			if err := m.device.Stop(); err != nil {
				m.logger.Warn("device stop error", "error", err)
			}
			m.device.Uninit()
		}
		m.freeContext()
	})
	return nil
}

func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		m.logger.Warn("malgo context uninit error", "error", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}

func findDevice(mctx *malgo.AllocatedContext, kind malgo.DeviceType, name string) (malgo.DeviceInfo, bool, error) {
	infos, err := mctx.Devices(kind)
	if err != nil {
		return malgo.DeviceInfo{}, false, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	if i := matchDevice(names, name); i >= 0 {
		return infos[i], true, nil
	}
	return malgo.DeviceInfo{}, false, nil
}

// matchDevice returns the index of the first name containing want, ignoring
// case, or -1
func matchDevice(names []string, want string) int {
	want = strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

func malgoDevices() ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(listDeviceType())
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
