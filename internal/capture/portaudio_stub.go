//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package capture

import (
	"fmt"
)

func openPortAudio(Config) (Source, error) {
	return nil, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrDeviceUnavailable)
}

func portAudioDevices() ([]string, error) {
	return nil, fmt.Errorf("PortAudio support not enabled (build with -tags portaudio)")
}
