// ABOUTME: Tests for the discovery tool's stream description
// ABOUTME: Flag values must reach the media format and encoding
package main

import (
	"testing"

	"github.com/swyh-go/swyh-go/pkg/audio/encode"
)

func TestMediaForUsesFlags(t *testing.T) {
	m, err := mediaFor("http://10.0.0.2:5901/stream/swyh.raw", 44100, 1, 24, true)
	if err != nil {
		t.Fatalf("mediaFor: %v", err)
	}
	if m.Format.SampleRate != 44100 || m.Format.Channels != 1 || m.Format.BitDepth != 24 {
		t.Errorf("unexpected format %s", m.Format)
	}
	if m.Encoding.Container != encode.RAW || m.Encoding.BitDepth != 24 {
		t.Errorf("unexpected encoding %s", m.Encoding)
	}

	m, err = mediaFor("http://10.0.0.2:5901/stream/swyh.wav", 48000, 2, 16, false)
	if err != nil {
		t.Fatalf("mediaFor: %v", err)
	}
	if m.Encoding.Container != encode.WAV {
		t.Errorf("expected WAV, got %s", m.Encoding)
	}
}

func TestMediaForRejectsBadFormat(t *testing.T) {
	tests := []struct {
		name                 string
		rate, channels, bits int
	}{
		{"bit depth", 48000, 2, 32},
		{"rate", 0, 2, 16},
		{"channels", 48000, 0, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mediaFor("http://x/", tt.rate, tt.channels, tt.bits, false); err == nil {
				t.Error("expected error")
			}
		})
	}
}
