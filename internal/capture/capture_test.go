// ABOUTME: Tests for capture sources
// ABOUTME: Tone generation, pacing, sample decoding and file looping
package capture

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/swyh-go/swyh-go/pkg/audio"
)

func TestToneGeneratorStereo(t *testing.T) {
	g := &toneGenerator{sampleRate: 48000, channels: 2, frequency: ToneFrequency}
	buf := make([]float32, 960*2)

	n, err := g.read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != len(buf) {
		t.Errorf("expected %d samples, got %d", len(buf), n)
	}
	if buf[0] != 0 {
		t.Errorf("expected first sample 0, got %f", buf[0])
	}

	var peak float32
	for i := 0; i < n; i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("frame %d: channels differ", i/2)
		}
		if v := float32(math.Abs(float64(buf[i]))); v > peak {
			peak = v
		}
	}
	if peak > 0.5001 || peak < 0.49 {
		t.Errorf("expected peak near 0.5, got %f", peak)
	}
	if g.sampleIndex != 960 {
		t.Errorf("expected sample index 960, got %d", g.sampleIndex)
	}
}

func TestToneSourceDeliversBlocks(t *testing.T) {
	src := NewToneSource(48000, 2, 16)
	if err := src.Format().Validate(); err != nil {
		t.Fatalf("format invalid: %v", err)
	}

	blocks := make(chan audio.Block, 16)
	if err := src.Start(func(b audio.Block) {
		select {
		case blocks <- b:
		default:
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Close()

	select {
	case b := <-blocks:
		if b.Len() != 960*2 {
			t.Errorf("expected 20ms block of %d samples, got %d", 960*2, b.Len())
		}
	case <-time.After(time.Second):
		t.Fatal("no block delivered")
	}
}

func TestPacedSourceClose(t *testing.T) {
	src := NewToneSource(8000, 1, 16)
	if err := src.Start(func(audio.Block) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := src.Start(func(audio.Block) {}); err == nil {
		t.Error("expected Start after Close to fail")
	}
}

func TestDecodeF32(t *testing.T) {
	values := []float32{0, 0.5, -1, 1}
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	got := decodeF32(raw)
	if len(got) != len(values) {
		t.Fatalf("expected %d samples, got %d", len(values), len(got))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("sample %d: expected %f, got %f", i, values[i], got[i])
		}
	}
}

type stubDecoder struct {
	chunks [][]float32
}

func (s *stubDecoder) read(dst []float32) (int, error) {
	if len(s.chunks) == 0 {
		return 0, nil
	}
	n := copy(dst, s.chunks[0])
	s.chunks = s.chunks[1:]
	return n, nil
}
func (s *stubDecoder) sampleRate() int { return 8000 }
func (s *stubDecoder) channels() int   { return 1 }

func TestMatchDevice(t *testing.T) {
	names := []string{
		"Built-in Audio Analog Stereo",
		"Monitor of Built-in Audio Analog Stereo",
		"USB Headset Monitor",
	}
	tests := []struct {
		want string
		idx  int
	}{
		{monitorHint, 1},
		{"usb headset", 2},
		{"built-in", 0},
		{"hdmi", -1},
	}
	for _, tt := range tests {
		if got := matchDevice(names, tt.want); got != tt.idx {
			t.Errorf("matchDevice(%q) = %d, want %d", tt.want, got, tt.idx)
		}
	}
	if got := matchDevice(nil, monitorHint); got != -1 {
		t.Errorf("expected -1 for no devices, got %d", got)
	}
}

func TestFillSpansLoopRestart(t *testing.T) {
	dec := &stubDecoder{chunks: [][]float32{{1, 2}, {}, {3, 4}}}
	dst := make([]float32, 4)

	n, err := fill(dec)(dst)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 samples across the restart, got %d", n)
	}
	if dst[2] != 3 {
		t.Errorf("expected samples after restart, got %v", dst)
	}
}

func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	data := make([]int, frames*2)
	for i := range data {
		data[i] = 16384
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 8000},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func TestFileSourceWAVLoops(t *testing.T) {
	// shorter than one 20ms block so every block crosses a loop
	path := writeTestWAV(t, 100)

	src, err := OpenFile(path, 16, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	f := src.Format()
	if f.SampleRate != 8000 || f.Channels != 2 {
		t.Errorf("unexpected format %s", f)
	}

	blocks := make(chan audio.Block, 4)
	src.Start(func(b audio.Block) {
		select {
		case blocks <- b:
		default:
		}
	})

	for i := 0; i < 2; i++ {
		select {
		case b := <-blocks:
			if b.Len() == 0 {
				t.Fatal("empty block")
			}
			if b.Samples[0] != 0.5 {
				t.Errorf("expected sample 0.5, got %f", b.Samples[0])
			}
		case <-time.After(time.Second):
			t.Fatal("no block delivered")
		}
	}
}

func TestOpenFileErrors(t *testing.T) {
	unsupported := filepath.Join(t.TempDir(), "a.ogg")
	os.WriteFile(unsupported, []byte("OggS"), 0o644)

	for _, path := range []string{"", "/nonexistent/file.mp3", unsupported} {
		if _, err := OpenFile(path, 16, nil); !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("%q: expected ErrDeviceUnavailable, got %v", path, err)
		}
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Config{Backend: "jack"}); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestOpenToneBackend(t *testing.T) {
	src, err := Open(Config{Backend: BackendTone, BitDepth: 24})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if got := src.Format().BitDepth; got != 24 {
		t.Errorf("expected bit depth 24, got %d", got)
	}
}
