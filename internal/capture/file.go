// ABOUTME: Looping audio file capture source
// ABOUTME: Decodes MP3, FLAC or WAV and plays it as if it were live input
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
	"github.com/swyh-go/swyh-go/pkg/audio"
)

// fileDecoder reads interleaved samples and restarts at end of file
type fileDecoder interface {
	read(dst []float32) (int, error)
	sampleRate() int
	channels() int
}

// OpenFile opens a looping file source. The extension selects the decoder.
func OpenFile(path string, bitDepth int, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no audio file configured", ErrDeviceUnavailable)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	var dec fileDecoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		dec, err = newMP3Decoder(f)
	case ".flac":
		dec, err = newFLACDecoder(f)
	case ".wav":
		dec, err = newWAVDecoder(f)
	default:
		err = fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .wav)", ext)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	format := audio.Format{
		SampleRate: dec.sampleRate(),
		Channels:   dec.channels(),
		Sample:     audio.SampleF32,
		BitDepth:   bitDepth,
	}
	logger.Info("loaded audio file", "file", filepath.Base(path), "format", format.String())

	return newPacedSource(format, fill(dec), f.Close, logger), nil
}

// fill reads until dst is full, since decoders return short reads at frame
// and loop boundaries.
func fill(dec fileDecoder) pullFunc {
	return func(dst []float32) (int, error) {
		total, empty := 0, 0
		for total < len(dst) && empty < 2 {
			n, err := dec.read(dst[total:])
			total += n
			if err != nil {
				return total, err
			}
			if n == 0 {
				// a single empty read marks a loop restart
				empty++
				continue
			}
			empty = 0
		}
		return total, nil
	}
}

func rewind(f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	return nil
}

type mp3Decoder struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &mp3Decoder{file: f, decoder: d}, nil
}

func (d *mp3Decoder) sampleRate() int { return d.decoder.SampleRate() }

// go-mp3 always decodes to stereo
func (d *mp3Decoder) channels() int { return 2 }

func (d *mp3Decoder) read(dst []float32) (int, error) {
	if cap(d.buf) < len(dst)*2 {
		d.buf = make([]byte, len(dst)*2)
	}
	buf := d.buf[:len(dst)*2]

	n, err := d.decoder.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	if errors.Is(err, io.EOF) {
		if err := rewind(d.file); err != nil {
			return samples, err
		}
		nd, err := mp3.NewDecoder(d.file)
		if err != nil {
			return samples, fmt.Errorf("failed to create new decoder: %w", err)
		}
		d.decoder = nd
	}
	return samples, nil
}

type flacDecoder struct {
	file     *os.File
	stream   *flac.Stream
	bitDepth int
	nch      int
	pending  []float32
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	return &flacDecoder{
		file:     f,
		stream:   stream,
		bitDepth: int(stream.Info.BitsPerSample),
		nch:      int(stream.Info.NChannels),
	}, nil
}

func (d *flacDecoder) sampleRate() int { return int(d.stream.Info.SampleRate) }
func (d *flacDecoder) channels() int   { return d.nch }

func (d *flacDecoder) read(dst []float32) (int, error) {
	if len(d.pending) == 0 {
		frame, err := d.stream.ParseNext()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return 0, err
			}
			if err := rewind(d.file); err != nil {
				return 0, err
			}
			ns, err := flac.New(d.file)
			if err != nil {
				return 0, fmt.Errorf("failed to create new stream: %w", err)
			}
			d.stream = ns
			return 0, nil
		}

		blockSize := int(frame.BlockSize)
		d.pending = make([]float32, 0, blockSize*d.nch)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < d.nch; ch++ {
				d.pending = append(d.pending, audio.IntToFloat(frame.Subframes[ch].Samples[i], d.bitDepth))
			}
		}
	}

	n := copy(dst, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

type wavDecoder struct {
	file     *os.File
	decoder  *wav.Decoder
	format   *goaudio.Format
	bitDepth int
	intBuf   *goaudio.IntBuffer
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	d.ReadInfo()
	format := d.Format()
	if format == nil || format.NumChannels == 0 || d.BitDepth == 0 {
		return nil, fmt.Errorf("unsupported WAV layout")
	}
	return &wavDecoder{file: f, decoder: d, format: format, bitDepth: int(d.BitDepth)}, nil
}

func (d *wavDecoder) sampleRate() int { return d.format.SampleRate }
func (d *wavDecoder) channels() int   { return d.format.NumChannels }

func (d *wavDecoder) read(dst []float32) (int, error) {
	if d.intBuf == nil || cap(d.intBuf.Data) < len(dst) {
		d.intBuf = &goaudio.IntBuffer{Data: make([]int, len(dst)), Format: d.format}
	} else {
		d.intBuf.Data = d.intBuf.Data[:len(dst)]
	}

	n, err := d.decoder.PCMBuffer(d.intBuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	for i := 0; i < n; i++ {
		dst[i] = audio.IntToFloat(int32(d.intBuf.Data[i]), d.bitDepth)
	}

	if n == 0 {
		if err := rewind(d.file); err != nil {
			return 0, err
		}
		d.decoder = wav.NewDecoder(d.file)
		d.decoder.ReadInfo()
	}
	return n, nil
}
