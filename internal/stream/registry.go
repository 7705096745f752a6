// ABOUTME: Shared map of active client streams keyed by remote address
// ABOUTME: Fans captured blocks out to every registered stream
package stream

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swyh-go/swyh-go/pkg/audio"
	"github.com/swyh-go/swyh-go/pkg/audio/encode"
)

// ClientStream is the live byte stream of one connected renderer
type ClientStream struct {
	RemoteAddr string
	Encoding   encode.Encoding
	Since      time.Time

	*Buffer
	encoder encode.Encoder

	// drop count already handed out by TakeDrops
	reported atomic.Uint64
}

// Info describes an active stream for display
type Info struct {
	RemoteAddr string
	Encoding   encode.Encoding
	Since      time.Time
	Stats      Stats
}

// RegistryConfig configures buffers created by the registry
type RegistryConfig struct {
	Format       audio.Format
	Capacity     int
	Policy       DropPolicy
	SilenceAfter time.Duration
	Logger       *slog.Logger
}

// Registry holds at most one stream per remote address. Readers drain their
// own buffers concurrently; register and deregister only touch the map.
type Registry struct {
	config RegistryConfig
	logger *slog.Logger

	streams   map[string]*ClientStream
	streamsMu sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry(config RegistryConfig) *Registry {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		config:  config,
		logger:  logger.With("component", "streams"),
		streams: make(map[string]*ClientStream),
	}
}

// Format returns the audio format streams are created with
func (r *Registry) Format() audio.Format {
	return r.config.Format
}

// Register creates a stream for remoteAddr. An existing stream for the same
// address is replaced and closed, so its reader sees end-of-stream.
func (r *Registry) Register(remoteAddr string, enc encode.Encoding) (*ClientStream, error) {
	encoder, err := encode.New(enc)
	if err != nil {
		return nil, err
	}

	format := r.config.Format.WithBitDepth(enc.BitDepth)
	bufConfig := BufferConfig{
		Capacity: r.config.Capacity,
		Policy:   r.config.Policy,
		Header:   encoder.Header(format),
	}
	if r.config.SilenceAfter > 0 {
		frames := int(r.config.SilenceAfter.Seconds() * float64(format.SampleRate))
		bufConfig.SilenceAfter = r.config.SilenceAfter
		bufConfig.Silence = encode.Silence(format, frames)
	}

	cs := &ClientStream{
		RemoteAddr: remoteAddr,
		Encoding:   enc,
		Since:      time.Now(),
		Buffer:     NewBuffer(bufConfig),
		encoder:    encoder,
	}

	r.streamsMu.Lock()
	old := r.streams[remoteAddr]
	r.streams[remoteAddr] = cs
	r.streamsMu.Unlock()

	if old != nil {
		r.logger.Info("replacing stream", "remote", remoteAddr)
		old.Close()
	}
	return cs, nil
}

// Deregister removes cs if it is still the registered stream for its
// address, and closes it.
func (r *Registry) Deregister(cs *ClientStream) {
	r.streamsMu.Lock()
	if r.streams[cs.RemoteAddr] == cs {
		delete(r.streams, cs.RemoteAddr)
	}
	r.streamsMu.Unlock()
	cs.Close()
}

// Drop closes and removes the stream for remoteAddr. Returns false when no
// stream was registered.
func (r *Registry) Drop(remoteAddr string) bool {
	r.streamsMu.Lock()
	cs, ok := r.streams[remoteAddr]
	delete(r.streams, remoteAddr)
	r.streamsMu.Unlock()

	if ok {
		cs.Close()
	}
	return ok
}

// Has reports whether remoteAddr has an active stream
func (r *Registry) Has(remoteAddr string) bool {
	r.streamsMu.RLock()
	defer r.streamsMu.RUnlock()
	_, ok := r.streams[remoteAddr]
	return ok
}

// Len returns the number of active streams
func (r *Registry) Len() int {
	r.streamsMu.RLock()
	defer r.streamsMu.RUnlock()
	return len(r.streams)
}

// Active returns the active streams sorted by address
func (r *Registry) Active() []Info {
	r.streamsMu.RLock()
	infos := make([]Info, 0, len(r.streams))
	for _, cs := range r.streams {
		infos = append(infos, Info{
			RemoteAddr: cs.RemoteAddr,
			Encoding:   cs.Encoding,
			Since:      cs.Since,
			Stats:      cs.Stats(),
		})
	}
	r.streamsMu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].RemoteAddr < infos[j].RemoteAddr })
	return infos
}

// TakeDrops returns, per remote address, the chunks dropped since the
// previous call. Streams with nothing new are left out.
func (r *Registry) TakeDrops() map[string]uint64 {
	r.streamsMu.RLock()
	defer r.streamsMu.RUnlock()

	var drops map[string]uint64
	for addr, cs := range r.streams {
		total := cs.Stats().Dropped
		if prev := cs.reported.Swap(total); total > prev {
			if drops == nil {
				drops = make(map[string]uint64)
			}
			drops[addr] = total - prev
		}
	}
	return drops
}

// Broadcast pushes block to every stream. Each distinct encoding is encoded
// once per block and the bytes are shared read-only between streams. It
// never logs per push; overflow is picked up through TakeDrops.
func (r *Registry) Broadcast(block audio.Block) {
	r.streamsMu.RLock()
	defer r.streamsMu.RUnlock()

	if len(r.streams) == 0 {
		return
	}

	encoded := make(map[encode.Encoding][]byte, 2)
	for _, cs := range r.streams {
		data, ok := encoded[cs.Encoding]
		if !ok {
			var err error
			data, err = cs.encoder.Encode(block.Samples)
			if err != nil {
				r.logger.Error("encode failed", "encoding", cs.Encoding.String(), "error", err)
				continue
			}
			encoded[cs.Encoding] = data
		}

		// a closed buffer means the reader is already gone
		_, _ = cs.Push(data)
	}
}

// CloseAll closes and removes every stream
func (r *Registry) CloseAll() {
	r.streamsMu.Lock()
	streams := r.streams
	r.streams = make(map[string]*ClientStream)
	r.streamsMu.Unlock()

	for _, cs := range streams {
		cs.Close()
	}
}
