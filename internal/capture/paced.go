// ABOUTME: Real-time pacing for synthetic and file sources
// ABOUTME: Emits one 20ms block per tick from a pull function
package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

// pullFunc fills dst with interleaved samples and returns how many it wrote
type pullFunc func(dst []float32) (int, error)

// pacedSource turns a pull function into a live source
type pacedSource struct {
	format audio.Format
	pull   pullFunc
	closer func() error
	logger *slog.Logger

	started  bool
	startMu  sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newPacedSource(format audio.Format, pull pullFunc, closer func() error, logger *slog.Logger) *pacedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &pacedSource{
		format:   format,
		pull:     pull,
		closer:   closer,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *pacedSource) Format() audio.Format {
	return s.format
}

func (s *pacedSource) chunkSamples() int {
	return s.format.SampleRate * ChunkDurationMs / 1000 * s.format.Channels
}

func (s *pacedSource) Start(h Handler) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return fmt.Errorf("source already started")
	}
	select {
	case <-s.stopChan:
		return fmt.Errorf("source closed")
	default:
	}
	s.started = true

	go s.run(h)
	return nil
}

func (s *pacedSource) run(h Handler) {
	defer close(s.done)

	ticker := time.NewTicker(time.Duration(ChunkDurationMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			buf := make([]float32, s.chunkSamples())
			n, err := s.pull(buf)
			if err != nil {
				s.logger.Error("source read failed", "error", err)
				return
			}
			if n > 0 {
				h(audio.Block{Samples: buf[:n]})
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *pacedSource) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)

		s.startMu.Lock()
		started := s.started
		s.startMu.Unlock()
		if started {
			<-s.done
		}
		if s.closer != nil {
			err = s.closer()
		}
	})
	return err
}
