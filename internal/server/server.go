// ABOUTME: HTTP streaming server for renderers
// ABOUTME: Serves the live capture as WAV or raw PCM and reports stream lifecycle
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/swyh-go/swyh-go/internal/stream"
	"github.com/swyh-go/swyh-go/internal/version"
	"github.com/swyh-go/swyh-go/pkg/audio/encode"
)

// Stream paths
const (
	PathWAV    = "/stream/swyh.wav"
	PathRAW    = "/stream/swyh.raw"
	PathEvents = "/events"
)

// StreamState is a stream lifecycle transition
type StreamState int

const (
	Started StreamState = iota + 1
	Ended
)

func (s StreamState) String() string {
	switch s {
	case Started:
		return "started"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("StreamState(%d)", int(s))
	}
}

// Feedback reports that a renderer connected to or left a stream
type Feedback struct {
	RemoteAddr string
	Path       string
	State      StreamState
	Encoding   encode.Encoding
}

// FeedbackSink receives stream lifecycle events. Implementations must not
// block.
type FeedbackSink interface {
	StreamFeedback(Feedback)
}

// Config holds server configuration
type Config struct {
	Port     int
	Registry *stream.Registry
	Feedback FeedbackSink
	Hub      *Hub // optional /events endpoint
	Logger   *slog.Logger
}

// Server streams captured audio to renderers over HTTP
type Server struct {
	config   Config
	serverID string
	logger   *slog.Logger

	mux        *http.ServeMux
	httpServer *http.Server

	shutdownMu sync.RWMutex
	isShutdown bool
	stopOnce   sync.Once
}

// New creates a server instance
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		logger:   logger.With("component", "server"),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc(PathWAV, s.streamHandler(encode.WAV))
	s.mux.HandleFunc(PathRAW, s.streamHandler(encode.RAW))
	if config.Hub != nil {
		s.mux.Handle(PathEvents, config.Hub)
	}
	s.mux.HandleFunc("/", http.NotFound)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ID returns the unique id of this server instance
func (s *Server) ID() string {
	return s.serverID
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ServerHeader is sent with every stream response
func ServerHeader() string {
	return fmt.Sprintf("%s/%s UPnP/1.0 DLNADOC/1.50", version.Product, version.Version)
}

// Run listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("streaming server listening", "addr", ln.Addr().String(), "id", s.serverID)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown ends every client stream, then stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.shutdownMu.Lock()
		s.isShutdown = true
		s.shutdownMu.Unlock()

		s.logger.Info("server shutting down")
		s.config.Registry.CloseAll()
		if s.config.Hub != nil {
			s.config.Hub.Close()
		}
		if serr := s.httpServer.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("HTTP server shutdown: %w", serr)
		}
	})
	return err
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShutdown
}

func (s *Server) emit(fb Feedback) {
	if s.config.Feedback != nil {
		s.config.Feedback.StreamFeedback(fb)
	}
}

func (s *Server) streamHandler(container encode.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.shuttingDown() {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}

		format := s.config.Registry.Format()
		enc := encode.Encoding{Container: container, BitDepth: format.BitDepth}

		h := w.Header()
		h.Set("Content-Type", encode.ContentType(enc, format))
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "close")
		h.Set("Server", ServerHeader())
		h.Set("transferMode.dlna.org", "Streaming")
		h.Set("contentFeatures.dlna.org", encode.ContentFeatures(enc))
		h.Set("Accept-Ranges", "none")

		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}

		remote := remoteHost(r.RemoteAddr)
		cs, err := s.config.Registry.Register(remote, enc)
		if err != nil {
			s.logger.Error("failed to register stream", "remote", remote, "error", err)
			http.Error(w, "encoding unavailable", http.StatusInternalServerError)
			return
		}

		s.logger.Info("stream started", "remote", remote, "path", r.URL.Path, "encoding", enc.String())
		fb := Feedback{RemoteAddr: remote, Path: r.URL.Path, Encoding: enc}
		fb.State = Started
		s.emit(fb)

		defer func() {
			s.config.Registry.Deregister(cs)
			s.logger.Info("stream ended", "remote", remote, "path", r.URL.Path)
			fb.State = Ended
			s.emit(fb)
		}()

		w.WriteHeader(http.StatusOK)
		rc := http.NewResponseController(w)
		if err := rc.Flush(); err != nil {
			s.logger.Debug("flush unsupported", "error", err)
		}

		for {
			chunk, err := cs.Pull(r.Context())
			if err != nil {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				s.logger.Debug("stream write failed", "remote", remote, "error", err)
				return
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return
			}
		}
	}
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
