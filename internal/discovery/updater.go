// ABOUTME: Periodic renderer discovery and registry
// ABOUTME: Fetches device descriptions and reports each new renderer once
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/swyh-go/swyh-go/internal/renderer"
)

// ErrTransient marks network failures that the next cycle may not repeat
var ErrTransient = errors.New("discovery: transient failure")

// Defaults
const (
	DefaultInterval     = 10 * time.Minute
	DefaultWindow       = 4 * time.Second
	DefaultFetchTimeout = 5 * time.Second

	maxDescriptionSize = 1 << 20
)

// Sink receives newly discovered renderers
type Sink interface {
	RendererFound(r renderer.Renderer)
}

// Config configures an Updater
type Config struct {
	Searcher Searcher
	Sink     Sink
	HTTP     *http.Client
	Interval time.Duration
	Window   time.Duration
	Logger   *slog.Logger
}

// Updater owns the set of known renderers
type Updater struct {
	config Config
	logger *slog.Logger

	known   map[string]renderer.Renderer
	knownMu sync.RWMutex
}

// NewUpdater creates an updater with defaults applied
func NewUpdater(config Config) *Updater {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.HTTP == nil {
		config.HTTP = &http.Client{Timeout: DefaultFetchTimeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Searcher == nil {
		config.Searcher = &MulticastSearcher{Logger: logger}
	}

	return &Updater{
		config: config,
		logger: logger.With("component", "discovery"),
		known:  make(map[string]renderer.Renderer),
	}
}

// RunCycle performs one search and returns the renderers not seen before.
// Per-device failures are logged and skipped.
func (u *Updater) RunCycle(ctx context.Context) ([]renderer.Renderer, error) {
	locations, err := u.config.Searcher.Search(ctx, SearchTargets, u.config.Window)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		u.logger.Warn("ssdp search failed", "error", err)
		if len(locations) == 0 {
			return nil, nil
		}
	}

	var found []renderer.Renderer
	for _, loc := range locations {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}

		r, err := u.fetch(ctx, loc)
		if err != nil {
			if errors.Is(err, renderer.ErrNotRenderer) {
				u.logger.Debug("skipping device", "location", loc, "error", err)
			} else {
				u.logger.Warn("skipping device", "location", loc, "error", err)
			}
			continue
		}

		u.knownMu.Lock()
		_, seen := u.known[r.ID]
		if !seen {
			u.known[r.ID] = r.Clone()
		}
		u.knownMu.Unlock()
		if seen {
			continue
		}

		u.logger.Info("found renderer", "name", r.Name, "model", r.Model,
			"dialect", r.Dialect.String(), "addr", r.RemoteAddr)
		found = append(found, r)
		if u.config.Sink != nil {
			u.config.Sink.RendererFound(r.Clone())
		}
	}
	return found, nil
}

func (u *Updater) fetch(ctx context.Context, location string) (renderer.Renderer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return renderer.Renderer{}, fmt.Errorf("%w: %v", renderer.ErrDescriptionParse, err)
	}

	resp, err := u.config.HTTP.Do(req)
	if err != nil {
		return renderer.Renderer{}, fmt.Errorf("%w: fetch %s: %v", ErrTransient, location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return renderer.Renderer{}, fmt.Errorf("%w: fetch %s: HTTP %d", ErrTransient, location, resp.StatusCode)
	}

	return renderer.ParseDescription(io.LimitReader(resp.Body, maxDescriptionSize), location)
}

// Run performs a cycle immediately and then once per interval until ctx is
// cancelled.
func (u *Updater) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := u.RunCycle(ctx); err != nil && ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Lookup returns a copy of a known renderer
func (u *Updater) Lookup(id string) (renderer.Renderer, bool) {
	u.knownMu.RLock()
	defer u.knownMu.RUnlock()
	r, ok := u.known[id]
	if !ok {
		return renderer.Renderer{}, false
	}
	return r.Clone(), true
}

// Known returns copies of all known renderers sorted by name
func (u *Updater) Known() []renderer.Renderer {
	u.knownMu.RLock()
	out := make([]renderer.Renderer, 0, len(u.known))
	for _, r := range u.known {
		out = append(out, r.Clone())
	}
	u.knownMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
