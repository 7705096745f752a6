// ABOUTME: Renderer control worker
// ABOUTME: Runs play and stop requests off the loop and reports results
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/swyh-go/swyh-go/internal/renderer"
)

// RendererControl issues transport commands to a renderer
type RendererControl interface {
	Play(ctx context.Context, r renderer.Renderer, m renderer.Media) error
	Stop(ctx context.Context, r renderer.Renderer) error
}

// ClientControl controls renderers over SOAP
type ClientControl struct {
	Client *renderer.Client
}

func (c ClientControl) Play(ctx context.Context, r renderer.Renderer, m renderer.Media) error {
	return renderer.Play(ctx, c.Client, r, m)
}

func (c ClientControl) Stop(ctx context.Context, r renderer.Renderer) error {
	return renderer.Stop(ctx, c.Client, r)
}

type controlJob struct {
	action   Action
	renderer renderer.Renderer
	media    renderer.Media
	resume   bool
}

// ControlWorker executes control requests one at a time
type ControlWorker struct {
	control RendererControl
	fabric  *Fabric
	logger  *slog.Logger
	jobs    chan controlJob
}

// NewControlWorker creates a worker reporting to fabric
func NewControlWorker(control RendererControl, fabric *Fabric, logger *slog.Logger) *ControlWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlWorker{
		control: control,
		fabric:  fabric,
		logger:  logger.With("component", "control"),
		jobs:    make(chan controlJob, DefaultQueueSize),
	}
}

// enqueue queues a job without blocking; false means the queue is full
func (w *ControlWorker) enqueue(j controlJob) bool {
	select {
	case w.jobs <- j:
		return true
	default:
		return false
	}
}

// Run executes jobs until ctx is cancelled
func (w *ControlWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-w.jobs:
			w.fabric.controlResult(w.execute(ctx, j))
		}
	}
}

func (w *ControlWorker) execute(ctx context.Context, j controlJob) ControlResult {
	res := ControlResult{RendererID: j.renderer.ID, Action: j.action, Resume: j.resume}

	callCtx, cancel := context.WithTimeout(ctx, renderer.DefaultControlTimeout)
	defer cancel()

	switch j.action {
	case ActionPlay:
		w.logger.Debug("sending play", "renderer", j.renderer.Name, "url", j.media.URL)
		res.Err = w.control.Play(callCtx, j.renderer, j.media)
	case ActionStop:
		w.logger.Debug("sending stop", "renderer", j.renderer.Name)
		res.Err = w.control.Stop(callCtx, j.renderer)
	default:
		res.Err = fmt.Errorf("unknown action %d", j.action)
	}
	return res
}
