// ABOUTME: Entry point for the swyh-go audio streamer
// ABOUTME: Parses flags, wires capture, server, discovery and front-ends
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/swyh-go/swyh-go/internal/app"
	"github.com/swyh-go/swyh-go/internal/capture"
	"github.com/swyh-go/swyh-go/internal/config"
	"github.com/swyh-go/swyh-go/internal/discovery"
	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/meter"
	"github.com/swyh-go/swyh-go/internal/netaddr"
	"github.com/swyh-go/swyh-go/internal/renderer"
	"github.com/swyh-go/swyh-go/internal/server"
	"github.com/swyh-go/swyh-go/internal/stream"
	"github.com/swyh-go/swyh-go/internal/ui"
	"github.com/swyh-go/swyh-go/internal/version"
	"github.com/swyh-go/swyh-go/pkg/audio"
	"github.com/swyh-go/swyh-go/pkg/audio/encode"
	"golang.org/x/sync/errgroup"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	backend     = flag.String("backend", "", "Capture backend: malgo, portaudio, tone, file")
	device      = flag.String("device", "", "Capture device name or substring")
	audioFile   = flag.String("file", "", "Audio file for the file backend (MP3, FLAC, WAV)")
	port        = flag.Int("port", 0, "HTTP streaming port")
	listDevices = flag.Bool("list-devices", false, "List capture devices and exit")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, log to the console instead")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	if *listDevices {
		names, err := capture.Devices(capture.Backend(cfg.Backend))
		if err != nil {
			fmt.Fprintf(os.Stderr, "listing devices: %v\n", err)
			os.Exit(1)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	if err := run(cfg); err != nil {
		if errors.Is(err, capture.ErrDeviceUnavailable) {
			fmt.Fprintf(os.Stderr, "capture: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.Default()
		cfg = &def
	}

	if *backend != "" {
		cfg.Backend = *backend
	}
	if *device != "" {
		cfg.SoundSource = *device
	}
	if *audioFile != "" {
		cfg.AudioFile = *audioFile
		if *backend == "" {
			cfg.Backend = string(capture.BackendFile)
		}
	}
	if *port != 0 {
		cfg.ServerPort = *port
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	useTUI := !*noTUI
	fabric := app.NewFabric(app.DefaultQueueSize)

	// the TUI owns the terminal, so console output is discarded and the log
	// pane shows records instead
	var console io.Writer = os.Stderr
	if useTUI {
		console = io.Discard
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Console: console,
		File:    cfg.LogFile,
		Sink:    fabric.LogLine,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting", "product", version.Product, "version", version.Version, "backend", cfg.Backend)

	src, err := capture.Open(capture.Config{
		Backend:  capture.Backend(cfg.Backend),
		Device:   cfg.SoundSource,
		File:     cfg.AudioFile,
		BitDepth: cfg.BitsPerSample,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer src.Close()
	format := src.Format()

	localIP, err := netaddr.Resolve(cfg.LocalAddress)
	if err != nil {
		return fmt.Errorf("resolving local address: %w", err)
	}
	paths := []string{server.PathWAV, server.PathRAW}
	enc := encode.Encoding{Container: encode.WAV, BitDepth: format.BitDepth}
	if !cfg.UseWaveFormat {
		paths[0], paths[1] = paths[1], paths[0]
		enc.Container = encode.RAW
	}
	streamURL := fmt.Sprintf("http://%s%s", net.JoinHostPort(localIP.String(), strconv.Itoa(cfg.ServerPort)), paths[0])
	logger.Info("stream endpoint", "url", streamURL, "format", format.String())

	policy := stream.DropOldest
	if cfg.DropPolicy == "newest" {
		policy = stream.DropNewest
	}
	var silenceAfter time.Duration
	if cfg.InjectSilence {
		silenceAfter = 4 * capture.ChunkDurationMs * time.Millisecond
	}
	registry := stream.NewRegistry(stream.RegistryConfig{
		Format:       format,
		Capacity:     cfg.BufferChunks,
		Policy:       policy,
		SilenceAfter: silenceAfter,
		Logger:       logger,
	})

	hub := server.NewHub(logger)
	srv := server.New(server.Config{
		Port:     cfg.ServerPort,
		Registry: registry,
		Feedback: fabric,
		Hub:      hub,
		Logger:   logger,
	})

	searcher := &discovery.MulticastSearcher{Logger: logger}
	if iface, err := netaddr.InterfaceFor(localIP); err == nil {
		searcher.Interface = iface
	} else {
		logger.Warn("using default multicast interface", "error", err)
	}
	updater := discovery.NewUpdater(discovery.Config{
		Searcher: searcher,
		Sink:     fabric,
		Interval: cfg.SSDPInterval(),
		Window:   cfg.DiscoveryWindow(),
		Logger:   logger,
	})

	worker := app.NewControlWorker(app.ClientControl{Client: renderer.NewClient()}, fabric, logger)

	views := []app.View{app.HubView{Publisher: hub}}
	var tui *ui.TUI
	if useTUI {
		tui = ui.New(fabric.Submit)
		views = append(views, tui)
	}

	loop := app.NewLoop(app.LoopConfig{
		Fabric:     fabric,
		Streams:    registry,
		Worker:     worker,
		Media:      renderer.Media{URL: streamURL, Format: format, Encoding: enc},
		AutoResume: cfg.AutoResume,
		Views:      views,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	meterIn := make(chan audio.Block, 16)
	if err := src.Start(func(b audio.Block) {
		registry.Broadcast(b)
		select {
		case meterIn <- b:
		default:
		}
	}); err != nil {
		return fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return updater.Run(ctx) })
	g.Go(func() error { return meter.Run(ctx, format, meterIn, fabric.Level) })
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return loop.Run(ctx) })

	if cfg.EnableMDNS {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		adv := discovery.NewAdvertiser(discovery.AdvertiseConfig{
			Instance: fmt.Sprintf("%s-%s", hostname, version.Product),
			Port:     cfg.ServerPort,
			Paths:    paths,
			IPs:      []net.IP{localIP},
			Logger:   logger,
		})
		g.Go(func() error {
			// advertisement is optional, a failure only loses it
			if err := adv.Run(ctx); err != nil {
				logger.Warn("mDNS advertisement stopped", "error", err)
			}
			return nil
		})
	}

	if tui != nil {
		g.Go(func() error {
			err := tui.Run(ctx)
			stop()
			return err
		})
	} else {
		logger.Info("press Ctrl-C to stop")
	}

	err = g.Wait()
	logger.Info("shut down")
	return err
}
