// ABOUTME: Diagnostic tool for renderer discovery and control
// ABOUTME: Runs one SSDP search, lists renderers and optionally plays or stops one
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/swyh-go/swyh-go/internal/discovery"
	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/netaddr"
	"github.com/swyh-go/swyh-go/internal/renderer"
	"github.com/swyh-go/swyh-go/pkg/audio"
	"github.com/swyh-go/swyh-go/pkg/audio/encode"
)

var (
	window    = flag.Duration("window", discovery.DefaultWindow, "How long to collect search responses")
	localAddr = flag.String("local-address", "", "Local IPv4 address to search from")
	play      = flag.String("play", "", "UDN of a renderer to send the stream URL to")
	stop      = flag.String("stop", "", "UDN of a renderer to stop")
	url       = flag.String("url", "", "Stream URL for -play")
	rate      = flag.Int("rate", 48000, "Sample rate the stream at -url is served with")
	channels  = flag.Int("channels", 2, "Channel count of the stream at -url")
	bits      = flag.Int("bits", 16, "Bits per sample of the stream at -url (16 or 24)")
	raw       = flag.Bool("raw", false, "Stream at -url is headerless L16/L24 rather than WAV")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

// mediaFor describes the stream at streamURL so the DIDL metadata sent to the
// renderer matches what the server actually serves
func mediaFor(streamURL string, rate, channels, bits int, raw bool) (renderer.Media, error) {
	format := audio.Format{SampleRate: rate, Channels: channels, Sample: audio.SampleF32, BitDepth: bits}
	if err := format.Validate(); err != nil {
		return renderer.Media{}, err
	}
	enc := encode.Encoding{Container: encode.WAV, BitDepth: bits}
	if raw {
		enc.Container = encode.RAW
	}
	return renderer.Media{URL: streamURL, Format: format, Encoding: enc}, nil
}

type collector []renderer.Renderer

func (c *collector) RendererFound(r renderer.Renderer) { *c = append(*c, r) }

func main() {
	flag.Parse()

	var media renderer.Media
	if *play != "" {
		if *url == "" {
			log.Fatal("-play requires -url")
		}
		m, err := mediaFor(*url, *rate, *channels, *bits, *raw)
		if err != nil {
			log.Fatalf("invalid stream format: %v", err)
		}
		media = m
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	logger, _, err := logging.New(logging.Options{Level: level})
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	searcher := &discovery.MulticastSearcher{Logger: logger}
	if ip, err := netaddr.Resolve(*localAddr); err == nil {
		if iface, err := netaddr.InterfaceFor(ip); err == nil {
			searcher.Interface = iface
		}
	}

	var found collector
	updater := discovery.NewUpdater(discovery.Config{
		Searcher: searcher,
		Sink:     &found,
		Window:   *window,
		Logger:   logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *window+discovery.DefaultFetchTimeout+5*time.Second)
	defer cancel()

	fmt.Printf("Searching for %s...\n", *window)
	if _, err := updater.RunCycle(ctx); err != nil {
		log.Fatalf("search failed: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tDIALECT\tADDRESS\tUDN")
	for _, r := range updater.Known() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Model, r.Dialect, r.RemoteAddr, r.ID)
	}
	w.Flush()

	client := renderer.NewClient()

	if *play != "" {
		r, ok := updater.Lookup(*play)
		if !ok {
			log.Fatalf("renderer %s not found", *play)
		}
		if err := renderer.Play(ctx, client, r, media); err != nil {
			log.Fatalf("play failed: %v", err)
		}
		fmt.Printf("Playing %s on %s\n", *url, r.Name)
	}

	if *stop != "" {
		r, ok := updater.Lookup(*stop)
		if !ok {
			log.Fatalf("renderer %s not found", *stop)
		}
		if err := renderer.Stop(ctx, client, r); err != nil {
			log.Fatalf("stop failed: %v", err)
		}
		fmt.Printf("Stopped %s\n", r.Name)
	}
}
