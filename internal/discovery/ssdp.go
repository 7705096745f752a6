// ABOUTME: SSDP multicast search for media renderers
// ABOUTME: Sends M-SEARCH requests and collects distinct LOCATION URLs
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/ipv4"
)

// SSDP multicast group
const (
	MulticastAddr = "239.255.255.250:1900"
	multicastTTL  = 2
)

// SearchTargets are the ST values sent in each cycle
var SearchTargets = []string{
	"urn:av-openhome-org:service:Product:1",
	"urn:schemas-upnp-org:service:RenderingControl:1",
	"urn:schemas-upnp-org:device:MediaRenderer:1",
}

// Searcher returns the description URLs of devices answering a search
type Searcher interface {
	Search(ctx context.Context, targets []string, window time.Duration) ([]string, error)
}

// MulticastSearcher searches the LAN over UDP multicast
type MulticastSearcher struct {
	// Interface selects the outgoing interface; nil uses the system default
	Interface *net.Interface
	Logger    *slog.Logger
}

func searchRequest(target string, mx int) []byte {
	return []byte(fmt.Sprintf("M-SEARCH * HTTP/1.1\r\n"+
		"HOST: %s\r\n"+
		"MAN: \"ssdp:discover\"\r\n"+
		"MX: %d\r\n"+
		"ST: %s\r\n"+
		"USER-AGENT: swyh-go UPnP/1.1\r\n\r\n", MulticastAddr, mx, target))
}

// Search multicasts one M-SEARCH per target and reads responses until the
// window closes. No response is not an error.
func (s *MulticastSearcher) Search(ctx context.Context, targets []string, window time.Duration) ([]string, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	group, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve ssdp group: %w", err)
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("%w: listen: %v", ErrTransient, err)
	}
	defer conn.Close()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		logger.Debug("set multicast ttl", "error", err)
	}
	if s.Interface != nil {
		if err := pc.SetMulticastInterface(s.Interface); err != nil {
			logger.Warn("set multicast interface", "interface", s.Interface.Name, "error", err)
		}
	}

	mx := int(window / time.Second)
	if mx < 1 {
		mx = 1
	}
	for _, target := range targets {
		if _, err := pc.WriteTo(searchRequest(target, mx), nil, group); err != nil {
			return nil, fmt.Errorf("%w: send M-SEARCH: %v", ErrTransient, err)
		}
	}

	deadline := time.Now().Add(window)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := pc.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: read deadline: %v", ErrTransient, err)
	}

	// unblock the read when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { pc.SetReadDeadline(time.Now()) })
	defer stop()

	seen := make(map[string]bool)
	var locations []string
	buf := make([]byte, 2048)
	for {
		n, _, src, err := pc.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			return locations, fmt.Errorf("%w: read: %v", ErrTransient, err)
		}

		loc, ok := parseLocation(buf[:n])
		if !ok {
			logger.Debug("ignoring ssdp packet", "from", src)
			continue
		}
		if !seen[loc] {
			seen[loc] = true
			locations = append(locations, loc)
		}
	}

	if err := ctx.Err(); err != nil {
		return locations, err
	}
	return locations, nil
}

// parseLocation extracts LOCATION from an SSDP search response
func parseLocation(packet []byte) (string, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(packet)), nil)
	if err != nil {
		return "", false
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	loc := strings.TrimSpace(resp.Header.Get("Location"))
	return loc, loc != ""
}
