// ABOUTME: mDNS advertisement of the streaming endpoint
// ABOUTME: Lets zeroconf clients find the live stream without SSDP
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/hashicorp/mdns"
	"github.com/swyh-go/swyh-go/internal/netaddr"
)

// ServiceType is the advertised mDNS service
const ServiceType = "_swyh._tcp"

// AdvertiseConfig describes the endpoint to advertise
type AdvertiseConfig struct {
	Instance string
	Port     int
	Paths    []string // stream paths, first is the default
	IPs      []net.IP // empty uses every IPv4 interface
	Logger   *slog.Logger
}

// Advertiser publishes the stream endpoint until its context ends
type Advertiser struct {
	config AdvertiseConfig
	logger *slog.Logger
}

// NewAdvertiser creates an advertiser
func NewAdvertiser(config AdvertiseConfig) *Advertiser {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Advertiser{config: config, logger: logger.With("component", "mdns")}
}

func (a *Advertiser) txt() []string {
	txt := make([]string, 0, len(a.config.Paths))
	for i, p := range a.config.Paths {
		if i == 0 {
			txt = append(txt, "path="+p)
			continue
		}
		txt = append(txt, fmt.Sprintf("path%d=%s", i, p))
	}
	return txt
}

// Run advertises until ctx is cancelled
func (a *Advertiser) Run(ctx context.Context) error {
	ips := a.config.IPs
	if len(ips) == 0 {
		var err error
		ips, err = netaddr.Interfaces()
		if err != nil {
			return fmt.Errorf("failed to get local IPs: %w", err)
		}
	}

	service, err := mdns.NewMDNSService(
		a.config.Instance,
		ServiceType,
		"",
		"",
		a.config.Port,
		ips,
		a.txt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	a.logger.Info("advertising stream", "instance", a.config.Instance, "port", a.config.Port, "type", ServiceType)

	<-ctx.Done()
	return server.Shutdown()
}
