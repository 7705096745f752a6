// ABOUTME: Discovered media renderer model
// ABOUTME: Device identity, control dialect and resolved service endpoints
package renderer

import (
	"fmt"
)

// Dialect is the device-control protocol a renderer speaks
type Dialect int

const (
	// OpenHome renderers are controlled through the Playlist service
	OpenHome Dialect = iota + 1
	// AVTransport renderers are controlled through UPnP AVTransport
	AVTransport
)

func (d Dialect) String() string {
	switch d {
	case OpenHome:
		return "OpenHome"
	case AVTransport:
		return "AVTransport"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Service type URNs used for control
const (
	ServicePlaylist         = "urn:av-openhome-org:service:Playlist:1"
	ServiceProduct          = "urn:av-openhome-org:service:Product:1"
	ServiceAVTransport      = "urn:schemas-upnp-org:service:AVTransport:1"
	ServiceRenderingControl = "urn:schemas-upnp-org:service:RenderingControl:1"
)

// Service is one control endpoint advertised in a device description
type Service struct {
	Type       string // namespace used in SOAP actions
	ID         string
	ControlURL string // absolute
}

// Renderer is a playback device found on the network. Values are copied
// out of the discovery registry, never shared.
type Renderer struct {
	ID         string // UDN
	Name       string
	Model      string
	DeviceType string
	Location   string
	RemoteAddr string // host of Location, matched against client streams
	Dialect    Dialect
	Services   map[string]Service // keyed by service type
}

// Service returns the endpoint for a service type
func (r Renderer) Service(serviceType string) (Service, bool) {
	svc, ok := r.Services[serviceType]
	return svc, ok
}

// Clone returns a deep copy of r
func (r Renderer) Clone() Renderer {
	c := r
	c.Services = make(map[string]Service, len(r.Services))
	for k, v := range r.Services {
		c.Services[k] = v
	}
	return c
}

func (r Renderer) String() string {
	return fmt.Sprintf("%s %s (%s) at %s", r.Name, r.Model, r.Dialect, r.RemoteAddr)
}
