// ABOUTME: UPnP device description parsing on goupnp's description types
// ABOUTME: Extracts identity and control endpoints and classifies the dialect
package renderer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"github.com/huin/goupnp"
	"golang.org/x/net/html/charset"
)

// ErrDescriptionParse marks a description document that cannot be used
var ErrDescriptionParse = errors.New("renderer: invalid device description")

// ErrNotRenderer marks a device that exposes neither control dialect
var ErrNotRenderer = errors.New("renderer: device has no supported control service")

// ParseDescription reads a device description fetched from location. The
// first device in the tree that carries a control service wins.
func ParseDescription(r io.Reader, location string) (Renderer, error) {
	var root goupnp.RootDevice
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&root); err != nil {
		return Renderer{}, fmt.Errorf("%w: %v", ErrDescriptionParse, err)
	}

	locURL, err := url.Parse(location)
	if err != nil || locURL.Host == "" {
		return Renderer{}, fmt.Errorf("%w: bad location %q", ErrDescriptionParse, location)
	}

	base := locURL
	if s := strings.TrimSpace(root.URLBaseStr); s != "" {
		if b, err := url.Parse(s); err == nil && b.Host != "" {
			base = b
		}
	}

	dev, ok := findControllable(&root.Device)
	if !ok {
		return Renderer{}, fmt.Errorf("%w: %s", ErrNotRenderer, root.Device.FriendlyName)
	}

	udn := strings.TrimSpace(dev.UDN)
	if udn == "" {
		return Renderer{}, fmt.Errorf("%w: missing UDN", ErrDescriptionParse)
	}

	r0 := Renderer{
		ID:         udn,
		Name:       strings.TrimSpace(dev.FriendlyName),
		Model:      strings.TrimSpace(dev.ModelName),
		DeviceType: strings.TrimSpace(dev.DeviceType),
		Location:   location,
		RemoteAddr: hostOnly(locURL.Host),
		Services:   make(map[string]Service),
	}

	for _, s := range dev.Services {
		control, ok := resolve(base, s.ControlURL)
		if !ok {
			continue
		}
		st := strings.TrimSpace(s.ServiceType)
		r0.Services[st] = Service{
			Type:       st,
			ID:         strings.TrimSpace(s.ServiceId),
			ControlURL: control,
		}
	}

	r0.Dialect = classify(r0.Services)
	return r0, nil
}

// resolve applies RFC 3986 reference resolution. URLField.SetURLBase roots
// every relative path, which loses a URLBase that carries a path.
func resolve(base *url.URL, field goupnp.URLField) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(field.Str))
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// classify prefers OpenHome when a device supports both dialects
func classify(services map[string]Service) Dialect {
	if _, ok := services[ServicePlaylist]; ok {
		return OpenHome
	}
	if _, ok := services[ServiceAVTransport]; ok {
		return AVTransport
	}
	return 0
}

func findControllable(d *goupnp.Device) (*goupnp.Device, bool) {
	for _, s := range d.Services {
		st := strings.TrimSpace(s.ServiceType)
		if st == ServicePlaylist || st == ServiceAVTransport {
			return d, true
		}
	}
	for i := range d.Devices {
		if found, ok := findControllable(&d.Devices[i]); ok {
			return found, true
		}
	}
	return nil, false
}

func hostOnly(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}
