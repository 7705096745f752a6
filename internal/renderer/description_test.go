// ABOUTME: Tests for device description parsing
// ABOUTME: Dialect classification, URL resolution and malformed documents
package renderer

import (
	"errors"
	"strings"
	"testing"
)

const openHomeDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:av-openhome-org:device:Source:1</deviceType>
    <friendlyName>Living Room</friendlyName>
    <modelName>DS</modelName>
    <UDN>uuid:4c494e4e-0026-0f21-aaaa-01000000001</UDN>
    <serviceList>
      <service>
        <serviceType>urn:av-openhome-org:service:Product:1</serviceType>
        <serviceId>urn:av-openhome-org:serviceId:Product</serviceId>
        <controlURL>/Product/control</controlURL>
      </service>
      <service>
        <serviceType>urn:av-openhome-org:service:Playlist:1</serviceType>
        <serviceId>urn:av-openhome-org:serviceId:Playlist</serviceId>
        <controlURL>/Playlist/control</controlURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>
        <controlURL>/AVTransport/control</controlURL>
      </service>
    </serviceList>
  </device>
</root>`

const embeddedAVTransportDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <URLBase>http://192.168.1.40:49152/base/</URLBase>
  <device>
    <deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
    <friendlyName>Bridge</friendlyName>
    <UDN>uuid:bridge</UDN>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
        <friendlyName> Kitchen </friendlyName>
        <modelName>Speaker</modelName>
        <UDN>uuid:kitchen</UDN>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>
            <controlURL>upnp/control/avt</controlURL>
          </service>
        </serviceList>
      </device>
    </deviceList>
  </device>
</root>`

func TestParseOpenHomePreferred(t *testing.T) {
	r, err := ParseDescription(strings.NewReader(openHomeDescription), "http://192.168.1.20:55178/dev.xml")
	if err != nil {
		t.Fatalf("ParseDescription: %v", err)
	}

	if r.Dialect != OpenHome {
		t.Errorf("expected OpenHome, got %s", r.Dialect)
	}
	if r.ID != "uuid:4c494e4e-0026-0f21-aaaa-01000000001" {
		t.Errorf("unexpected ID %q", r.ID)
	}
	if r.RemoteAddr != "192.168.1.20" {
		t.Errorf("expected remote addr 192.168.1.20, got %q", r.RemoteAddr)
	}

	svc, ok := r.Service(ServicePlaylist)
	if !ok {
		t.Fatal("playlist service missing")
	}
	if svc.ControlURL != "http://192.168.1.20:55178/Playlist/control" {
		t.Errorf("unexpected control URL %q", svc.ControlURL)
	}
}

func TestParseEmbeddedDeviceWithURLBase(t *testing.T) {
	r, err := ParseDescription(strings.NewReader(embeddedAVTransportDescription), "http://192.168.1.40:49152/desc.xml")
	if err != nil {
		t.Fatalf("ParseDescription: %v", err)
	}

	if r.Dialect != AVTransport {
		t.Errorf("expected AVTransport, got %s", r.Dialect)
	}
	if r.Name != "Kitchen" || r.ID != "uuid:kitchen" {
		t.Errorf("expected embedded renderer, got %q %q", r.Name, r.ID)
	}

	svc, _ := r.Service(ServiceAVTransport)
	if want := "http://192.168.1.40:49152/base/upnp/control/avt"; svc.ControlURL != want {
		t.Errorf("expected %q, got %q", want, svc.ControlURL)
	}
}

func TestParseLatin1Description(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<root xmlns=\"urn:schemas-upnp-org:device-1-0\"><device>" +
		"<friendlyName>Caf\xe9</friendlyName><UDN>uuid:cafe</UDN>" +
		"<serviceList><service><serviceType>" + ServiceAVTransport + "</serviceType>" +
		"<controlURL> /avt </controlURL></service></serviceList></device></root>"

	r, err := ParseDescription(strings.NewReader(doc), "http://10.0.0.3:8080/desc.xml")
	if err != nil {
		t.Fatalf("ParseDescription: %v", err)
	}
	if r.Name != "Café" {
		t.Errorf("expected decoded name, got %q", r.Name)
	}
	svc, _ := r.Service(ServiceAVTransport)
	if svc.ControlURL != "http://10.0.0.3:8080/avt" {
		t.Errorf("unexpected control URL %q", svc.ControlURL)
	}
}

func TestParseDescriptionErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		location string
		want     error
	}{
		{"malformed xml", "<root><device>", "http://10.0.0.1/d.xml", ErrDescriptionParse},
		{"bad location", openHomeDescription, "not a url", ErrDescriptionParse},
		{
			"no control service",
			`<root><device><friendlyName>TV</friendlyName><UDN>uuid:tv</UDN></device></root>`,
			"http://10.0.0.1/d.xml",
			ErrNotRenderer,
		},
		{
			"missing udn",
			`<root><device><serviceList><service><serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType><controlURL>/c</controlURL></service></serviceList></device></root>`,
			"http://10.0.0.1/d.xml",
			ErrDescriptionParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescription(strings.NewReader(tt.doc), tt.location)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
