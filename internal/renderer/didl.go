// ABOUTME: DIDL-Lite metadata for the live stream resource
// ABOUTME: Describes title, protocol info and PCM parameters to the renderer
package renderer

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/swyh-go/swyh-go/pkg/audio"
	"github.com/swyh-go/swyh-go/pkg/audio/encode"
)

// StreamTitle is shown by renderers as the track title
const StreamTitle = "swyh-go"

// Media describes the stream a renderer is asked to play
type Media struct {
	URL      string
	Format   audio.Format
	Encoding encode.Encoding
}

// DIDL renders the DIDL-Lite item for m
func DIDL(m Media) string {
	format := m.Format.WithBitDepth(m.Encoding.BitDepth)

	var b bytes.Buffer
	b.WriteString(`<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"`)
	b.WriteString(` xmlns:dc="http://purl.org/dc/elements/1.1/"`)
	b.WriteString(` xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/">`)
	b.WriteString(`<item id="1" parentID="0" restricted="1">`)
	b.WriteString(`<dc:title>`)
	xml.EscapeText(&b, []byte(StreamTitle))
	b.WriteString(`</dc:title>`)
	b.WriteString(`<upnp:class>object.item.audioItem.musicTrack</upnp:class>`)
	fmt.Fprintf(&b, `<res protocolInfo="%s" sampleFrequency="%d" nrAudioChannels="%d" bitsPerSample="%d">`,
		attrEscape(encode.ProtocolInfo(m.Encoding, format)), format.SampleRate, format.Channels, format.BitDepth)
	xml.EscapeText(&b, []byte(m.URL))
	b.WriteString(`</res></item></DIDL-Lite>`)
	return b.String()
}

func attrEscape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
