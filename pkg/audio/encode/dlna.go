// ABOUTME: DLNA media descriptors for the wire encodings
// ABOUTME: Content types and protocolInfo strings advertised to renderers
package encode

import (
	"fmt"

	"github.com/swyh-go/swyh-go/pkg/audio"
)

// dlnaFlags: streaming transfer mode, background transfer, connection stalling
const dlnaFlags = "DLNA.ORG_OP=00;DLNA.ORG_CI=0;DLNA.ORG_FLAGS=01700000000000000000000000000000"

// ContentType returns the MIME type served for an encoding
func ContentType(enc Encoding, format audio.Format) string {
	if enc.Container == WAV {
		return "audio/wav"
	}
	return fmt.Sprintf("audio/L%d;rate=%d;channels=%d", enc.BitDepth, format.SampleRate, format.Channels)
}

// ContentFeatures returns the contentFeatures.dlna.org header value
func ContentFeatures(enc Encoding) string {
	if enc.Container == RAW && enc.BitDepth == 16 {
		return "DLNA.ORG_PN=LPCM;" + dlnaFlags
	}
	return dlnaFlags
}

// ProtocolInfo returns the DIDL-Lite res@protocolInfo for an encoding
func ProtocolInfo(enc Encoding, format audio.Format) string {
	return fmt.Sprintf("http-get:*:%s:%s", ContentType(enc, format), ContentFeatures(enc))
}
