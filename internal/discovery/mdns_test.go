// ABOUTME: Tests for mDNS advertisement
// ABOUTME: Checks TXT records built from stream paths
package discovery

import (
	"testing"
)

func TestAdvertiserTXT(t *testing.T) {
	a := NewAdvertiser(AdvertiseConfig{
		Instance: "swyh-go",
		Port:     5901,
		Paths:    []string{"/stream/swyh.wav", "/stream/swyh.raw"},
	})

	txt := a.txt()
	if len(txt) != 2 {
		t.Fatalf("expected 2 records, got %d", len(txt))
	}
	if txt[0] != "path=/stream/swyh.wav" {
		t.Errorf("expected default path record, got %q", txt[0])
	}
	if txt[1] != "path1=/stream/swyh.raw" {
		t.Errorf("expected secondary path record, got %q", txt[1])
	}
}
