// ABOUTME: Tests for the client stream registry
// ABOUTME: Replacement by address, deregistration and concurrent fan-out
package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/swyh-go/swyh-go/pkg/audio"
	"github.com/swyh-go/swyh-go/pkg/audio/encode"
)

var testFormat = audio.Format{SampleRate: 44100, Channels: 2, Sample: audio.SampleF32, BitDepth: 16}

var wav16 = encode.Encoding{Container: encode.WAV, BitDepth: 16}

func newTestRegistry(capacity int) *Registry {
	return NewRegistry(RegistryConfig{Format: testFormat, Capacity: capacity})
}

func TestRegisterSendsWAVHeaderFirst(t *testing.T) {
	r := newTestRegistry(8)
	cs, err := r.Register("10.0.0.5", wav16)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	chunk, err := cs.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if !bytes.Equal(chunk, encode.WAVHeader(testFormat)) {
		t.Errorf("first chunk is not the WAV header: % x", chunk)
	}
}

func TestRegisterReplacesSameAddress(t *testing.T) {
	r := newTestRegistry(8)

	first, _ := r.Register("10.0.0.5", wav16)
	first.Pull(context.Background()) // header

	second, _ := r.Register("10.0.0.5", wav16)

	if r.Len() != 1 {
		t.Fatalf("expected 1 registered stream, got %d", r.Len())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := first.Pull(ctx); err != io.EOF {
		t.Errorf("expected replaced stream to end, got %v", err)
	}

	if second.Closed() {
		t.Error("replacement stream should be open")
	}
}

func TestDeregisterReplacedStreamKeepsNewOne(t *testing.T) {
	r := newTestRegistry(8)

	first, _ := r.Register("10.0.0.5", wav16)
	second, _ := r.Register("10.0.0.5", wav16)

	// the old handler exits after its replacement connected
	r.Deregister(first)

	if !r.Has("10.0.0.5") {
		t.Fatal("deregistering the replaced stream removed the new one")
	}

	r.Deregister(second)
	if r.Has("10.0.0.5") {
		t.Error("expected stream to be removed")
	}
}

func TestDrop(t *testing.T) {
	r := newTestRegistry(8)
	cs, _ := r.Register("10.0.0.7", wav16)

	if !r.Drop("10.0.0.7") {
		t.Fatal("expected Drop to find the stream")
	}
	if !cs.Closed() {
		t.Error("dropped stream should be closed")
	}
	if r.Drop("10.0.0.7") {
		t.Error("second Drop should report nothing removed")
	}
}

func TestBroadcastEncodesPerStream(t *testing.T) {
	r := newTestRegistry(8)
	wav, _ := r.Register("10.0.0.1", wav16)
	raw, _ := r.Register("10.0.0.2", encode.Encoding{Container: encode.RAW, BitDepth: 16})

	r.Broadcast(audio.NewBlock([]float32{1.0, -1.0}))

	ctx := context.Background()
	wav.Pull(ctx) // header
	wavData, _ := wav.Pull(ctx)
	rawData, _ := raw.Pull(ctx)

	if got := int16(binary.LittleEndian.Uint16(wavData)); got != 32767 {
		t.Errorf("wav: expected little-endian 32767, got %d", got)
	}
	if got := int16(binary.BigEndian.Uint16(rawData)); got != 32767 {
		t.Errorf("raw: expected big-endian 32767, got %d", got)
	}
}

func TestTakeDropsReportsDeltas(t *testing.T) {
	r := newTestRegistry(2)
	slow, _ := r.Register("10.0.0.9", wav16)
	fast, _ := r.Register("10.0.0.8", wav16)

	if drops := r.TakeDrops(); len(drops) != 0 {
		t.Fatalf("expected no drops yet, got %v", drops)
	}

	fast.Pull(context.Background()) // header
	block := audio.NewBlock([]float32{0.5, -0.5})
	for i := 0; i < 5; i++ {
		r.Broadcast(block)
		if i < 4 {
			fast.Pull(context.Background())
		}
	}

	drops := r.TakeDrops()
	if len(drops) != 1 || drops["10.0.0.9"] != slow.Stats().Dropped || drops["10.0.0.9"] == 0 {
		t.Fatalf("expected drops only for the slow client, got %v (stats %+v)", drops, slow.Stats())
	}
	if again := r.TakeDrops(); len(again) != 0 {
		t.Errorf("expected drops consumed, got %v", again)
	}

	r.Broadcast(block)
	r.Broadcast(block)
	if drops := r.TakeDrops(); drops["10.0.0.9"] != 2 {
		t.Errorf("expected 2 new drops, got %v", drops)
	}
}

func TestBroadcastConcurrentConsumers(t *testing.T) {
	const (
		clients = 8
		blocks  = 200
	)

	r := newTestRegistry(blocks)
	streams := make([]*ClientStream, clients)
	for i := range streams {
		cs, err := r.Register(fmt.Sprintf("10.0.1.%d", i), wav16)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		streams[i] = cs
	}

	var wg sync.WaitGroup
	results := make([][]int16, clients)
	errs := make(chan error, clients)

	for i, cs := range streams {
		wg.Add(1)
		go func(i int, cs *ClientStream) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if _, err := cs.Pull(ctx); err != nil { // header
				errs <- err
				return
			}
			for n := 0; n < blocks; n++ {
				chunk, err := cs.Pull(ctx)
				if err != nil {
					errs <- err
					return
				}
				results[i] = append(results[i], int16(binary.LittleEndian.Uint16(chunk)))
				// consumers drain at different speeds
				if i%2 == 0 {
					time.Sleep(time.Duration(i) * 10 * time.Microsecond)
				}
			}
		}(i, cs)
	}

	for n := 0; n < blocks; n++ {
		r.Broadcast(audio.NewBlock([]float32{(float32(n) + 0.5) / 32767.0}))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("consumer error: %v", err)
	}

	for i, got := range results {
		if len(got) != blocks {
			t.Fatalf("client %d: expected %d blocks, got %d", i, blocks, len(got))
		}
		for n, v := range got {
			if int(v) != n {
				t.Fatalf("client %d: block %d out of order (got %d)", i, n, v)
			}
		}
	}
}

func TestActiveAndCloseAll(t *testing.T) {
	r := newTestRegistry(8)
	a, _ := r.Register("10.0.0.2", wav16)
	b, _ := r.Register("10.0.0.1", wav16)

	active := r.Active()
	if len(active) != 2 || active[0].RemoteAddr != "10.0.0.1" {
		t.Errorf("unexpected active list: %+v", active)
	}

	r.CloseAll()
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
	if !a.Closed() || !b.Closed() {
		t.Error("expected all streams closed")
	}
}
