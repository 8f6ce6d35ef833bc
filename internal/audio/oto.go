package audio

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto/v2"
)

const (
	otoChannelCount       = 2
	otoBitDepthInBytes    = 2
	otoFallbackSampleRate = 44100
)

// OtoBackend plays MP3 payloads through a lazily created oto output
// context. The context is shared by every handle and is pinned to the sample
// rate of the first decoded payload; dispatch recordings all come off the
// same recorder, so mixed rates do not occur in practice.
type OtoBackend struct {
	mu        sync.Mutex
	ctx       *oto.Context
	ready     chan struct{}
	suspended bool
}

func NewOtoBackend() *OtoBackend {
	return &OtoBackend{}
}

func (b *OtoBackend) Open(data []byte, onReady func(error)) (Handle, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mp3 decode: %w", err)
	}

	b.mu.Lock()
	if b.ctx == nil {
		rate := dec.SampleRate()
		if rate <= 0 {
			rate = otoFallbackSampleRate
		}
		ctx, ready, err := oto.NewContext(rate, otoChannelCount, otoBitDepthInBytes)
		if err != nil {
			b.mu.Unlock()
			return nil, fmt.Errorf("audio context: %w", err)
		}
		b.ctx = ctx
		b.ready = ready
	}
	player := b.ctx.NewPlayer(dec)
	ready := b.ready
	b.mu.Unlock()

	go func() {
		<-ready
		onReady(nil)
	}()

	return &otoHandle{player: player}, nil
}

func (b *OtoBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil || !b.suspended {
		return nil
	}
	if err := b.ctx.Resume(); err != nil {
		return err
	}
	b.suspended = false
	return nil
}

func (b *OtoBackend) Suspended() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suspended
}

// Suspend parks the output context, e.g. when the host page loses focus.
func (b *OtoBackend) Suspend() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil
	}
	if err := b.ctx.Suspend(); err != nil {
		return err
	}
	b.suspended = true
	return nil
}

type otoHandle struct {
	player oto.Player
}

func (h *otoHandle) Play() error {
	h.player.Play()
	return h.player.Err()
}

func (h *otoHandle) Pause() error {
	h.player.Pause()
	return h.player.Err()
}

func (h *otoHandle) Stop() {
	h.player.Pause()
	h.player.Reset()
}

func (h *otoHandle) SetVolume(v float64) {
	h.player.SetVolume(v)
}

func (h *otoHandle) Close() error {
	return h.player.Close()
}
