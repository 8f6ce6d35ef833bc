package audio

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Broadcast is the live broadcast channel: at most one raw-audio buffer
// plays at a time, and starting a new one stops the previous source
// synchronously. This stop-and-replace policy is intentionally different
// from the FIFO queue used for camera animation.
type Broadcast struct {
	log     zerolog.Logger
	backend Backend
	fetch   FetchFunc

	mu       sync.Mutex
	current  Handle
	seq      uint64
	readyGen uint64
	volume   float64
}

func NewBroadcast(backend Backend, fetch FetchFunc, log zerolog.Logger) *Broadcast {
	return &Broadcast{
		log:     log.With().Str("component", "broadcast").Logger(),
		backend: backend,
		fetch:   fetch,
		volume:  1.0,
	}
}

// Start fetches the complete payload for audioRef, decodes it fully, and
// plays it through the shared gain. Any previous source is stopped before
// the new fetch begins.
func (b *Broadcast) Start(audioRef string) {
	b.mu.Lock()
	b.seq++
	gen := b.seq
	if b.current != nil {
		b.current.Stop()
		_ = b.current.Close()
		b.current = nil
	}
	b.mu.Unlock()

	go b.run(gen, audioRef)
}

func (b *Broadcast) run(gen uint64, audioRef string) {
	data, err := b.fetch(context.Background(), audioRef)
	if err != nil {
		b.log.Warn().Err(err).Str("audio_ref", audioRef).Msg("broadcast fetch failed")
		return
	}

	handle, err := b.backend.Open(data, func(readyErr error) {
		if readyErr != nil {
			b.log.Warn().Err(readyErr).Str("audio_ref", audioRef).Msg("broadcast decode failed")
			return
		}
		b.sourceReady(gen)
	})
	if err != nil {
		b.log.Warn().Err(err).Str("audio_ref", audioRef).Msg("broadcast open failed")
		return
	}

	b.mu.Lock()
	if gen != b.seq {
		// Replaced while fetching; discard.
		b.mu.Unlock()
		_ = handle.Close()
		return
	}
	handle.SetVolume(b.volume)
	b.current = handle
	if b.readyGen == gen {
		// Decode signalled ready before the handle was installed.
		b.playLocked()
	}
	b.mu.Unlock()
}

func (b *Broadcast) sourceReady(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.seq {
		return
	}
	b.readyGen = gen
	if b.current != nil {
		b.playLocked()
	}
}

func (b *Broadcast) playLocked() {
	if b.backend.Suspended() {
		if err := b.backend.Resume(); err != nil {
			b.log.Debug().Err(err).Msg("output context suspended, broadcast skipped")
			return
		}
	}
	if err := b.current.Play(); err != nil {
		b.log.Warn().Err(err).Msg("broadcast playback failed")
	}
}

// Stop stops and discards the active source, if any.
func (b *Broadcast) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	if b.current != nil {
		b.current.Stop()
		_ = b.current.Close()
		b.current = nil
	}
}

// SetVolume adjusts the shared gain for the active and future sources.
func (b *Broadcast) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = level
	if b.current != nil {
		b.current.SetVolume(level)
	}
}

// Active reports whether a broadcast source is currently installed.
func (b *Broadcast) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}
