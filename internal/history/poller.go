// Package history drives the talkgroup-history panel: one bulk seed scoped
// to the map's time window, then fixed-interval polls for newer records.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

// CallsAPI is the slice of the server client the poller needs.
type CallsAPI interface {
	TalkgroupCalls(ctx context.Context, talkgroupID string, hours int, sinceID string) ([]models.Incident, error)
}

// MuteControl lets the poller force the main new-call audio quiet while the
// panel is open. SetMuted returns the previous state so it can be restored.
type MuteControl interface {
	SetMuted(muted bool) bool
}

// Options configures a Poller.
type Options struct {
	TalkgroupID   string
	WindowHours   int
	Interval      time.Duration
	MaxItems      int
	Autoplay      bool
	AutoplayDelay time.Duration
	API           CallsAPI
	Audio         *audio.Orchestrator
	Mute          MuteControl
	Logger        zerolog.Logger
}

// Poller owns one open talkgroup-history view. Opening forces the main
// new-call audio to mute; Close restores the prior state, stops polling and
// destroys the view's audio sessions.
type Poller struct {
	opts Options
	log  zerolog.Logger

	mu        sync.Mutex
	items     []models.Incident // newest first
	newestID  string
	prevMuted bool
	closed    bool
	stop      chan struct{}
	wg        sync.WaitGroup
}

// Open seeds the list, forces mute, and starts the poll loop.
func Open(ctx context.Context, opts Options) (*Poller, error) {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = 50
	}
	if opts.AutoplayDelay <= 0 {
		opts.AutoplayDelay = 750 * time.Millisecond
	}
	p := &Poller{
		opts: opts,
		log: opts.Logger.With().
			Str("component", "history").
			Str("talkgroup", opts.TalkgroupID).
			Logger(),
		stop: make(chan struct{}),
	}
	if opts.Mute != nil {
		p.prevMuted = opts.Mute.SetMuted(true)
	}

	seed, err := opts.API.TalkgroupCalls(ctx, opts.TalkgroupID, opts.WindowHours, "")
	if err != nil {
		// Transient: the list starts empty and the next tick retries.
		p.log.Warn().Err(err).Msg("seed fetch failed")
	} else {
		p.ingest(seed, false)
	}

	p.wg.Add(1)
	go p.loop()
	return p, nil
}

func (p *Poller) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	p.mu.Lock()
	sinceID := p.newestID
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.Interval)
	defer cancel()
	calls, err := p.opts.API.TalkgroupCalls(ctx, p.opts.TalkgroupID, p.opts.WindowHours, sinceID)
	if err != nil {
		p.log.Warn().Err(err).Msg("poll failed")
		return
	}
	p.ingest(calls, p.opts.Autoplay)
}

// ingest prepends new records, primes their audio sessions in the history
// namespace, and prunes the list to its bound, destroying evicted sessions.
func (p *Poller) ingest(calls []models.Incident, autoplay bool) {
	if len(calls) == 0 {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	var added []models.Incident
	known := make(map[string]struct{}, len(p.items))
	for _, it := range p.items {
		known[it.ID] = struct{}{}
	}
	for _, call := range calls {
		if err := call.Validate(); err != nil {
			p.log.Warn().Err(err).Str("id", call.ID).Msg("rejected malformed call")
			continue
		}
		if _, ok := known[call.ID]; ok {
			continue
		}
		known[call.ID] = struct{}{}
		added = append(added, call)
	}
	// Server order is newest-last; prepend keeps the list newest-first.
	for _, call := range added {
		p.items = append([]models.Incident{call}, p.items...)
		p.newestID = call.ID
	}
	var evicted []models.Incident
	if len(p.items) > p.opts.MaxItems {
		evicted = append(evicted, p.items[p.opts.MaxItems:]...)
		p.items = p.items[:p.opts.MaxItems]
	}
	p.mu.Unlock()

	for _, call := range evicted {
		p.opts.Audio.Destroy(audio.NamespaceHistory, call.ID)
	}
	for _, call := range added {
		if call.AudioRef == "" {
			continue
		}
		p.opts.Audio.Init(audio.NamespaceHistory, call.ID, call.AudioRef, false)
		if autoplay {
			id := call.ID
			// Short deliberate delay so decode usually wins the race; Play
			// defers itself anyway if the handle is not ready yet.
			time.AfterFunc(p.opts.AutoplayDelay, func() {
				p.mu.Lock()
				closed := p.closed
				p.mu.Unlock()
				if closed {
					return
				}
				if err := p.opts.Audio.Play(audio.NamespaceHistory, id); err != nil {
					p.log.Debug().Err(err).Str("id", id).Msg("autoplay skipped")
				}
			})
		}
	}
}

// Items returns the displayed calls, newest first.
func (p *Poller) Items() []models.Incident {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Incident, len(p.items))
	copy(out, p.items)
	return out
}

// Close stops polling immediately, destroys the view's audio sessions and
// restores the prior mute state. It is idempotent.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	items := make([]models.Incident, len(p.items))
	copy(items, p.items)
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()
	for _, call := range items {
		p.opts.Audio.Destroy(audio.NamespaceHistory, call.ID)
	}
	if p.opts.Mute != nil {
		p.opts.Mute.SetMuted(p.prevMuted)
	}
}
