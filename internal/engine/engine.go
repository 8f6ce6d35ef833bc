// Package engine reconciles the server's append-only incident stream with
// the bounded, filtered, animated map view. All externally triggered
// mutations run to a quiescent state under one lock; the camera sequencer is
// the only other serialization point in the system.
package engine

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/mapview"
	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

var (
	ErrDuplicate = errors.New("engine: incident already known")
	ErrNotFound  = errors.New("engine: incident not found")
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Notifier receives the transient UI effects of ingestion: banners, the
// alert sound, and the rotating live feed.
type Notifier interface {
	ShowBanner(inc models.Incident)
	PlayAlertSound()
	FeedShow(inc models.Incident)
	FeedRemove(id string)
}

// AudioPlayer primes per-incident playback sessions.
type AudioPlayer interface {
	Init(ns audio.Namespace, id, audioRef string, playOnReady bool)
	Destroy(ns audio.Namespace, id string)
}

// Broadcaster forwards live-feed audio to the broadcast channel.
type Broadcaster interface {
	Start(audioRef string)
}

// Criteria is the three-way filter. A rolling window normalizes to Cutoff;
// an explicit range sets both Cutoff and End.
type Criteria struct {
	Cutoff   time.Time
	End      time.Time
	Search   string
	Category string
}

type entry struct {
	inc      models.Incident
	marker   mapview.Marker
	pulse    mapview.Pulse
	visible  bool
	arrival  uint64
	search   string // lower-cased transcription, cached for the filter
	category string // normalized category
}

// Options wires an Engine.
type Options struct {
	View         mapview.View
	Audio        AudioPlayer
	Broadcast    Broadcaster
	Notifier     Notifier
	Logger       zerolog.Logger
	WindowHours  int
	OverviewZoom float64
	DetailZoom   float64
	MaxPulsing   int
	FeedMax      int
	FeedTTL      time.Duration
}

// Engine owns the incident store, filter criteria, recency set and live
// feed. It is constructed once per session and passed down explicitly; there
// is no ambient state.
type Engine struct {
	log       zerolog.Logger
	view      mapview.View
	audio     AudioPlayer
	broadcast Broadcaster
	notify    Notifier
	seq       *Sequencer

	mu         sync.Mutex
	entries    map[string]*entry
	arrivals   uint64
	criteria   Criteria
	window     time.Duration // non-zero for rolling windows
	recency    []string      // newest first, len <= maxPulsing
	maxPulsing int

	tracking  bool
	muted     bool
	liveAudio bool
	subs      map[string]struct{}

	feed    map[string]*time.Timer
	feedIDs []string // oldest first
	feedMax int
	feedTTL time.Duration

	visibleTotal int
	catCounts    map[string]int
}

func New(opts Options) *Engine {
	if opts.MaxPulsing <= 0 {
		opts.MaxPulsing = 3
	}
	if opts.WindowHours <= 0 {
		opts.WindowHours = 12
	}
	if opts.FeedMax <= 0 {
		opts.FeedMax = 5
	}
	if opts.FeedTTL <= 0 {
		opts.FeedTTL = 45 * time.Second
	}
	window := time.Duration(opts.WindowHours) * time.Hour
	e := &Engine{
		log:        opts.Logger.With().Str("component", "engine").Logger(),
		view:       opts.View,
		audio:      opts.Audio,
		broadcast:  opts.Broadcast,
		notify:     opts.Notifier,
		entries:    make(map[string]*entry),
		window:     window,
		criteria:   Criteria{Cutoff: timeNow().Add(-window)},
		maxPulsing: opts.MaxPulsing,
		subs:       make(map[string]struct{}),
		feed:       make(map[string]*time.Timer),
		feedMax:    opts.FeedMax,
		feedTTL:    opts.FeedTTL,
		catCounts:  make(map[string]int),
	}
	e.seq = NewSequencer(opts.View, e.resolveTarget, opts.OverviewZoom, opts.DetailZoom, opts.Logger)
	return e
}

// Sequencer exposes the camera flight queue, mainly for tests.
func (e *Engine) Sequencer() *Sequencer { return e.seq }

// resolveTarget looks a queued flight target up at its turn. A vanished
// target makes the flight a skip.
func (e *Engine) resolveTarget(id string) (mapview.Marker, float64, float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	if !ok {
		return nil, 0, 0, false
	}
	return ent.marker, ent.inc.Latitude, ent.inc.Longitude, true
}

// SetWindowHours switches to a rolling time window of h hours.
func (e *Engine) SetWindowHours(h int) {
	if h <= 0 {
		return
	}
	e.mu.Lock()
	e.window = time.Duration(h) * time.Hour
	e.criteria.Cutoff = timeNow().Add(-e.window)
	e.criteria.End = time.Time{}
	e.recomputeLocked()
	e.mu.Unlock()
}

// SetWindowRange switches to an explicit start/end window.
func (e *Engine) SetWindowRange(start, end time.Time) {
	e.mu.Lock()
	e.window = 0
	e.criteria.Cutoff = start
	e.criteria.End = end
	e.recomputeLocked()
	e.mu.Unlock()
}

// SetSearch updates the free-text filter term.
func (e *Engine) SetSearch(term string) {
	e.mu.Lock()
	e.criteria.Search = strings.ToLower(strings.TrimSpace(term))
	e.recomputeLocked()
	e.mu.Unlock()
}

// SetCategory selects a category filter; empty selects all.
func (e *Engine) SetCategory(category string) {
	e.mu.Lock()
	if category == "" {
		e.criteria.Category = ""
	} else {
		e.criteria.Category = models.NormalizeCategory(category)
	}
	e.recomputeLocked()
	e.mu.Unlock()
}

// SetTracking toggles the follow-new-incidents camera behaviour.
func (e *Engine) SetTracking(on bool) {
	e.mu.Lock()
	e.tracking = on
	e.mu.Unlock()
}

// SetMuted toggles the alert sound and returns the previous state.
func (e *Engine) SetMuted(muted bool) bool {
	e.mu.Lock()
	prev := e.muted
	e.muted = muted
	e.mu.Unlock()
	return prev
}

// SetLiveAudio toggles forwarding of live-feed audio to the broadcast
// channel.
func (e *Engine) SetLiveAudio(on bool) {
	e.mu.Lock()
	e.liveAudio = on
	e.mu.Unlock()
}

// SetSubscriptions replaces the live-feed talkgroup subscription set.
func (e *Engine) SetSubscriptions(talkgroups []string) {
	e.mu.Lock()
	e.subs = make(map[string]struct{}, len(talkgroups))
	for _, tg := range talkgroups {
		e.subs[tg] = struct{}{}
	}
	e.mu.Unlock()
}

// Snapshot is the read surface for the sidebar and control API.
type Snapshot struct {
	VisibleTotal  int            `json:"visible_total"`
	Categories    map[string]int `json:"categories"`
	Cutoff        time.Time      `json:"cutoff"`
	End           *time.Time     `json:"end,omitempty"`
	Search        string         `json:"search"`
	Category      string         `json:"category"`
	Tracking      bool           `json:"tracking"`
	Muted         bool           `json:"muted"`
	LiveAudio     bool           `json:"live_audio"`
	Subscriptions []string       `json:"subscriptions"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	cats := make(map[string]int, len(e.catCounts))
	for k, v := range e.catCounts {
		cats[k] = v
	}
	subs := make([]string, 0, len(e.subs))
	for tg := range e.subs {
		subs = append(subs, tg)
	}
	sort.Strings(subs)
	s := Snapshot{
		VisibleTotal:  e.visibleTotal,
		Categories:    cats,
		Cutoff:        e.criteria.Cutoff,
		Search:        e.criteria.Search,
		Category:      e.criteria.Category,
		Tracking:      e.tracking,
		Muted:         e.muted,
		LiveAudio:     e.liveAudio,
		Subscriptions: subs,
	}
	if !e.criteria.End.IsZero() {
		end := e.criteria.End
		s.End = &end
	}
	return s
}

// VisibleCount reports the current visible-set size.
func (e *Engine) VisibleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibleTotal
}

// CategoryCounts reports per-category visible counts.
func (e *Engine) CategoryCounts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.catCounts))
	for k, v := range e.catCounts {
		out[k] = v
	}
	return out
}
