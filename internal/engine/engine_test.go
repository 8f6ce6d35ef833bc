package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/mapview"
	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

type recordingNotifier struct {
	mu       sync.Mutex
	banners  []string
	sounds   int
	feedIn   []string
	feedOut  []string
}

func (n *recordingNotifier) ShowBanner(inc models.Incident) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.banners = append(n.banners, inc.ID)
}

func (n *recordingNotifier) PlayAlertSound() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sounds++
}

func (n *recordingNotifier) FeedShow(inc models.Incident) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.feedIn = append(n.feedIn, inc.ID)
}

func (n *recordingNotifier) FeedRemove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.feedOut = append(n.feedOut, id)
}

func (n *recordingNotifier) soundCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sounds
}

func (n *recordingNotifier) feedRemoved() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.feedOut))
	copy(out, n.feedOut)
	return out
}

type initCall struct {
	NS          audio.Namespace
	ID          string
	AudioRef    string
	PlayOnReady bool
}

type recordingAudio struct {
	mu       sync.Mutex
	inits    []initCall
	destroys []initCall
}

func (a *recordingAudio) Init(ns audio.Namespace, id, audioRef string, playOnReady bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inits = append(a.inits, initCall{NS: ns, ID: id, AudioRef: audioRef, PlayOnReady: playOnReady})
}

func (a *recordingAudio) Destroy(ns audio.Namespace, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroys = append(a.destroys, initCall{NS: ns, ID: id})
}

func (a *recordingAudio) initCalls() []initCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]initCall, len(a.inits))
	copy(out, a.inits)
	return out
}

type recordingBroadcast struct {
	mu     sync.Mutex
	starts []string
}

func (b *recordingBroadcast) Start(audioRef string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts = append(b.starts, audioRef)
}

func (b *recordingBroadcast) started() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.starts))
	copy(out, b.starts)
	return out
}

type fixture struct {
	eng    *Engine
	view   *mapview.MockView
	notify *recordingNotifier
	audio  *recordingAudio
	bcast  *recordingBroadcast
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		view:   mapview.NewMockView(),
		notify: &recordingNotifier{},
		audio:  &recordingAudio{},
		bcast:  &recordingBroadcast{},
	}
	opts.View = f.view
	opts.Audio = f.audio
	opts.Broadcast = f.bcast
	opts.Notifier = f.notify
	opts.Logger = zerolog.Nop()
	f.eng = New(opts)
	return f
}

func incidentAt(id string, ts time.Time) models.Incident {
	return models.Incident{
		ID:            id,
		TalkgroupID:   "tg-1",
		TalkgroupName: "County Fire",
		Latitude:      40.0,
		Longitude:     -75.0,
		Timestamp:     ts,
		Transcription: fmt.Sprintf("engine responding to call %s", id),
		Category:      "Fire",
		AudioRef:      "audio-" + id,
		SourcePath:    "audio/fire/" + id + ".mp3",
	}
}

// markerAt returns the i-th mock marker in creation order; inserts create
// exactly one marker each.
func (f *fixture) markerAt(i int) *mapview.MockMarker {
	return f.view.Markers[i]
}
