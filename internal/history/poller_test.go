package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

type callsRequest struct {
	TalkgroupID string
	Hours       int
	SinceID     string
}

// fakeCalls serves canned batches: the first request gets the seed, every
// later request gets (and clears) whatever the test queued.
type fakeCalls struct {
	mu       sync.Mutex
	requests []callsRequest
	seed     []models.Incident
	queued   []models.Incident
	err      error
}

func (f *fakeCalls) TalkgroupCalls(_ context.Context, tgID string, hours int, sinceID string) ([]models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, callsRequest{TalkgroupID: tgID, Hours: hours, SinceID: sinceID})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.requests) == 1 {
		return f.seed, nil
	}
	out := f.queued
	f.queued = nil
	return out, nil
}

func (f *fakeCalls) queue(calls ...models.Incident) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, calls...)
}

func (f *fakeCalls) requestLog() []callsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]callsRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

type fakeMute struct {
	mu    sync.Mutex
	muted bool
	calls []bool
}

func (m *fakeMute) SetMuted(muted bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.muted
	m.muted = muted
	m.calls = append(m.calls, muted)
	return prev
}

func (m *fakeMute) current() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func call(id string, ts time.Time) models.Incident {
	return models.Incident{
		ID:          id,
		TalkgroupID: "tg-9",
		Latitude:    40.1,
		Longitude:   -75.2,
		Timestamp:   ts,
		AudioRef:    "audio-" + id,
	}
}

func newTestPoller(t *testing.T, api *fakeCalls, mute *fakeMute, opts Options) (*Poller, *audio.MockBackend) {
	t.Helper()
	backend := audio.NewMockBackend()
	fetch := func(_ context.Context, audioRef string) ([]byte, error) {
		return []byte(audioRef), nil
	}
	opts.TalkgroupID = "tg-9"
	opts.API = api
	opts.Audio = audio.NewOrchestrator(backend, fetch, zerolog.Nop())
	opts.Mute = mute
	opts.Logger = zerolog.Nop()
	p, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, backend
}

func TestOpenSeedsNewestFirstAndMutes(t *testing.T) {
	now := time.Now()
	api := &fakeCalls{seed: []models.Incident{
		call("c1", now.Add(-3*time.Hour)),
		call("c2", now.Add(-2*time.Hour)),
		call("c3", now.Add(-1*time.Hour)),
	}}
	mute := &fakeMute{}

	p, _ := newTestPoller(t, api, mute, Options{WindowHours: 12, Interval: time.Hour})

	items := p.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "c3", items[0].ID, "server order is newest-last, display is newest-first")
	assert.Equal(t, "c1", items[2].ID)
	assert.True(t, mute.current(), "open forces the main alert audio quiet")

	reqs := api.requestLog()
	require.Len(t, reqs, 1)
	assert.Equal(t, callsRequest{TalkgroupID: "tg-9", Hours: 12, SinceID: ""}, reqs[0])

	// Seeded calls get primed sessions but never autoplay.
	assert.Equal(t, 3, p.opts.Audio.SessionCount(audio.NamespaceHistory))
}

func TestSeedFailureStartsEmpty(t *testing.T) {
	api := &fakeCalls{err: errors.New("server down")}
	p, _ := newTestPoller(t, api, &fakeMute{}, Options{WindowHours: 12, Interval: time.Hour})
	assert.Empty(t, p.Items())
}

func TestPollUsesNewestID(t *testing.T) {
	now := time.Now()
	api := &fakeCalls{seed: []models.Incident{call("c1", now.Add(-time.Hour))}}
	p, _ := newTestPoller(t, api, &fakeMute{}, Options{WindowHours: 12, Interval: 10 * time.Millisecond})

	api.queue(call("c2", now))
	require.Eventually(t, func() bool {
		return len(p.Items()) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, "c2", p.Items()[0].ID)

	require.Eventually(t, func() bool {
		reqs := api.requestLog()
		return reqs[len(reqs)-1].SinceID == "c2"
	}, time.Second, time.Millisecond, "later polls carry the newest seen ID")
}

func TestPollDeduplicates(t *testing.T) {
	now := time.Now()
	api := &fakeCalls{seed: []models.Incident{call("c1", now.Add(-time.Hour))}}
	p, _ := newTestPoller(t, api, &fakeMute{}, Options{WindowHours: 12, Interval: 10 * time.Millisecond})

	api.queue(call("c1", now.Add(-time.Hour)), call("c2", now))
	require.Eventually(t, func() bool {
		return len(p.Items()) == 2
	}, time.Second, time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, p.Items(), 2, "redelivered records do not duplicate")
}

func TestListBoundEvictsOldestSessions(t *testing.T) {
	now := time.Now()
	var seed []models.Incident
	for i := 0; i < 4; i++ {
		seed = append(seed, call(fmt.Sprintf("c%d", i), now.Add(time.Duration(i)*time.Minute)))
	}
	api := &fakeCalls{seed: seed}
	p, _ := newTestPoller(t, api, &fakeMute{}, Options{WindowHours: 12, Interval: 10 * time.Millisecond, MaxItems: 3})

	items := p.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "c3", items[0].ID)
	assert.Equal(t, "c1", items[2].ID, "the oldest fell off the end")

	api.queue(call("c4", now.Add(time.Hour)))
	require.Eventually(t, func() bool {
		its := p.Items()
		return len(its) == 3 && its[0].ID == "c4"
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		return p.opts.Audio.SessionCount(audio.NamespaceHistory) == 3
	}, time.Second, time.Millisecond, "evicted calls lose their sessions")
}

func TestAutoplayPlaysPolledCall(t *testing.T) {
	now := time.Now()
	api := &fakeCalls{seed: []models.Incident{call("c1", now.Add(-time.Hour))}}
	_, backend := newTestPoller(t, api, &fakeMute{}, Options{
		WindowHours:   12,
		Interval:      10 * time.Millisecond,
		Autoplay:      true,
		AutoplayDelay: 5 * time.Millisecond,
	})

	api.queue(call("c2", now))
	require.Eventually(t, func() bool {
		for _, h := range backend.Handles() {
			if string(h.Data) == "audio-c2" && h.IsPlaying() {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	// The seeded call stays silent.
	for _, h := range backend.Handles() {
		if string(h.Data) == "audio-c1" {
			assert.Zero(t, h.Plays)
		}
	}
}

func TestCloseStopsPollingAndRestoresMute(t *testing.T) {
	now := time.Now()
	api := &fakeCalls{seed: []models.Incident{call("c1", now.Add(-time.Hour))}}
	mute := &fakeMute{}
	p, backend := newTestPoller(t, api, mute, Options{WindowHours: 12, Interval: 10 * time.Millisecond})

	require.Eventually(t, func() bool {
		return len(backend.Handles()) == 1
	}, time.Second, time.Millisecond)

	p.Close()
	p.Close() // idempotent

	assert.False(t, mute.current(), "prior unmuted state restored")
	assert.Empty(t, backend.OpenHandles())
	assert.Zero(t, p.opts.Audio.SessionCount(audio.NamespaceHistory))

	before := len(api.requestLog())
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, before, len(api.requestLog()), "no polls after close")
}

func TestCloseRestoresPreviouslyMuted(t *testing.T) {
	mute := &fakeMute{muted: true}
	api := &fakeCalls{}
	p, _ := newTestPoller(t, api, mute, Options{WindowHours: 12, Interval: time.Hour})

	p.Close()
	assert.True(t, mute.current(), "a user who was muted before opening stays muted")
}
