package engine

import (
	"time"

	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

// HandleNewCall ingests one pushed incident. Known IDs and incidents older
// than the window cutoff are ignored. The banner always shows; the alert
// sound respects the mute toggle; the camera flight and arrival playback run
// only while tracking is on.
func (e *Engine) HandleNewCall(inc models.Incident) {
	if err := inc.Validate(); err != nil {
		e.log.Warn().Err(err).Str("id", inc.ID).Msg("rejected malformed incident")
		return
	}

	e.mu.Lock()
	if _, ok := e.entries[inc.ID]; ok {
		e.mu.Unlock()
		return
	}
	if inc.Timestamp.Before(e.criteria.Cutoff) {
		e.mu.Unlock()
		return
	}
	e.insertLocked(inc)
	e.pushRecentLocked(inc.ID)
	e.recomputeLocked()
	tracking := e.tracking
	muted := e.muted
	e.mu.Unlock()

	e.log.Info().Str("id", inc.ID).Str("talkgroup", inc.TalkgroupID).Msg("new call")
	if e.notify != nil {
		e.notify.ShowBanner(inc)
		if !muted {
			e.notify.PlayAlertSound()
		}
	}
	if tracking {
		e.seq.Enqueue(inc.ID, func(found bool) {
			e.flightArrived(inc.ID, found)
		})
	}
}

// flightArrived opens the popup and starts playback once the tracking
// flight lands. A vanished target makes this a no-op.
func (e *Engine) flightArrived(id string, found bool) {
	if !found {
		return
	}
	e.mu.Lock()
	ent, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	ent.marker.OpenPopup()
	audioRef := ent.inc.AudioRef
	e.mu.Unlock()

	if e.audio != nil && audioRef != "" {
		e.audio.Init(audio.NamespacePopup, id, audioRef, true)
	}
}

// HandleLiveFeed routes one live-feed incident. The subscription set gates
// it independently of the map's time window; the feed itself is bounded and
// every item expires after the configured display duration.
func (e *Engine) HandleLiveFeed(inc models.Incident) {
	e.mu.Lock()
	if _, subscribed := e.subs[inc.TalkgroupID]; !subscribed {
		e.mu.Unlock()
		return
	}
	if _, shown := e.feed[inc.ID]; shown {
		e.mu.Unlock()
		return
	}
	var evicted string
	if len(e.feedIDs) >= e.feedMax {
		evicted = e.feedIDs[0]
		e.feedIDs = e.feedIDs[1:]
		if t := e.feed[evicted]; t != nil {
			t.Stop()
		}
		delete(e.feed, evicted)
	}
	e.feedIDs = append(e.feedIDs, inc.ID)
	e.feed[inc.ID] = time.AfterFunc(e.feedTTL, func() {
		e.expireFeedItem(inc.ID)
	})
	liveAudio := e.liveAudio
	e.mu.Unlock()

	if e.notify != nil {
		if evicted != "" {
			e.notify.FeedRemove(evicted)
		}
		e.notify.FeedShow(inc)
	}
	if liveAudio && e.broadcast != nil && inc.AudioRef != "" {
		e.broadcast.Start(inc.AudioRef)
	}
}

func (e *Engine) expireFeedItem(id string) {
	e.mu.Lock()
	if _, ok := e.feed[id]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.feed, id)
	for i, fid := range e.feedIDs {
		if fid == id {
			e.feedIDs = append(e.feedIDs[:i], e.feedIDs[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
	if e.notify != nil {
		e.notify.FeedRemove(id)
	}
}

// FeedLen reports the number of live-feed items currently displayed.
func (e *Engine) FeedLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.feedIDs)
}
