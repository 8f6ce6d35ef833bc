package engine

import (
	"context"
	"time"

	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
)

// Prune destroys incidents that have aged out of a rolling window,
// releasing their marker and pulse handles. Explicit start/end windows never
// prune; their incidents only hide.
func (e *Engine) Prune() int {
	e.mu.Lock()
	if e.window <= 0 {
		e.mu.Unlock()
		return 0
	}
	cutoff := timeNow().Add(-e.window)
	e.criteria.Cutoff = cutoff
	var stale []string
	for id, ent := range e.entries {
		if ent.inc.Timestamp.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		ent := e.entries[id]
		if ent.pulse != nil {
			ent.pulse.Remove()
			ent.pulse = nil
		}
		ent.marker.Remove()
		delete(e.entries, id)
		e.evictRecentLocked(id)
		if e.audio != nil {
			e.audio.Destroy(audio.NamespacePopup, id)
		}
	}
	e.recomputeLocked()
	e.mu.Unlock()

	if len(stale) > 0 {
		e.log.Debug().Int("pruned", len(stale)).Msg("window sweep")
	}
	return len(stale)
}

// RunPruning sweeps the rolling window on a fixed tick until ctx is done.
func (e *Engine) RunPruning(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Prune()
		}
	}
}
