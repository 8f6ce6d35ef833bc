package engine

import "strings"

// matchesLocked evaluates the three-way filter for one entry:
// time window AND free-text search AND selected category.
func (e *Engine) matchesLocked(ent *entry) bool {
	ts := ent.inc.Timestamp
	if ts.Before(e.criteria.Cutoff) {
		return false
	}
	if !e.criteria.End.IsZero() && ts.After(e.criteria.End) {
		return false
	}
	if term := e.criteria.Search; term != "" {
		if !strings.Contains(ent.search, term) &&
			!strings.Contains(strings.ToLower(ent.category), term) {
			return false
		}
	}
	if cat := e.criteria.Category; cat != "" && ent.category != cat {
		return false
	}
	return true
}

// recomputeLocked runs one full filter pass: toggles cluster-layer
// membership, refreshes counts and pulse handles, auto-opens the popup when
// exactly one entry stays visible, and resets an emptied category selection
// to "all" (re-running once, never looping).
func (e *Engine) recomputeLocked() {
	e.recomputePassLocked()
	if e.criteria.Category != "" && e.catCounts[e.criteria.Category] == 0 {
		e.criteria.Category = ""
		e.recomputePassLocked()
	}
	if e.visibleTotal == 1 {
		for _, ent := range e.entries {
			if ent.visible {
				ent.marker.OpenPopup()
				break
			}
		}
	}
}

func (e *Engine) recomputePassLocked() {
	total := 0
	counts := make(map[string]int)
	for _, ent := range e.entries {
		vis := e.matchesLocked(ent)
		if vis != ent.visible {
			if vis {
				ent.marker.Attach()
			} else {
				ent.marker.Detach()
			}
			ent.visible = vis
		}
		if vis {
			total++
			counts[ent.category]++
		}
	}
	e.visibleTotal = total
	e.catCounts = counts
	e.syncPulsesLocked()
}
