package engine

import "sort"

// pushRecentLocked records a newly ingested incident as the most recent,
// evicting the oldest member past the bound. Evicted pulses are released in
// the same pass.
func (e *Engine) pushRecentLocked(id string) {
	e.recency = append([]string{id}, e.recency...)
	if len(e.recency) > e.maxPulsing {
		e.recency = e.recency[:e.maxPulsing]
	}
	e.syncPulsesLocked()
}

// evictRecentLocked drops id from the recency set and backfills the freed
// slot with the newest visible incident not already a member. Ties break by
// timestamp descending, then by most recent arrival.
func (e *Engine) evictRecentLocked(id string) {
	idx := -1
	for i, rid := range e.recency {
		if rid == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	e.recency = append(e.recency[:idx], e.recency[idx+1:]...)

	members := make(map[string]struct{}, len(e.recency))
	for _, rid := range e.recency {
		members[rid] = struct{}{}
	}
	var candidates []*entry
	for _, ent := range e.entries {
		if _, ok := members[ent.inc.ID]; ok {
			continue
		}
		if ent.visible {
			candidates = append(candidates, ent)
		}
	}
	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool {
			ti, tj := candidates[i].inc.Timestamp, candidates[j].inc.Timestamp
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
			return candidates[i].arrival > candidates[j].arrival
		})
		e.recency = append(e.recency, candidates[0].inc.ID)
	}
	e.syncPulsesLocked()
}

// syncPulsesLocked enforces the pulsing invariant: pulses go to the visible
// members of the recency set. A member hidden by the filter frees its slot
// to the next visible incident outside the set (timestamp descending, then
// most recent arrival), so the number of pulses tracks the number of
// occupied recency slots, never exceeding the bound.
func (e *Engine) syncPulsesLocked() {
	members := make(map[string]struct{}, len(e.recency))
	desired := make(map[string]struct{}, e.maxPulsing)
	for _, rid := range e.recency {
		members[rid] = struct{}{}
		if ent, ok := e.entries[rid]; ok && ent.visible {
			desired[rid] = struct{}{}
		}
	}
	if len(desired) < len(e.recency) {
		var candidates []*entry
		for id, ent := range e.entries {
			if _, ok := members[id]; ok {
				continue
			}
			if ent.visible {
				candidates = append(candidates, ent)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			ti, tj := candidates[i].inc.Timestamp, candidates[j].inc.Timestamp
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
			return candidates[i].arrival > candidates[j].arrival
		})
		for _, c := range candidates {
			if len(desired) >= len(e.recency) {
				break
			}
			desired[c.inc.ID] = struct{}{}
		}
	}
	for id, ent := range e.entries {
		_, shouldPulse := desired[id]
		switch {
		case shouldPulse && ent.pulse == nil:
			ent.pulse = e.view.NewPulse(ent.inc.Latitude, ent.inc.Longitude)
		case !shouldPulse && ent.pulse != nil:
			ent.pulse.Remove()
			ent.pulse = nil
		}
	}
}

// Pulsing returns the IDs currently carrying a pulse handle, recency
// members first.
func (e *Engine) Pulsing() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[string]struct{}, e.maxPulsing)
	var out []string
	for _, id := range e.recency {
		if ent, ok := e.entries[id]; ok && ent.pulse != nil {
			out = append(out, id)
			seen[id] = struct{}{}
		}
	}
	for id, ent := range e.entries {
		if _, ok := seen[id]; ok {
			continue
		}
		if ent.pulse != nil {
			out = append(out, id)
		}
	}
	return out
}
