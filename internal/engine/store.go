package engine

import (
	"strings"

	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

// Load bulk-inserts an initial set of incidents with a single recompute at
// the end. Bulk-loaded incidents never enter the recency set and raise no
// notifications.
func (e *Engine) Load(incidents []models.Incident) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, inc := range incidents {
		if err := inc.Validate(); err != nil {
			e.log.Warn().Err(err).Str("id", inc.ID).Msg("rejected malformed incident")
			continue
		}
		if _, ok := e.entries[inc.ID]; ok {
			continue
		}
		e.insertLocked(inc)
	}
	e.recomputeLocked()
}

// Upsert inserts one incident. Known IDs are rejected with ErrDuplicate:
// the server corrects records through relocate/delete, never re-upserts.
func (e *Engine) Upsert(inc models.Incident) error {
	if err := inc.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.entries[inc.ID]; ok {
		return ErrDuplicate
	}
	e.insertLocked(inc)
	e.recomputeLocked()
	return nil
}

func (e *Engine) insertLocked(inc models.Incident) {
	e.arrivals++
	ent := &entry{
		inc:      inc,
		arrival:  e.arrivals,
		search:   strings.ToLower(inc.Transcription),
		category: models.NormalizeCategory(inc.Category),
	}
	ent.marker = e.view.NewMarker(inc.Latitude, inc.Longitude, models.IconFor(inc.SourcePath))
	e.entries[inc.ID] = ent
}

// Remove releases the incident's marker and pulse handles, evicts it from
// the recency set, and deletes the entry.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	if !ok {
		return ErrNotFound
	}
	if ent.pulse != nil {
		ent.pulse.Remove()
		ent.pulse = nil
	}
	ent.marker.Remove()
	delete(e.entries, id)
	e.evictRecentLocked(id)
	if e.audio != nil {
		// Popup session dies with the marker.
		e.audio.Destroy(audio.NamespacePopup, id)
	}
	e.recomputeLocked()
	return nil
}

// Relocate moves the incident's marker and, if present, its pulse. The
// visible flag is untouched.
func (e *Engine) Relocate(id string, lat, lon float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	if !ok {
		return ErrNotFound
	}
	ent.inc.Latitude = lat
	ent.inc.Longitude = lon
	ent.marker.SetPosition(lat, lon)
	if ent.pulse != nil {
		ent.pulse.SetPosition(lat, lon)
	}
	return nil
}

// Known reports whether an incident ID is in the store.
func (e *Engine) Known(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.entries[id]
	return ok
}

// Len reports the total number of stored incidents, visible or not.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}
