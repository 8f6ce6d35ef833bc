package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

func TestPruneDestroysAgedOut(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFrozenClock(t, base)

	f := newFixture(Options{WindowHours: 12})
	f.eng.Load([]models.Incident{
		incidentAt("fresh", base.Add(-1*time.Hour)),
		incidentAt("edge", base.Add(-12*time.Hour)),
		incidentAt("stale", base.Add(-13*time.Hour)),
	})
	require.Equal(t, 3, f.eng.Len())

	assert.Equal(t, 1, f.eng.Prune())
	assert.Equal(t, 2, f.eng.Len(), "the incident exactly at the cutoff survives")
	assert.False(t, f.eng.Known("stale"))
	assert.True(t, f.markerAt(2).Removed)

	var destroyedStale bool
	for _, d := range f.audio.destroys {
		if d.ID == "stale" {
			destroyedStale = true
		}
	}
	assert.True(t, destroyedStale, "popup session released with the entry")
}

func TestPruneAdvancesRollingCutoff(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFrozenClock(t, base)

	f := newFixture(Options{WindowHours: 12})
	f.eng.HandleNewCall(incidentAt("a", base.Add(-11*time.Hour)))
	require.Equal(t, []string{"a"}, f.eng.Pulsing())

	// Two hours later the incident has aged past the window.
	withFrozenClock(t, base.Add(2*time.Hour))
	assert.Equal(t, 1, f.eng.Prune())

	assert.Zero(t, f.eng.Len())
	assert.Empty(t, f.eng.Pulsing())
	snap := f.eng.Snapshot()
	assert.Equal(t, base.Add(2*time.Hour).Add(-12*time.Hour), snap.Cutoff)
}

func TestExplicitRangeNeverPrunes(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFrozenClock(t, base)

	f := newFixture(Options{WindowHours: 12})
	f.eng.Load([]models.Incident{incidentAt("a", base.Add(-30 * time.Hour))})
	f.eng.SetWindowRange(base.Add(-24*time.Hour), base)
	require.Zero(t, f.eng.VisibleCount())

	assert.Zero(t, f.eng.Prune(), "explicit windows hide, never destroy")
	assert.Equal(t, 1, f.eng.Len())
	assert.False(t, f.markerAt(0).Removed)
}
