package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poisonednumber/Scanner-map-sub004/internal/mapview"
)

func TestFlightRunsThreeStages(t *testing.T) {
	f := newFixture(Options{WindowHours: 12, OverviewZoom: 10, DetailZoom: 16})
	f.view.CenterLat, f.view.CenterLon = 39.0, -76.0
	require.NoError(t, f.eng.Upsert(incidentAt("a", time.Now())))

	var landed bool
	f.eng.Sequencer().Enqueue("a", func(found bool) { landed = found })

	require.Len(t, f.view.Flights, 3)
	assert.Equal(t, mapview.Flight{Lat: 39.0, Lon: -76.0, Zoom: 10}, f.view.Flights[0], "stage 1: overview at current center")
	assert.Equal(t, mapview.Flight{Lat: 40.0, Lon: -75.0, Zoom: 10}, f.view.Flights[1], "stage 2: overview at target")
	assert.Equal(t, mapview.Flight{Lat: 40.0, Lon: -75.0, Zoom: 16}, f.view.Flights[2], "stage 3: detail at target")
	assert.True(t, landed)
	assert.Equal(t, []bool{false, true}, f.view.Interactions, "interaction disabled once, restored once")
	assert.False(t, f.eng.Sequencer().Busy())
}

func TestFlightSpreadsCluster(t *testing.T) {
	f := newFixture(Options{WindowHours: 12})
	require.NoError(t, f.eng.Upsert(incidentAt("a", time.Now())))
	f.view.SetClustered(f.markerAt(0), true)

	done := false
	f.eng.Sequencer().Enqueue("a", func(found bool) { done = found })

	assert.Equal(t, 1, f.view.SpreadCalls)
	assert.True(t, done)
	assert.Equal(t, []bool{false, true}, f.view.Interactions)
}

func TestSequencerSingleFlightFIFO(t *testing.T) {
	f := newFixture(Options{WindowHours: 12})
	f.view.ManualMotion = true
	now := time.Now()
	require.NoError(t, f.eng.Upsert(incidentAt("a", now)))
	require.NoError(t, f.eng.Upsert(incidentAt("b", now)))
	require.NoError(t, f.eng.Upsert(incidentAt("c", now)))

	var order []string
	seq := f.eng.Sequencer()
	seq.Enqueue("a", func(bool) { order = append(order, "a") })
	seq.Enqueue("b", func(bool) { order = append(order, "b") })
	seq.Enqueue("c", func(bool) { order = append(order, "c") })

	assert.True(t, seq.Busy())
	assert.Equal(t, 2, seq.QueueLen(), "only one flight runs at a time")

	// Step every stage to completion: three stages per flight.
	for f.view.FireMotion() {
	}

	assert.Equal(t, []string{"a", "b", "c"}, order, "completion order equals enqueue order")
	assert.False(t, seq.Busy())
	assert.Zero(t, f.view.PendingMotions())
}

func TestQueuedFlightSkipsVanishedTarget(t *testing.T) {
	f := newFixture(Options{WindowHours: 12})
	f.view.ManualMotion = true
	now := time.Now()
	require.NoError(t, f.eng.Upsert(incidentAt("a", now)))
	require.NoError(t, f.eng.Upsert(incidentAt("b", now)))

	var results []bool
	seq := f.eng.Sequencer()
	seq.Enqueue("a", func(found bool) { results = append(results, found) })
	seq.Enqueue("b", func(found bool) { results = append(results, found) })

	// b vanishes while queued behind a's flight.
	require.NoError(t, f.eng.Remove("b"))
	for f.view.FireMotion() {
	}

	assert.Equal(t, []bool{true, false}, results, "skip still invokes the callback")
	assert.False(t, seq.Busy())
	// Interaction was toggled only around a's run.
	assert.Equal(t, []bool{false, true}, f.view.Interactions)
}

func TestDeleteMidFlightTargetIsNoOp(t *testing.T) {
	f := newFixture(Options{WindowHours: 12})
	f.view.ManualMotion = true
	f.eng.SetTracking(true)
	f.eng.HandleNewCall(incidentAt("a", time.Now()))

	require.True(t, f.eng.Sequencer().Busy())
	popupsBefore := f.markerAt(0).PopupCount()

	// The single visible marker is deleted mid-flight.
	require.NoError(t, f.eng.Remove("a"))
	for f.view.FireMotion() {
	}

	assert.False(t, f.eng.Sequencer().Busy())
	assert.Equal(t, popupsBefore, f.markerAt(0).PopupCount(), "no popup after the target vanished")
	assert.Empty(t, f.audio.initCalls(), "no arrival playback for a vanished target")
	assert.Equal(t, []bool{false, true}, f.view.Interactions)
}
