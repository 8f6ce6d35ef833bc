package mapview

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HeadlessView logs camera and marker operations instead of rendering them.
// It stands in for the browser map layer when the engine runs without a UI
// attached; motion completes after a short simulated flight.
type HeadlessView struct {
	log        zerolog.Logger
	flightTime time.Duration

	mu        sync.Mutex
	centerLat float64
	centerLon float64
}

func NewHeadlessView(log zerolog.Logger) *HeadlessView {
	return &HeadlessView{
		log:        log.With().Str("component", "mapview").Logger(),
		flightTime: 300 * time.Millisecond,
	}
}

func (v *HeadlessView) NewMarker(lat, lon float64, icon string) Marker {
	return &headlessMarker{view: v, lat: lat, lon: lon, icon: icon}
}

func (v *HeadlessView) NewPulse(lat, lon float64) Pulse {
	return &headlessPulse{}
}

func (v *HeadlessView) FlyTo(lat, lon, zoom float64, done func()) {
	v.mu.Lock()
	v.centerLat, v.centerLon = lat, lon
	v.mu.Unlock()
	v.log.Debug().Float64("lat", lat).Float64("lon", lon).Float64("zoom", zoom).Msg("fly to")
	time.AfterFunc(v.flightTime, done)
}

func (v *HeadlessView) Center() (float64, float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.centerLat, v.centerLon
}

func (v *HeadlessView) SetInteractive(enabled bool) {
	v.log.Debug().Bool("enabled", enabled).Msg("interaction")
}

func (v *HeadlessView) IsClustered(m Marker) bool { return false }

func (v *HeadlessView) SpreadCluster(m Marker, done func()) { done() }

type headlessMarker struct {
	view *HeadlessView
	lat  float64
	lon  float64
	icon string
}

func (m *headlessMarker) SetPosition(lat, lon float64) { m.lat, m.lon = lat, lon }
func (m *headlessMarker) Attach()                      {}
func (m *headlessMarker) Detach()                      {}
func (m *headlessMarker) OpenPopup() {
	m.view.log.Debug().Float64("lat", m.lat).Float64("lon", m.lon).Str("icon", m.icon).Msg("popup")
}
func (m *headlessMarker) Remove() {}

type headlessPulse struct{}

func (p *headlessPulse) SetPosition(lat, lon float64) {}
func (p *headlessPulse) Remove()                      {}
