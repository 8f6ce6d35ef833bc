package mapview

import "sync"

// MockView records every call made by the engine. With ManualMotion set,
// FlyTo and SpreadCluster park their done callbacks until FireMotion is
// called, which lets tests step the camera one stage at a time.
type MockView struct {
	mu sync.Mutex

	ManualMotion bool

	Markers      []*MockMarker
	Pulses       []*MockPulse
	Flights      []Flight
	Interactions []bool
	SpreadCalls  int

	CenterLat float64
	CenterLon float64

	clustered map[Marker]bool
	pending   []func()
}

type Flight struct {
	Lat  float64
	Lon  float64
	Zoom float64
}

func NewMockView() *MockView {
	return &MockView{clustered: make(map[Marker]bool)}
}

func (v *MockView) NewMarker(lat, lon float64, icon string) Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	m := &MockMarker{Lat: lat, Lon: lon, Icon: icon}
	v.Markers = append(v.Markers, m)
	return m
}

func (v *MockView) NewPulse(lat, lon float64) Pulse {
	v.mu.Lock()
	defer v.mu.Unlock()
	p := &MockPulse{Lat: lat, Lon: lon}
	v.Pulses = append(v.Pulses, p)
	return p
}

func (v *MockView) FlyTo(lat, lon, zoom float64, done func()) {
	v.mu.Lock()
	v.Flights = append(v.Flights, Flight{Lat: lat, Lon: lon, Zoom: zoom})
	manual := v.ManualMotion
	if manual {
		v.pending = append(v.pending, done)
	}
	v.mu.Unlock()
	if !manual {
		done()
	}
}

func (v *MockView) Center() (float64, float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.CenterLat, v.CenterLon
}

func (v *MockView) SetInteractive(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Interactions = append(v.Interactions, enabled)
}

func (v *MockView) IsClustered(m Marker) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.clustered[m]
}

func (v *MockView) SetClustered(m Marker, clustered bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clustered[m] = clustered
}

func (v *MockView) SpreadCluster(m Marker, done func()) {
	v.mu.Lock()
	v.SpreadCalls++
	v.clustered[m] = false
	manual := v.ManualMotion
	if manual {
		v.pending = append(v.pending, done)
	}
	v.mu.Unlock()
	if !manual {
		done()
	}
}

// FireMotion completes the oldest pending motion. It reports whether a
// motion was pending.
func (v *MockView) FireMotion() bool {
	v.mu.Lock()
	if len(v.pending) == 0 {
		v.mu.Unlock()
		return false
	}
	done := v.pending[0]
	v.pending = v.pending[1:]
	v.mu.Unlock()
	done()
	return true
}

// PendingMotions reports how many motion completions are waiting.
func (v *MockView) PendingMotions() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

type MockMarker struct {
	mu       sync.Mutex
	Lat      float64
	Lon      float64
	Icon     string
	Attached bool
	Removed  bool
	Popups   int
}

func (m *MockMarker) SetPosition(lat, lon float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lat, m.Lon = lat, lon
}

func (m *MockMarker) Attach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attached = true
}

func (m *MockMarker) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attached = false
}

func (m *MockMarker) OpenPopup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Popups++
}

func (m *MockMarker) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = true
	m.Attached = false
}

func (m *MockMarker) IsAttached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Attached
}

func (m *MockMarker) PopupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Popups
}

type MockPulse struct {
	mu      sync.Mutex
	Lat     float64
	Lon     float64
	Removed bool
}

func (p *MockPulse) SetPosition(lat, lon float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Lat, p.Lon = lat, lon
}

func (p *MockPulse) Remove() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Removed = true
}

func (p *MockPulse) IsRemoved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Removed
}
