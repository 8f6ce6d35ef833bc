// Package mapview is the seam between the synchronization engine and the
// tile/marker-clustering layer. The concrete renderer lives outside this
// repository; the engine only ever talks to these interfaces.
package mapview

// View is the rendered map. Motion is asynchronous: FlyTo and SpreadCluster
// report completion through their done callback, which may fire on any
// goroutine.
type View interface {
	NewMarker(lat, lon float64, icon string) Marker
	NewPulse(lat, lon float64) Pulse

	// FlyTo animates the camera to the given position and zoom.
	FlyTo(lat, lon, zoom float64, done func())
	// Center reports the current camera center.
	Center() (lat, lon float64)
	// SetInteractive enables or disables user pan/zoom/keyboard navigation.
	SetInteractive(enabled bool)

	// IsClustered reports whether the marker is currently hidden inside a
	// cluster bubble.
	IsClustered(m Marker) bool
	// SpreadCluster spiderfies the cluster containing m so the individual
	// marker becomes visible, then calls done.
	SpreadCluster(m Marker, done func())
}

// Marker is one incident's handle on the map. A marker renders only while
// attached to the cluster layer.
type Marker interface {
	SetPosition(lat, lon float64)
	Attach()
	Detach()
	OpenPopup()
	Remove()
}

// Pulse is the transient highlight ring drawn under recently arrived markers.
type Pulse interface {
	SetPosition(lat, lon float64)
	Remove()
}
