package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/mapview"
)

// resolveFunc resolves a flight target at its turn in the queue. ok=false
// means the target vanished while queued and the flight is skipped.
type resolveFunc func(id string) (marker mapview.Marker, lat, lon float64, ok bool)

type flightRequest struct {
	reqID  string
	target string
	onDone func(found bool)
}

// Sequencer serializes camera flights: strictly FIFO, one in flight at a
// time. A run is the fixed three-stage choreography — overview zoom at the
// current center, overview zoom at the target, detail zoom at the target —
// with each stage gated on the previous stage's motion-complete signal.
// User map interaction is disabled for the whole run and restored exactly
// once, cluster spreading included.
type Sequencer struct {
	log          zerolog.Logger
	view         mapview.View
	resolve      resolveFunc
	overviewZoom float64
	detailZoom   float64

	mu      sync.Mutex
	queue   []flightRequest
	running bool
}

func NewSequencer(view mapview.View, resolve resolveFunc, overviewZoom, detailZoom float64, log zerolog.Logger) *Sequencer {
	if overviewZoom <= 0 {
		overviewZoom = 10
	}
	if detailZoom <= 0 {
		detailZoom = 16
	}
	return &Sequencer{
		log:          log.With().Str("component", "sequencer").Logger(),
		view:         view,
		resolve:      resolve,
		overviewZoom: overviewZoom,
		detailZoom:   detailZoom,
	}
}

// Enqueue appends a flight to the queue and starts processing if idle.
// onDone always fires, with found=false when the target vanished before its
// turn. Callers must not hold locks that the view's motion callbacks need.
func (s *Sequencer) Enqueue(target string, onDone func(found bool)) {
	req := flightRequest{reqID: uuid.NewString(), target: target, onDone: onDone}
	s.mu.Lock()
	s.queue = append(s.queue, req)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.next()
}

// Busy reports whether a flight is running.
func (s *Sequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// QueueLen reports the number of flights waiting behind the running one.
func (s *Sequencer) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Sequencer) next() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		req := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		marker, lat, lon, ok := s.resolve(req.target)
		if !ok {
			s.log.Debug().Str("request", req.reqID).Str("target", req.target).Msg("target vanished, flight skipped")
			if req.onDone != nil {
				req.onDone(false)
			}
			continue
		}
		s.fly(req, marker, lat, lon)
		return
	}
}

func (s *Sequencer) fly(req flightRequest, marker mapview.Marker, lat, lon float64) {
	s.view.SetInteractive(false)
	centerLat, centerLon := s.view.Center()
	s.view.FlyTo(centerLat, centerLon, s.overviewZoom, func() {
		s.view.FlyTo(lat, lon, s.overviewZoom, func() {
			s.view.FlyTo(lat, lon, s.detailZoom, func() {
				s.arrive(req, marker)
			})
		})
	})
}

func (s *Sequencer) arrive(req flightRequest, marker mapview.Marker) {
	finish := func() {
		s.view.SetInteractive(true)
		if req.onDone != nil {
			req.onDone(true)
		}
		s.next()
	}
	if s.view.IsClustered(marker) {
		s.view.SpreadCluster(marker, finish)
		return
	}
	finish()
}
