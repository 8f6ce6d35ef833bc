package audio

import "sync"

// MockBackend is an in-memory Backend for tests and for running without an
// audio device. Handles become ready synchronously unless HoldReady is set,
// in which case tests release them with FireReady.
type MockBackend struct {
	mu        sync.Mutex
	HoldReady bool
	OpenErr   error
	ReadyErr  error
	suspended bool
	resumeErr error
	handles   []*MockHandle
	pending   []func(error)
}

func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (b *MockBackend) Open(data []byte, onReady func(error)) (Handle, error) {
	b.mu.Lock()
	if b.OpenErr != nil {
		err := b.OpenErr
		b.mu.Unlock()
		return nil, err
	}
	h := &MockHandle{Data: data, Volume: 1.0}
	b.handles = append(b.handles, h)
	hold := b.HoldReady
	readyErr := b.ReadyErr
	if hold {
		b.pending = append(b.pending, onReady)
	}
	b.mu.Unlock()
	if !hold {
		onReady(readyErr)
	}
	return h, nil
}

// FireReady releases the oldest held ready callback.
func (b *MockBackend) FireReady(err error) bool {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return false
	}
	cb := b.pending[0]
	b.pending = b.pending[1:]
	b.mu.Unlock()
	cb(err)
	return true
}

func (b *MockBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resumeErr != nil {
		return b.resumeErr
	}
	b.suspended = false
	return nil
}

func (b *MockBackend) Suspended() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suspended
}

// SetSuspended simulates the platform suspending the output context, with an
// optional error for Resume attempts.
func (b *MockBackend) SetSuspended(suspended bool, resumeErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.suspended = suspended
	b.resumeErr = resumeErr
}

// Handles returns every handle the backend ever opened.
func (b *MockBackend) Handles() []*MockHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*MockHandle, len(b.handles))
	copy(out, b.handles)
	return out
}

// OpenHandles returns the handles that have not been closed.
func (b *MockBackend) OpenHandles() []*MockHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*MockHandle
	for _, h := range b.handles {
		if !h.IsClosed() {
			out = append(out, h)
		}
	}
	return out
}

type MockHandle struct {
	mu      sync.Mutex
	Data    []byte
	Volume  float64
	Plays   int
	Pauses  int
	Stops   int
	playing bool
	closed  bool
}

func (h *MockHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Plays++
	h.playing = true
	return nil
}

func (h *MockHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Pauses++
	h.playing = false
	return nil
}

func (h *MockHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Stops++
	h.playing = false
}

func (h *MockHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Volume = v
}

func (h *MockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.playing = false
	return nil
}

func (h *MockHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *MockHandle) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *MockHandle) VolumeLevel() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Volume
}
