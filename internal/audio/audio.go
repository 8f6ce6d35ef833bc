package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Namespace is an isolated keyspace of playback sessions.
type Namespace string

const (
	NamespacePopup   Namespace = "popup"
	NamespaceHistory Namespace = "history"
)

var ErrNoSession = errors.New("audio: no session for key")

type sessionKey struct {
	NS Namespace
	ID string
}

type session struct {
	key         sessionKey
	audioRef    string
	handle      Handle
	ready       bool
	failed      error
	playOnReady bool
}

// Orchestrator owns every per-incident playback session. All methods are
// safe for concurrent use; payload fetch and decode run off the caller's
// goroutine.
type Orchestrator struct {
	log     zerolog.Logger
	backend Backend
	fetch   FetchFunc

	mu       sync.Mutex
	sessions map[sessionKey]*session
	volume   float64
}

func NewOrchestrator(backend Backend, fetch FetchFunc, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		log:      log.With().Str("component", "audio").Logger(),
		backend:  backend,
		fetch:    fetch,
		sessions: make(map[sessionKey]*session),
		volume:   1.0,
	}
}

// Init creates the session for (ns, id), tearing down any previous session
// under the same key first. With playOnReady set, playback starts as soon as
// the decode handle signals ready.
func (o *Orchestrator) Init(ns Namespace, id, audioRef string, playOnReady bool) {
	key := sessionKey{NS: ns, ID: id}
	s := &session{key: key, audioRef: audioRef, playOnReady: playOnReady}

	o.mu.Lock()
	if prev, ok := o.sessions[key]; ok && prev.handle != nil {
		prev.handle.Stop()
		_ = prev.handle.Close()
	}
	o.sessions[key] = s
	o.mu.Unlock()

	go o.load(s)
}

func (o *Orchestrator) load(s *session) {
	data, err := o.fetch(context.Background(), s.audioRef)
	if err != nil {
		o.failSession(s, fmt.Errorf("fetch %s: %w", s.audioRef, err))
		return
	}

	handle, err := o.backend.Open(data, func(readyErr error) {
		o.sessionReady(s, readyErr)
	})
	if err != nil {
		o.failSession(s, fmt.Errorf("decode %s: %w", s.audioRef, err))
		return
	}

	o.mu.Lock()
	if o.sessions[s.key] != s {
		// Re-initialized (or destroyed) while decoding; this handle lost.
		o.mu.Unlock()
		_ = handle.Close()
		return
	}
	s.handle = handle
	handle.SetVolume(o.volume)
	if s.ready && s.playOnReady {
		o.startLocked(s)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) sessionReady(s *session, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sessions[s.key] != s {
		return
	}
	if err != nil {
		s.failed = err
		o.log.Warn().Err(err).Str("namespace", string(s.key.NS)).Str("id", s.key.ID).Msg("decode failed")
		return
	}
	s.ready = true
	if s.playOnReady && s.handle != nil {
		o.startLocked(s)
	}
}

func (o *Orchestrator) failSession(s *session, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sessions[s.key] != s {
		return
	}
	s.failed = err
	o.log.Warn().Err(err).Str("namespace", string(s.key.NS)).Str("id", s.key.ID).Msg("session failed")
}

// startLocked starts playback, resuming the shared output context first if
// the platform left it suspended. A failed resume keeps playOnReady set so
// the next user gesture retries instead of failing permanently.
func (o *Orchestrator) startLocked(s *session) {
	if o.backend.Suspended() {
		if err := o.backend.Resume(); err != nil {
			o.log.Debug().Err(err).Msg("output context still suspended, deferring playback")
			s.playOnReady = true
			return
		}
	}
	s.playOnReady = false
	if err := s.handle.Play(); err != nil {
		s.failed = err
	}
}

// Play starts (or requests deferred start of) the session's playback.
func (o *Orchestrator) Play(ns Namespace, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionKey{NS: ns, ID: id}]
	if !ok {
		return ErrNoSession
	}
	if s.failed != nil {
		return s.failed
	}
	if !s.ready || s.handle == nil {
		s.playOnReady = true
		return nil
	}
	o.startLocked(s)
	return s.failed
}

func (o *Orchestrator) Pause(ns Namespace, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionKey{NS: ns, ID: id}]
	if !ok {
		return ErrNoSession
	}
	s.playOnReady = false
	if s.handle == nil {
		return nil
	}
	return s.handle.Pause()
}

// Destroy tears down the session for (ns, id) and releases its handle.
func (o *Orchestrator) Destroy(ns Namespace, id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := sessionKey{NS: ns, ID: id}
	s, ok := o.sessions[key]
	if !ok {
		return
	}
	if s.handle != nil {
		s.handle.Stop()
		_ = s.handle.Close()
	}
	delete(o.sessions, key)
}

// Err reports the session's failure, if any, for inline display next to its
// play control. Decode failures never propagate past their own session.
func (o *Orchestrator) Err(ns Namespace, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionKey{NS: ns, ID: id}]
	if !ok {
		return ErrNoSession
	}
	return s.failed
}

// SetGlobalVolume applies level to every live session across every
// namespace and to sessions created afterwards.
func (o *Orchestrator) SetGlobalVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = level
	for _, s := range o.sessions {
		if s.handle != nil {
			s.handle.SetVolume(level)
		}
	}
}

// Volume reports the process-wide volume level.
func (o *Orchestrator) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// SessionCount reports the number of live sessions in a namespace.
func (o *Orchestrator) SessionCount(ns Namespace) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for key := range o.sessions {
		if key.NS == ns {
			n++
		}
	}
	return n
}

// Close tears down every session.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, s := range o.sessions {
		if s.handle != nil {
			s.handle.Stop()
			_ = s.handle.Close()
		}
		delete(o.sessions, key)
	}
}
