package audio

import "context"

// FetchFunc retrieves the raw audio payload for an audio reference.
type FetchFunc func(ctx context.Context, audioRef string) ([]byte, error)

// Backend decodes audio payloads into playable handles on a shared output
// context. Platform autoplay policies may leave the context suspended until
// a user gesture; Resume recovers from that state.
type Backend interface {
	// Open decodes data into a new handle. The handle exists immediately but
	// is only usable for playback once onReady has fired without error.
	// onReady may fire on any goroutine.
	Open(data []byte, onReady func(error)) (Handle, error)
	// Resume resumes the shared output context if it is suspended.
	Resume() error
	// Suspended reports whether the shared output context is suspended.
	Suspended() bool
}

// Handle is one live decode/playback instance.
type Handle interface {
	Play() error
	Pause() error
	Stop()
	SetVolume(v float64)
	Close() error
}
