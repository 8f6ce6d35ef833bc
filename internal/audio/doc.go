// Package audio manages per-incident playback sessions and the live
// broadcast channel.
//
// Sessions are keyed by (namespace, incident id). Namespaces isolate the map
// popup players from the talkgroup history players so the same incident can
// hold a session in each without collision. Re-initializing a key always
// tears down the previous handle first; a key never carries two live decode
// handles.
//
// The live broadcast channel uses a different policy: starting a new
// broadcast stops the previous source synchronously instead of queueing.
// Sessions in different namespaces (and different popups within one
// namespace) may play concurrently while the broadcast stays exclusive.
// Whether concurrent popup playback is intentional has not been settled with
// product; the asymmetry is deliberately preserved as observed.
package audio
