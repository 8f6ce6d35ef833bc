package api

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
	"github.com/poisonednumber/Scanner-map-sub004/internal/utils"
)

// StreamHandler receives push events. Connection lifecycle never reaches
// the handler; reconnects only re-arm the keepalive.
type StreamHandler interface {
	HandleNewCall(inc models.Incident)
	HandleLiveFeed(inc models.Incident)
}

// Stream maintains the websocket push channel: dial, read, dispatch, and
// reconnect with jittered exponential backoff. Each (re)connect re-arms the
// periodic ping keepalive.
type Stream struct {
	URL          string
	Handler      StreamHandler
	Log          zerolog.Logger
	PingInterval time.Duration

	clientID string
}

const (
	streamBackoffMin = time.Second
	streamBackoffMax = 30 * time.Second
)

// Run blocks until ctx is done, keeping the push channel alive across
// failures.
func (s *Stream) Run(ctx context.Context) {
	if s.clientID == "" {
		s.clientID = uuid.NewString()
	}
	if s.PingInterval <= 0 {
		s.PingInterval = 25 * time.Second
	}
	log := s.Log.With().Str("component", "stream").Logger()

	backoff := streamBackoffMin
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.connectAndRead(ctx, log)
		if ctx.Err() != nil {
			return
		}
		attempt++
		wait := backoff + s.jitter(attempt)
		log.Warn().Err(err).Dur("retry_in", wait).Msg("push channel lost")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		backoff *= 2
		if backoff > streamBackoffMax {
			backoff = streamBackoffMax
		}
	}
}

// jitter spreads reconnect storms; it is derived from the client id so a
// given client's retry pattern is stable across runs.
func (s *Stream) jitter(attempt int) time.Duration {
	h := utils.HashStringToUint64(s.clientID + strconv.Itoa(attempt))
	return time.Duration(h%500) * time.Millisecond
}

func (s *Stream) connectAndRead(ctx context.Context, log zerolog.Logger) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info().Str("url", s.URL).Msg("push channel connected")

	// Keepalive lives and dies with this connection.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go s.keepalive(pingCtx, conn)

	go func() {
		<-pingCtx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev models.PushEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn().Err(err).Msg("bad push frame")
			continue
		}
		switch ev.Type {
		case models.EventNewCall:
			s.Handler.HandleNewCall(ev.Call)
		case models.EventLiveFeedUpdate:
			s.Handler.HandleLiveFeed(ev.Call)
		default:
			log.Debug().Str("type", ev.Type).Msg("ignoring push event")
		}
	}
}

func (s *Stream) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
