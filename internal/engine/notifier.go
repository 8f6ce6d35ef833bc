package engine

import (
	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

// LogNotifier writes banner, sound and feed events to the log. It stands in
// for the browser notification layer when the engine runs headless.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) ShowBanner(inc models.Incident) {
	n.Log.Info().
		Str("id", inc.ID).
		Str("talkgroup", inc.TalkgroupName).
		Strs("tones", inc.Tones).
		Msg("banner")
}

func (n LogNotifier) PlayAlertSound() {
	n.Log.Debug().Msg("alert sound")
}

func (n LogNotifier) FeedShow(inc models.Incident) {
	n.Log.Info().Str("id", inc.ID).Str("talkgroup", inc.TalkgroupName).Msg("live feed show")
}

func (n LogNotifier) FeedRemove(id string) {
	n.Log.Debug().Str("id", id).Msg("live feed remove")
}
