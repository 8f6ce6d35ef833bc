package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CategoryOther is the bucket for incidents with no recognized category.
const CategoryOther = "Other"

// Incident is one geolocated, timestamped dispatch call. Records are
// immutable once received; corrections arrive as separate relocate/delete
// operations from the server.
type Incident struct {
	ID            string    `json:"id" validate:"required"`
	TalkgroupID   string    `json:"talkgroup_id" validate:"required"`
	TalkgroupName string    `json:"talkgroup_name"`
	Latitude      float64   `json:"latitude" validate:"latitude"`
	Longitude     float64   `json:"longitude" validate:"longitude"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	Transcription string    `json:"transcription"`
	Category      string    `json:"category,omitempty"`
	AudioRef      string    `json:"audio_ref,omitempty"`
	SourcePath    string    `json:"source_path,omitempty"`
	Tones         []string  `json:"tones,omitempty"`
}

var validate = validator.New()

// Validate rejects malformed records before they can reach the store.
func (i Incident) Validate() error {
	return validate.Struct(i)
}

// NormalizeCategory maps a raw category label to its canonical form.
// Empty or whitespace-only labels fall into CategoryOther.
func NormalizeCategory(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryOther
	}
	lower := strings.ToLower(raw)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Push channel event types.
const (
	EventNewCall        = "newCall"
	EventLiveFeedUpdate = "liveFeedUpdate"
)

// PushEvent is one frame from the server push channel.
type PushEvent struct {
	Type string   `json:"type"`
	Call Incident `json:"call"`
}
