// Package control is the HTTP surface the UI glue talks to: filter and
// toggle setters, subscription updates, volume, sidebar counts, and the
// corrective marker operations that proxy to the dispatch server.
package control

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/api"
	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/config"
	"github.com/poisonednumber/Scanner-map-sub004/internal/engine"
	"github.com/poisonednumber/Scanner-map-sub004/internal/history"
)

type Handler struct {
	Engine    *engine.Engine
	API       *api.Client
	Audio     *audio.Orchestrator
	Broadcast *audio.Broadcast
	Validator *validator.Validate
	Config    config.Config
	Logger    zerolog.Logger

	histMu    sync.Mutex
	histView  *history.Poller
	histGroup string
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Engine state
// @Description Visible count, per-category counts, filter criteria and toggles
// @Tags state
// @Produce json
// @Success 200 {object} engine.Snapshot
// @Router /api/state [get]
func (h *Handler) State(c *gin.Context) {
	snap := h.Engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"state":  snap,
		"volume": h.Audio.Volume(),
	})
}

type filtersRequest struct {
	Hours    *int       `json:"hours"`
	Start    *time.Time `json:"start"`
	End      *time.Time `json:"end"`
	Search   *string    `json:"search"`
	Category *string    `json:"category"`
}

// @Summary Update filters
// @Tags filters
// @Accept json
// @Produce json
// @Param body body filtersRequest true "filter changes"
// @Success 200 {object} engine.Snapshot
// @Router /api/filters [put]
func (h *Handler) SetFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return
	}
	if req.Hours != nil && (*req.Hours < 1 || *req.Hours > 168) {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "hours must be between 1 and 168", nil)
		return
	}
	if (req.Start != nil) != (req.End != nil) {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "start and end must be set together", nil)
		return
	}
	if req.Hours != nil && req.Start != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "hours and start/end are mutually exclusive", nil)
		return
	}

	if req.Hours != nil {
		h.Engine.SetWindowHours(*req.Hours)
	}
	if req.Start != nil {
		h.Engine.SetWindowRange(*req.Start, *req.End)
	}
	if req.Search != nil {
		h.Engine.SetSearch(*req.Search)
	}
	if req.Category != nil {
		h.Engine.SetCategory(*req.Category)
	}
	c.JSON(http.StatusOK, h.Engine.Snapshot())
}

type togglesRequest struct {
	Tracking  *bool `json:"tracking"`
	Muted     *bool `json:"muted"`
	LiveAudio *bool `json:"live_audio"`
}

func (h *Handler) SetToggles(c *gin.Context) {
	var req togglesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return
	}
	if req.Tracking != nil {
		h.Engine.SetTracking(*req.Tracking)
	}
	if req.Muted != nil {
		h.Engine.SetMuted(*req.Muted)
	}
	if req.LiveAudio != nil {
		h.Engine.SetLiveAudio(*req.LiveAudio)
	}
	c.JSON(http.StatusOK, h.Engine.Snapshot())
}

type subscriptionsRequest struct {
	Talkgroups []string `json:"talkgroups" validate:"required"`
}

func (h *Handler) SetSubscriptions(c *gin.Context) {
	var req subscriptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Validation failed", err.Error())
		return
	}
	h.Engine.SetSubscriptions(req.Talkgroups)
	c.JSON(http.StatusOK, h.Engine.Snapshot())
}

type volumeRequest struct {
	Level float64 `json:"level" validate:"min=0,max=1"`
}

func (h *Handler) SetVolume(c *gin.Context) {
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Validation failed", err.Error())
		return
	}
	h.Audio.SetGlobalVolume(req.Level)
	h.Broadcast.SetVolume(req.Level)
	c.JSON(http.StatusOK, gin.H{"volume": req.Level})
}

type locationRequest struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// @Summary Correct a marker position
// @Description Updates the server record, then relocates the local marker
// @Tags markers
// @Accept json
// @Produce json
// @Param id path string true "incident id"
// @Param body body locationRequest true "new position"
// @Success 200 {object} map[string]any
// @Router /api/markers/{id}/location [post]
func (h *Handler) RelocateMarker(c *gin.Context) {
	id := c.Param("id")
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Validation failed", err.Error())
		return
	}
	if !h.Engine.Known(id) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Unknown incident", nil)
		return
	}
	if err := h.API.UpdateMarkerLocation(c.Request.Context(), id, req.Lat, req.Lon); err != nil {
		h.Logger.Warn().Err(err).Str("id", id).Msg("relocate rejected by server")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Server rejected relocation", err.Error())
		return
	}
	if err := h.Engine.Relocate(id, req.Lat, req.Lon); err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Incident vanished", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "lat": req.Lat, "lon": req.Lon})
}

func (h *Handler) DeleteMarker(c *gin.Context) {
	id := c.Param("id")
	if !h.Engine.Known(id) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Unknown incident", nil)
		return
	}
	if err := h.API.DeleteMarker(c.Request.Context(), id); err != nil {
		h.Logger.Warn().Err(err).Str("id", id).Msg("delete rejected by server")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Server rejected deletion", err.Error())
		return
	}
	if err := h.Engine.Remove(id); err != nil && !errors.Is(err, engine.ErrNotFound) {
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Local removal failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}

// @Summary Open a talkgroup history view
// @Description Seeds the call list, mutes the main alert audio, and polls for newer records until closed. Any previously open view is closed first.
// @Tags history
// @Produce json
// @Param talkgroup path string true "talkgroup id"
// @Param autoplay query bool false "autoplay newly polled calls"
// @Success 200 {object} map[string]any
// @Router /api/history/{talkgroup} [post]
func (h *Handler) OpenHistory(c *gin.Context) {
	tg := c.Param("talkgroup")
	autoplay := c.Query("autoplay") == "true"

	h.histMu.Lock()
	defer h.histMu.Unlock()
	if h.histView != nil {
		h.histView.Close()
		h.histView = nil
	}
	p, err := history.Open(c.Request.Context(), history.Options{
		TalkgroupID:   tg,
		WindowHours:   h.Config.WindowHours,
		Interval:      h.Config.PollInterval,
		MaxItems:      h.Config.HistoryMax,
		Autoplay:      autoplay,
		AutoplayDelay: h.Config.AutoplayDelay,
		API:           h.API,
		Audio:         h.Audio,
		Mute:          h.Engine,
		Logger:        h.Logger,
	})
	if err != nil {
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "History open failed", err.Error())
		return
	}
	h.histView = p
	h.histGroup = tg
	c.JSON(http.StatusOK, gin.H{"talkgroup": tg, "calls": p.Items()})
}

func (h *Handler) HistoryItems(c *gin.Context) {
	h.histMu.Lock()
	defer h.histMu.Unlock()
	if h.histView == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No history view open", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"talkgroup": h.histGroup, "calls": h.histView.Items()})
}

func (h *Handler) CloseHistory(c *gin.Context) {
	h.histMu.Lock()
	defer h.histMu.Unlock()
	if h.histView == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No history view open", nil)
		return
	}
	h.histView.Close()
	h.histView = nil
	h.histGroup = ""
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

// CloseHistoryView tears down an open history view outside the request path,
// for process shutdown.
func (h *Handler) CloseHistoryView() {
	h.histMu.Lock()
	defer h.histMu.Unlock()
	if h.histView != nil {
		h.histView.Close()
		h.histView = nil
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
