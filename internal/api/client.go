// Package api speaks the fixed contract of the dispatch server: REST for
// bulk loads, talkgroup history, corrective marker operations and audio
// payloads, plus the websocket push channel for live events.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c.HTTPClient
}

// Incidents bulk-loads incidents for the rolling window of the last hours.
func (c *Client) Incidents(ctx context.Context, hours int) ([]models.Incident, error) {
	endpoint := fmt.Sprintf("%s/incidents?hours=%d", c.BaseURL, hours)
	return c.getIncidents(ctx, endpoint)
}

// IncidentsRange bulk-loads incidents for an explicit start/end window.
func (c *Client) IncidentsRange(ctx context.Context, start, end time.Time) ([]models.Incident, error) {
	endpoint := fmt.Sprintf("%s/incidents?start=%s&end=%s",
		c.BaseURL,
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)))
	return c.getIncidents(ctx, endpoint)
}

// TalkgroupCalls fetches calls for one talk group. With sinceID set it
// returns only records newer than that ID, otherwise the last hours.
func (c *Client) TalkgroupCalls(ctx context.Context, talkgroupID string, hours int, sinceID string) ([]models.Incident, error) {
	endpoint := fmt.Sprintf("%s/talkgroup/%s/calls", c.BaseURL, url.PathEscape(talkgroupID))
	if sinceID != "" {
		endpoint += "?sinceId=" + url.QueryEscape(sinceID)
	} else {
		endpoint += fmt.Sprintf("?hours=%d", hours)
	}
	return c.getIncidents(ctx, endpoint)
}

func (c *Client) getIncidents(ctx context.Context, endpoint string) ([]models.Incident, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error: %s", resp.Status)
	}
	var incidents []models.Incident
	if err := json.NewDecoder(resp.Body).Decode(&incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// UpdateMarkerLocation asks the server to correct an incident's position.
// The caller applies the relocation locally only after success.
func (c *Client) UpdateMarkerLocation(ctx context.Context, id string, lat, lon float64) error {
	body, _ := json.Marshal(map[string]float64{"lat": lat, "lon": lon})
	endpoint := fmt.Sprintf("%s/markers/%s/location", c.BaseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doNoContent(req)
}

// DeleteMarker asks the server to delete an incident.
func (c *Client) DeleteMarker(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/markers/%s", c.BaseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return c.doNoContent(req)
}

func (c *Client) doNoContent(req *http.Request) error {
	resp, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server error: %s", resp.Status)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Audio fetches the raw decodable payload for an audio reference. The
// signature matches audio.FetchFunc.
func (c *Client) Audio(ctx context.Context, audioRef string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/audio/%s", c.BaseURL, url.PathEscape(audioRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
