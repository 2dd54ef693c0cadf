package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pefman/w40k-roster/internal/models"
	"github.com/pefman/w40k-roster/internal/session"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

var httpClient = &http.Client{Timeout: 8 * time.Second}

const factionCacheTTL = 5 * time.Minute

// Config holds API configuration
type Config struct {
	BaseURL string
}

// Client talks to a running roster server.
type Client struct {
	config Config
	http   *http.Client

	// Faction list cache; the reference data changes rarely.
	factionMu   sync.RWMutex
	factions    []wahapedia.Faction
	factionTime time.Time
}

func NewClient(baseURL string) *Client {
	return &Client{
		config: Config{BaseURL: baseURL},
		http:   httpClient,
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	base := strings.TrimRight(c.config.BaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return &APIError{Status: resp.StatusCode, Message: eb.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) apiGet(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func sessionPath(id string, parts ...string) string {
	p := "/api/sessions/" + url.PathEscape(id)
	for _, s := range parts {
		p += "/" + url.PathEscape(s)
	}
	return p
}

func (c *Client) Reference(ctx context.Context) (ReferenceStatus, error) {
	var out ReferenceStatus
	err := c.apiGet(ctx, "/api/reference", &out)
	return out, err
}

func (c *Client) FetchFactions(ctx context.Context) ([]wahapedia.Faction, error) {
	c.factionMu.RLock()
	if time.Since(c.factionTime) < factionCacheTTL && len(c.factions) > 0 {
		result := make([]wahapedia.Faction, len(c.factions))
		copy(result, c.factions)
		c.factionMu.RUnlock()
		return result, nil
	}
	c.factionMu.RUnlock()

	var res []wahapedia.Faction
	if err := c.apiGet(ctx, "/api/factions", &res); err != nil {
		return nil, err
	}

	c.factionMu.Lock()
	c.factions = make([]wahapedia.Faction, len(res))
	copy(c.factions, res)
	c.factionTime = time.Now()
	c.factionMu.Unlock()

	return res, nil
}

// Parse runs the roster parser server-side.
func (c *Client) Parse(ctx context.Context, text string) (models.ParsedArmyList, error) {
	var out models.ParsedArmyList
	err := c.do(ctx, http.MethodPost, "/api/parse", "text/plain", strings.NewReader(text), &out)
	return out, err
}

// CreateSession imports a roster and returns the enriched session.
func (c *Client) CreateSession(ctx context.Context, text string) (session.View, error) {
	var out session.View
	err := c.do(ctx, http.MethodPost, "/api/sessions", "text/plain", strings.NewReader(text), &out)
	return out, err
}

func (c *Client) Session(ctx context.Context, id string) (session.View, error) {
	var out session.View
	err := c.apiGet(ctx, sessionPath(id), &out)
	return out, err
}

func (c *Client) SetLeader(ctx context.Context, id, characterID, unitID string) (session.View, error) {
	var out session.View
	err := c.sendJSON(ctx, http.MethodPut, sessionPath(id, "leaders", characterID), leaderRequest{UnitID: unitID}, &out)
	return out, err
}

func (c *Client) RemoveLeader(ctx context.Context, id, characterID string) (session.View, error) {
	var out session.View
	err := c.sendJSON(ctx, http.MethodDelete, sessionPath(id, "leaders", characterID), nil, &out)
	return out, err
}

func (c *Client) EligibleTargets(ctx context.Context, id, characterID string) ([]EligibleTarget, error) {
	var out []EligibleTarget
	err := c.apiGet(ctx, sessionPath(id, "leaders", characterID, "eligible"), &out)
	return out, err
}

func (c *Client) Embark(ctx context.Context, id, unitID, transportID string) (session.View, error) {
	var out session.View
	err := c.sendJSON(ctx, http.MethodPut, sessionPath(id, "transports", unitID), transportRequest{TransportID: transportID}, &out)
	return out, err
}

func (c *Client) Disembark(ctx context.Context, id, unitID string) (session.View, error) {
	var out session.View
	err := c.sendJSON(ctx, http.MethodDelete, sessionPath(id, "transports", unitID), nil, &out)
	return out, err
}
