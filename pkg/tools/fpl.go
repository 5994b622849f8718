package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const fplCacheTTL = time.Hour

// FPLElement is one player entry from the FPL bootstrap-static feed.
type FPLElement struct {
	FirstName     string `json:"first_name"`
	SecondName    string `json:"second_name"`
	ElementType   int    `json:"element_type"`
	NowCost       int    `json:"now_cost"`
	TotalPoints   int    `json:"total_points"`
	GoalsScored   int    `json:"goals_scored"`
	Assists       int    `json:"assists"`
	CleanSheets   int    `json:"clean_sheets"`
	Minutes       int    `json:"minutes"`
	YellowCards   int    `json:"yellow_cards"`
	RedCards      int    `json:"red_cards"`
	Form          string `json:"form"`
	PointsPerGame string `json:"points_per_game"`
	Saves         int    `json:"saves"`
	GoalsConceded int    `json:"goals_conceded"`
}

type fplBootstrap struct {
	Elements []FPLElement `json:"elements"`
}

// FPLClient fetches the Fantasy Premier League bootstrap-static feed and
// caches the element list in memory. Expired entries are refetched lazily
// on the next lookup.
type FPLClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger

	mu        sync.RWMutex
	elements  []FPLElement
	fetchedAt time.Time
}

func NewFPLClient(baseURL string, logger *slog.Logger) *FPLClient {
	return &FPLClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger.With("component", "fpl"),
	}
}

// FindPlayer returns the element whose "first second" name matches fullName
// case-insensitively, or nil when no element matches.
func (c *FPLClient) FindPlayer(ctx context.Context, fullName string) (*FPLElement, error) {
	elements, err := c.bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(fullName))
	for i := range elements {
		name := strings.ToLower(elements[i].FirstName + " " + elements[i].SecondName)
		if name == want {
			return &elements[i], nil
		}
	}
	return nil, nil
}

func (c *FPLClient) bootstrap(ctx context.Context) ([]FPLElement, error) {
	c.mu.RLock()
	if c.elements != nil && time.Since(c.fetchedAt) <= fplCacheTTL {
		elements := c.elements
		c.mu.RUnlock()
		return elements, nil
	}
	c.mu.RUnlock()

	url := c.baseURL + "/bootstrap-static/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch FPL bootstrap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FPL API returned HTTP %d", resp.StatusCode)
	}

	var payload fplBootstrap
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode FPL bootstrap: %w", err)
	}

	c.mu.Lock()
	c.elements = payload.Elements
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("Refreshed FPL bootstrap cache", "elements", len(payload.Elements))
	return payload.Elements, nil
}
