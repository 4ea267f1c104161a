// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const (
	defaultBaseURL  = "https://ws.audioscrobbler.com/2.0/"
	defaultCacheTTL = 10 * time.Minute
	maxLimit        = 100
)

// cacheEntry represents a cached top-tracks result.
type cacheEntry struct {
	tracks    []TopTrack
	fetchedAt time.Time
}

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cacheTTL   time.Duration
	now        func() time.Time

	cache   map[string]cacheEntry
	cacheMu sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey   string
	CacheTTL time.Duration // 0 = default
}

// TopTrack represents a top track of a tag or chart.
type TopTrack struct {
	Name     string
	Artist   string
	ImageURL string // Largest image, may be empty
}

// topTracksResponse is the shared shape of tag.getTopTracks and chart.getTopTracks.
type topTracksResponse struct {
	Tracks struct {
		Track []struct {
			Name   string `json:"name"`
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
			Image []struct {
				URL  string `json:"#text"`
				Size string `json:"size"`
			} `json:"image"`
		} `json:"track"`
	} `json:"tracks"`
}

// apiError represents an error response from Last.fm API.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheTTL:   ttl,
		now:        time.Now,
		cache:      make(map[string]cacheEntry),
	}, nil
}

// GetTopTracks retrieves top tracks for a tag from Last.fm.
// Reference: https://www.last.fm/api/show/tag.getTopTracks
func (c *Client) GetTopTracks(ctx context.Context, tagName string, limit int) ([]TopTrack, error) {
	if tagName == "" {
		return nil, errors.New("tag name is required")
	}

	params := url.Values{}
	params.Set("method", "tag.getTopTracks")
	params.Set("tag", tagName)

	return c.topTracks(ctx, fmt.Sprintf("tag:%s", tagName), params, limit)
}

// GetChartTopTracks retrieves global top tracks from Last.fm charts.
// Reference: https://www.last.fm/api/show/chart.getTopTracks
func (c *Client) GetChartTopTracks(ctx context.Context, limit int) ([]TopTrack, error) {
	params := url.Values{}
	params.Set("method", "chart.getTopTracks")

	return c.topTracks(ctx, "chart", params, limit)
}

func (c *Client) topTracks(ctx context.Context, key string, params url.Values, limit int) ([]TopTrack, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	cacheKey := fmt.Sprintf("%s:%d", key, limit)

	c.cacheMu.RLock()
	entry, ok := c.cache[cacheKey]
	c.cacheMu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.cacheTTL {
		zlog.Debug().Msgf("using cached top tracks: %s", cacheKey)
		return entry.tracks, nil
	}

	params.Set("limit", fmt.Sprintf("%d", limit))

	var response topTracksResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}

	tracks := make([]TopTrack, 0, len(response.Tracks.Track))
	for _, t := range response.Tracks.Track {
		var image string
		if n := len(t.Image); n > 0 {
			image = t.Image[n-1].URL
		}
		tracks = append(tracks, TopTrack{
			Name:     t.Name,
			Artist:   t.Artist.Name,
			ImageURL: image,
		})
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = cacheEntry{tracks: tracks, fetchedAt: c.now()}
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached top tracks: %s (count: %d)", cacheKey, len(tracks))

	return tracks, nil
}

// get performs a GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Last.fm reports API errors in the body, sometimes with a 200 status.
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return errors.Errorf("last.fm API error %d: %s", apiErr.Error, apiErr.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("last.fm API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
