// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/moodbox/internal/domain/playlist"
	"github.com/osa030/moodbox/internal/domain/track"
)

// audioFeaturesBatch is the maximum number of IDs per audio-features request.
const audioFeaturesBatch = 100

// Scopes are the OAuth scopes the playlist source needs.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	return newClient(httpClient, cfg.Market), nil
}

func newClient(httpClient *http.Client, market string, opts ...spotify.ClientOption) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		client:     spotify.New(httpClient, opts...),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// GetPlaylist retrieves a playlist with all of its tracks. Mood values are
// taken from the tracks' audio features when Spotify provides them.
func (c *Client) GetPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error) {
	playlistID := extractPlaylistID(playlistURL)
	if playlistID == "" {
		return nil, errors.New("invalid playlist URL")
	}

	var name string
	err := c.retry(func() error {
		p, err := c.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields("name"))
		if err != nil {
			return err
		}
		name = p.Name
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist")
	}

	fullTracks, err := c.getPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	features, err := c.getAudioFeatures(ctx, fullTracks)
	if err != nil {
		// Audio features are unavailable to many apps; tracks stay usable without them.
		zlog.Warn().Msgf("audio features unavailable, mood values left at zero: playlist=%s error=%v", name, err)
		features = nil
	}

	tracks := make([]track.Track, 0, len(fullTracks))
	for _, ft := range fullTracks {
		tracks = append(tracks, convertTrack(ft, features[ft.ID]))
	}

	return &playlist.Playlist{Title: name, Tracks: tracks}, nil
}

// getPlaylistTracks pages through the playlist items, skipping episodes.
func (c *Client) getPlaylistTracks(ctx context.Context, playlistID string) ([]*spotify.FullTrack, error) {
	var tracks []*spotify.FullTrack
	offset := 0
	limit := 100

	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				tracks = append(tracks, item.Track.Track)
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// getAudioFeatures fetches audio features for the given tracks in batches.
func (c *Client) getAudioFeatures(ctx context.Context, tracks []*spotify.FullTrack) (map[spotify.ID]*spotify.AudioFeatures, error) {
	features := make(map[spotify.ID]*spotify.AudioFeatures, len(tracks))

	for start := 0; start < len(tracks); start += audioFeaturesBatch {
		end := min(start+audioFeaturesBatch, len(tracks))
		ids := make([]spotify.ID, 0, end-start)
		for _, t := range tracks[start:end] {
			ids = append(ids, t.ID)
		}

		var batch []*spotify.AudioFeatures
		err := c.retry(func() error {
			f, err := c.client.GetAudioFeatures(ctx, ids...)
			if err != nil {
				return err
			}
			batch = f
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get audio features")
		}

		for _, f := range batch {
			if f != nil {
				features[f.ID] = f
			}
		}
	}

	return features, nil
}

// UnfollowPlaylist removes the playlist from the user's library.
func (c *Client) UnfollowPlaylist(ctx context.Context, playlistURL string) error {
	playlistID := extractPlaylistID(playlistURL)
	if playlistID == "" {
		return errors.New("invalid playlist URL")
	}

	err := c.retry(func() error {
		return c.client.UnfollowPlaylist(ctx, spotify.ID(playlistID))
	})
	if err != nil {
		return errors.Wrap(err, "failed to unfollow playlist")
	}
	return nil
}

// convertTrack converts a Spotify FullTrack and its optional audio features to
// a domain Track.
func convertTrack(t *spotify.FullTrack, f *spotify.AudioFeatures) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	var albumArt string
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}

	var value track.MusicValue
	if f != nil {
		value = track.MusicValue{
			Emotion: scale(f.Valence),
			Energy:  scale(f.Energy),
		}
	}

	return track.Track{
		Author:     strings.Join(artists, ", "),
		Title:      t.Name,
		Thumbnail:  albumArt,
		MusicValue: value,
	}
}

// scale maps a 0..1 audio feature to 0..100 with one decimal.
func scale(v float32) float64 {
	return math.Round(float64(v)*1000) / 10
}

// retry retries an operation with exponential backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:playlist:") {
		return strings.TrimPrefix(input, "spotify:playlist:")
	}

	// https://open.spotify.com/playlist/ID or https://open.spotify.com/intl-XX/playlist/ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/playlist/") {
		parts := strings.Split(input, "/playlist/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	return input
}
