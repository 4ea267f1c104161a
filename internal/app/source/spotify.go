package source

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/domain/playlist"
)

// SpotifyClient defines the Spotify operations needed by SpotifySource.
type SpotifyClient interface {
	GetPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error)
	UnfollowPlaylist(ctx context.Context, playlistURL string) error
}

// SpotifyPlaylistConfig represents a single Spotify playlist to import.
type SpotifyPlaylistConfig struct {
	URL   string `mapstructure:"url" validate:"required"`
	Title string `mapstructure:"title"` // overrides the Spotify playlist name
}

// SpotifySourceConfig represents the settings of a Spotify source.
type SpotifySourceConfig struct {
	Playlists []SpotifyPlaylistConfig `mapstructure:"playlists" validate:"required,min=1,dive"`
}

// SpotifySource imports playlists from Spotify.
type SpotifySource struct {
	spotify SpotifyClient
	config  SpotifySourceConfig

	mu   sync.Mutex
	urls map[string]string // title -> playlist URL, from the last load
}

// NewSpotifySource creates a SpotifySource from raw settings.
func NewSpotifySource(spotify SpotifyClient, settings map[string]any) (*SpotifySource, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is not configured")
	}

	var config SpotifySourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &SpotifySource{
		spotify: spotify,
		config:  config,
		urls:    make(map[string]string),
	}, nil
}

// Name returns the source name.
func (s *SpotifySource) Name() string {
	return "spotify"
}

// Load fetches every configured playlist. A playlist that fails to load is
// skipped; the load only fails when none succeeds.
func (s *SpotifySource) Load(ctx context.Context) ([]playlist.Playlist, error) {
	var playlists []playlist.Playlist
	urls := make(map[string]string)
	var lastErr error

	for _, pc := range s.config.Playlists {
		p, err := s.spotify.GetPlaylist(ctx, pc.URL)
		if err != nil {
			zlog.Warn().Msgf("failed to load spotify playlist: url=%s error=%v", pc.URL, err)
			lastErr = err
			continue
		}

		imported := p.Clone()
		if pc.Title != "" {
			imported.Title = pc.Title
		}
		playlists = append(playlists, imported)
		urls[imported.Title] = pc.URL
	}

	if len(playlists) == 0 && lastErr != nil {
		return nil, errors.Wrap(lastErr, "all spotify playlists failed to load")
	}

	s.mu.Lock()
	s.urls = urls
	s.mu.Unlock()

	return playlists, nil
}

// Remove unfollows the playlist on Spotify.
func (s *SpotifySource) Remove(ctx context.Context, title string) error {
	s.mu.Lock()
	url, ok := s.urls[title]
	s.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrPlaylistNotFound, "%q in spotify", title)
	}

	if err := s.spotify.UnfollowPlaylist(ctx, url); err != nil {
		return errors.Wrapf(err, "failed to remove %q from spotify", title)
	}
	return nil
}
