package source

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/moodbox/internal/domain/playlist"
	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/lastfm"
)

// LastFmClient defines the Last.fm operations needed by LastFmSource.
type LastFmClient interface {
	GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error)
	GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.TopTrack, error)
}

// LastFmSourceConfig represents the settings of a Last.fm source.
type LastFmSourceConfig struct {
	Tags       []string `mapstructure:"tags" validate:"required_without=Chart,dive,required"`
	Chart      bool     `mapstructure:"chart"`
	ChartTitle string   `mapstructure:"chart_title" default:"Top Chart"`
	Limit      int      `mapstructure:"limit" default:"50" validate:"gte=1,lte=100"`
}

// LastFmSource builds one playlist per configured tag, plus the global chart
// when enabled. Last.fm carries no mood data, so music values stay zero.
type LastFmSource struct {
	lastfm LastFmClient
	config LastFmSourceConfig
}

// NewLastFmSource creates a LastFmSource from raw settings.
func NewLastFmSource(lastfm LastFmClient, settings map[string]any) (*LastFmSource, error) {
	if lastfm == nil {
		return nil, errors.New("last.fm client is not configured")
	}

	var config LastFmSourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &LastFmSource{lastfm: lastfm, config: config}, nil
}

// Name returns the source name.
func (s *LastFmSource) Name() string {
	return "lastfm"
}

// Load fetches the top tracks of every tag.
func (s *LastFmSource) Load(ctx context.Context) ([]playlist.Playlist, error) {
	var playlists []playlist.Playlist
	var lastErr error

	for _, tag := range s.config.Tags {
		tops, err := s.lastfm.GetTopTracks(ctx, tag, s.config.Limit)
		if err != nil {
			zlog.Warn().Msgf("failed to load last.fm tag: tag=%s error=%v", tag, err)
			lastErr = err
			continue
		}
		playlists = append(playlists, playlist.Playlist{Title: tag, Tracks: convertTopTracks(tops)})
	}

	if s.config.Chart {
		tops, err := s.lastfm.GetChartTopTracks(ctx, s.config.Limit)
		if err != nil {
			zlog.Warn().Msgf("failed to load last.fm chart: error=%v", err)
			lastErr = err
		} else {
			playlists = append(playlists, playlist.Playlist{Title: s.config.ChartTitle, Tracks: convertTopTracks(tops)})
		}
	}

	if len(playlists) == 0 && lastErr != nil {
		return nil, errors.Wrap(lastErr, "all last.fm playlists failed to load")
	}
	return playlists, nil
}

func convertTopTracks(tops []lastfm.TopTrack) []track.Track {
	return lo.Map(tops, func(t lastfm.TopTrack, _ int) track.Track {
		return track.Track{
			Author:    t.Artist,
			Title:     t.Name,
			Thumbnail: t.ImageURL,
		}
	})
}
