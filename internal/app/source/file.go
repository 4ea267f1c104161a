package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/osa030/moodbox/internal/domain/playlist"
	"github.com/osa030/moodbox/internal/domain/track"
)

// ErrPlaylistNotFound is returned when a source does not hold the playlist.
var ErrPlaylistNotFound = errors.New("playlist not found in source")

// FileSourceConfig represents the settings of a YAML catalog source.
type FileSourceConfig struct {
	Path  string `mapstructure:"path" validate:"required"`
	Watch bool   `mapstructure:"watch"`
}

// catalog is the on-disk layout of a playlist catalog.
type catalog struct {
	Playlists []catalogPlaylist `yaml:"playlists"`
}

type catalogPlaylist struct {
	Title  string         `yaml:"title"`
	Tracks []catalogTrack `yaml:"tracks"`
}

type catalogTrack struct {
	Author             string           `yaml:"author"`
	Title              string           `yaml:"title"`
	Thumbnail          string           `yaml:"thumbnail,omitempty"`
	ThumbnailColorcode string           `yaml:"thumbnail_colorcode,omitempty"`
	MusicValue         track.MusicValue `yaml:"music_value"`
}

// FileSource loads playlists from a YAML catalog file.
type FileSource struct {
	mu     sync.Mutex // serializes catalog reads and rewrites
	config FileSourceConfig
}

// NewFileSource creates a FileSource from raw settings.
func NewFileSource(settings map[string]any) (*FileSource, error) {
	var config FileSourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &FileSource{config: config}, nil
}

// Name returns the source name.
func (s *FileSource) Name() string {
	return "file:" + s.config.Path
}

// Path returns the catalog path.
func (s *FileSource) Path() string {
	return s.config.Path
}

// Watched reports whether the catalog should be reloaded on change.
func (s *FileSource) Watched() bool {
	return s.config.Watch
}

// Load reads the catalog.
func (s *FileSource) Load(ctx context.Context) ([]playlist.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return nil, err
	}

	playlists := lo.Map(c.Playlists, func(p catalogPlaylist, _ int) playlist.Playlist {
		return playlist.Playlist{
			Title: p.Title,
			Tracks: lo.Map(p.Tracks, func(t catalogTrack, _ int) track.Track {
				return track.Track{
					Author:             t.Author,
					Title:              t.Title,
					Thumbnail:          t.Thumbnail,
					ThumbnailColorcode: t.ThumbnailColorcode,
					MusicValue:         t.MusicValue,
				}
			}),
		}
	})

	return lo.Filter(playlists, func(p playlist.Playlist, i int) bool {
		if p.Title == "" {
			zlog.Warn().Msgf("skipping untitled playlist: catalog=%s index=%d", s.config.Path, i)
			return false
		}
		return true
	}), nil
}

// Remove deletes the playlist from the catalog file.
func (s *FileSource) Remove(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return err
	}

	kept := lo.Filter(c.Playlists, func(p catalogPlaylist, _ int) bool {
		return p.Title != title
	})
	if len(kept) == len(c.Playlists) {
		return errors.Wrapf(ErrPlaylistNotFound, "%q in %s", title, s.config.Path)
	}
	c.Playlists = kept

	return s.write(c)
}

func (s *FileSource) read() (*catalog, error) {
	data, err := os.ReadFile(s.config.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read catalog")
	}

	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}
	return &c, nil
}

func (s *FileSource) write(c *catalog) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal catalog")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.config.Path), filepath.Base(s.config.Path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write catalog")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close catalog")
	}
	if err := os.Rename(tmp.Name(), s.config.Path); err != nil {
		return errors.Wrap(err, "failed to replace catalog")
	}
	return nil
}
