package source

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/infra/config"
)

// Deps holds the remote clients sources may need. A nil client is only an
// error when a source of that type is configured.
type Deps struct {
	Spotify SpotifyClient
	LastFm  LastFmClient
}

// NewSourcesFromConfig creates one source per configured entry.
func NewSourcesFromConfig(cfg *config.Config, deps Deps) ([]Source, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no playlist sources configured")
	}

	var sources []Source

	for i, scfg := range cfg.Sources {
		var src Source
		var err error
		zlog.Debug().Msgf("creating playlist source: index=%d type=%s settings=%+v", i+1, scfg.Type, scfg.Settings)
		switch scfg.Type {
		case config.SourceTypeFile:
			src, err = NewFileSource(scfg.Settings)

		case config.SourceTypeSpotify:
			src, err = NewSpotifySource(deps.Spotify, scfg.Settings)

		case config.SourceTypeLastFm:
			src, err = NewLastFmSource(deps.LastFm, scfg.Settings)

		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", scfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, scfg.Type)
		}

		sources = append(sources, src)
		zlog.Info().Msgf("registered playlist source: index=%d name=%s", i+1, src.Name())
	}

	return sources, nil
}

// FileSources returns the file sources that asked to be watched.
func FileSources(sources []Source) []*FileSource {
	var watched []*FileSource
	for _, src := range sources {
		if fs, ok := src.(*FileSource); ok && fs.Watched() {
			watched = append(watched, fs)
		}
	}
	return watched
}
