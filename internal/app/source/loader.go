package source

import (
	"context"
	"slices"
	"sync"

	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/moodbox/internal/domain/track"
)

// PlaylistStore is the subset of the playback store the loader writes to.
type PlaylistStore interface {
	SetPlaylist(title string, tracks []track.Track)
	RemovePlaylist(title string)
}

// Result summarizes a load.
type Result struct {
	Loaded []string // playlist titles
	Failed []string // source names
}

// Loader pushes source playlists into the store and remembers which source
// owns each title.
type Loader struct {
	store   PlaylistStore
	sources []Source

	mu     sync.Mutex // serializes loads
	owners map[string]Source
	titles map[Source][]string // titles from each source's last successful load
}

// NewLoader creates a new loader.
func NewLoader(store PlaylistStore, sources []Source) *Loader {
	return &Loader{
		store:   store,
		sources: sources,
		owners:  make(map[string]Source),
		titles:  make(map[Source][]string),
	}
}

// Sources returns the configured sources.
func (l *Loader) Sources() []Source {
	return l.sources
}

// LoadAll loads every source. A failing source is logged and skipped.
func (l *Loader) LoadAll(ctx context.Context) Result {
	var result Result
	for _, src := range l.sources {
		titles, err := l.Load(ctx, src)
		if err != nil {
			result.Failed = append(result.Failed, src.Name())
			continue
		}
		result.Loaded = append(result.Loaded, titles...)
	}
	zlog.Info().Msgf("playlists loaded: loaded=%d failed=%v", len(result.Loaded), result.Failed)
	return result
}

// Load loads a single source. Titles the source provided last time but no
// longer does are removed from the store.
func (l *Loader) Load(ctx context.Context, src Source) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	playlists, err := src.Load(ctx)
	if err != nil {
		zlog.Error().Err(err).Msgf("failed to load source: %s", src.Name())
		return nil, err
	}

	titles := make([]string, 0, len(playlists))
	for _, p := range playlists {
		if owner, ok := l.owners[p.Title]; ok && owner != src {
			zlog.Warn().Msgf("playlist %q from %s replaces the one from %s", p.Title, src.Name(), owner.Name())
		}
		l.store.SetPlaylist(p.Title, p.Tracks)
		l.owners[p.Title] = src
		titles = append(titles, p.Title)
	}

	stale, _ := lo.Difference(l.titles[src], titles)
	for _, title := range stale {
		if l.owners[title] != src {
			continue
		}
		zlog.Info().Msgf("playlist %q disappeared from %s", title, src.Name())
		l.store.RemovePlaylist(title)
		delete(l.owners, title)
	}
	l.titles[src] = titles

	return titles, nil
}

// Owner returns the source that provided the title.
func (l *Loader) Owner(title string) (Source, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.owners[title]
	return src, ok
}

// Forget drops ownership of a title after it was deleted.
func (l *Loader) Forget(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.owners[title]
	if !ok {
		return
	}
	delete(l.owners, title)
	l.titles[src] = slices.DeleteFunc(l.titles[src], func(t string) bool { return t == title })
}
