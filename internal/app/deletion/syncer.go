// Package deletion removes playlists from the store and from the source that
// provided them.
package deletion

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/app/source"
	"github.com/osa030/moodbox/internal/app/store"
)

var (
	// ErrProtectedPlaylist is returned when deleting the fallback playlist.
	ErrProtectedPlaylist = errors.New("playlist is protected")
	// ErrPlaylistNotFound is returned when the store does not hold the playlist.
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// Store is the subset of the playback store the syncer needs.
type Store interface {
	Snapshot() store.State
	RemovePlaylist(title string)
	SetCurrentPlaylist(title string)
}

// Owners resolves the source that provided a playlist.
type Owners interface {
	Owner(title string) (source.Source, bool)
	Forget(title string)
}

// Syncer deletes playlists locally and remotely.
type Syncer struct {
	store  Store
	owners Owners
}

// NewSyncer creates a new syncer. owners may be nil, in which case deletions
// are local only.
func NewSyncer(store Store, owners Owners) *Syncer {
	return &Syncer{store: store, owners: owners}
}

// Delete removes title from the store, then from its source when the source
// supports removal. When title was the current playlist, fallback becomes
// current. A remote failure is returned but the local removal stands.
func (s *Syncer) Delete(ctx context.Context, title, fallback string) error {
	if fallback != "" && title == fallback {
		return errors.Wrapf(ErrProtectedPlaylist, "%q", title)
	}

	before := s.store.Snapshot()
	if !before.HasPlaylist(title) {
		return errors.Wrapf(ErrPlaylistNotFound, "%q", title)
	}

	s.store.RemovePlaylist(title)
	if before.CurrentPlaylist == title && fallback != "" {
		s.store.SetCurrentPlaylist(fallback)
	}
	zlog.Info().Msgf("playlist deleted: title=%s was_current=%t", title, before.CurrentPlaylist == title)

	if s.owners == nil {
		return nil
	}
	src, ok := s.owners.Owner(title)
	if !ok {
		return nil
	}
	s.owners.Forget(title)

	remover, ok := src.(source.Remover)
	if !ok {
		return nil
	}
	if err := remover.Remove(ctx, title); err != nil {
		zlog.Error().Err(err).Msgf("failed to delete playlist from source: title=%s source=%s", title, src.Name())
		return errors.Wrapf(err, "failed to delete %q from %s", title, src.Name())
	}
	zlog.Info().Msgf("playlist deleted from source: title=%s source=%s", title, src.Name())
	return nil
}
