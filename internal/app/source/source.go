// Package source provides the playlist sources that feed the playback store.
package source

import (
	"context"

	"github.com/osa030/moodbox/internal/domain/playlist"
)

// Source produces playlists.
type Source interface {
	// Name returns the source name (used in logs and reload results).
	Name() string
	// Load fetches every playlist the source provides.
	Load(ctx context.Context) ([]playlist.Playlist, error)
}

// Remover is implemented by sources that can delete a playlist from their
// backing store.
type Remover interface {
	Remove(ctx context.Context, title string) error
}
