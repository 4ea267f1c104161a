package store

import (
	"maps"
	"slices"

	"github.com/osa030/moodbox/internal/domain/track"
)

// State is an immutable snapshot of the store.
// Containers are never shared with callers: accessors return copies.
type State struct {
	Version         uint64 // Incremented on every committed change
	RefreshTrigger  bool   // Toggled by Refresh to force recomputation
	CurrentPlaylist string // Selected playlist title ("" = none)
	CurrentMusic    int    // Zero-based index into the selected playlist

	playlists map[string][]track.Track
}

// Titles returns the playlist titles in lexical order.
func (s State) Titles() []string {
	return slices.Sorted(maps.Keys(s.playlists))
}

// PlaylistCount returns the number of playlists.
func (s State) PlaylistCount() int {
	return len(s.playlists)
}

// HasPlaylist reports whether a playlist with the given title exists.
func (s State) HasPlaylist(title string) bool {
	_, ok := s.playlists[title]
	return ok
}

// Playlist returns a copy of the tracks stored under title.
func (s State) Playlist(title string) ([]track.Track, bool) {
	tracks, ok := s.playlists[title]
	if !ok {
		return nil, false
	}
	return slices.Clone(tracks), true
}

// Playlists returns a copy of the whole title to tracks mapping.
func (s State) Playlists() map[string][]track.Track {
	out := make(map[string][]track.Track, len(s.playlists))
	for title, tracks := range s.playlists {
		out[title] = slices.Clone(tracks)
	}
	return out
}

// CurrentTrack returns the track under the cursor. It returns false when no
// playlist is selected, the selected playlist is missing, or the index is out
// of range.
func (s State) CurrentTrack() (track.Track, bool) {
	tracks, ok := s.playlists[s.CurrentPlaylist]
	if !ok || s.CurrentMusic < 0 || s.CurrentMusic >= len(tracks) {
		return track.Track{}, false
	}
	return tracks[s.CurrentMusic], true
}
