// Package store provides the playback store: the single source of truth for
// playlists and the playback cursor.
//
// Every action is synchronous and total. Conditions such as a missing playlist
// degrade to no-ops instead of errors. Mutations never modify existing
// containers; they install new ones and bump State.Version.
package store

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"maps"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/osa030/moodbox/internal/domain/playlist"
	"github.com/osa030/moodbox/internal/domain/track"
)

// Listener is called with the new state after each committed change.
// Listeners must not call store actions synchronously.
type Listener func(State)

type subscriber struct {
	id int
	fn Listener
}

// Store holds playlists and the playback cursor.
type Store struct {
	mu sync.Mutex
	// notifyMu serializes commits with their notifications. It is always
	// taken before mu.
	notifyMu sync.Mutex

	state       State
	rng         *rand.Rand
	thumbnail   track.Thumbnailer
	hue         track.HueFunc
	subscribers []subscriber
	nextID      int
}

// Option configures a Store.
type Option func(*Store)

// WithRand sets the random source used by ShuffleCurrentPlaylist.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) {
		s.rng = rng
	}
}

// WithThumbnailer sets the thumbnail URL builder used by SetPlaylist.
func WithThumbnailer(fn track.Thumbnailer) Option {
	return func(s *Store) {
		s.thumbnail = fn
	}
}

// WithHueFunc sets the hue extractor used by SetPlaylist.
func WithHueFunc(fn track.HueFunc) Option {
	return func(s *Store) {
		s.hue = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		state: State{
			playlists: make(map[string][]track.Track),
		},
		thumbnail: track.NewThumbnailer(""),
		hue:       track.HexToHue,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(randSeed()))
	}
	return s
}

func randSeed() (seed int64) {
	if err := binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed); err == nil {
		return seed
	}
	return time.Now().UnixNano()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called after every change and returns a
// function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscriber) bool {
			return sub.id == id
		})
	}
}

// update applies fn to a copy of the state. When fn reports a change, the
// copy is committed and subscribers are notified. notifyMu is held across the
// commit and the notification so listeners observe changes in commit order;
// mu is released before listeners run so they may read the store.
func (s *Store) update(fn func(next *State) bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := s.state
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	next.Version++
	s.state = next
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
}

// Refresh flips RefreshTrigger.
func (s *Store) Refresh() {
	s.update(func(next *State) bool {
		next.RefreshTrigger = !next.RefreshTrigger
		return true
	})
}

// SetPlaylist inserts or replaces the playlist at title. Missing thumbnails and
// hues are derived; tracks is left untouched.
func (s *Store) SetPlaylist(title string, tracks []track.Track) {
	derived := make([]track.Track, len(tracks))
	for i, t := range tracks {
		derived[i] = t.Derive(s.thumbnail, s.hue)
	}

	s.update(func(next *State) bool {
		next.playlists = maps.Clone(next.playlists)
		next.playlists[title] = derived
		return true
	})
}

// RemovePlaylist deletes the playlist at title. The selection is left as is,
// even when it names the removed playlist.
func (s *Store) RemovePlaylist(title string) {
	s.update(func(next *State) bool {
		if _, ok := next.playlists[title]; !ok {
			return false
		}
		next.playlists = maps.Clone(next.playlists)
		delete(next.playlists, title)
		return true
	})
}

// SetCurrentPlaylist selects title, whether or not it exists, and rewinds the
// cursor to 0.
func (s *Store) SetCurrentPlaylist(title string) {
	s.update(func(next *State) bool {
		next.CurrentPlaylist = title
		next.CurrentMusic = 0
		return true
	})
}

// SetCurrentMusic stores index verbatim.
func (s *Store) SetCurrentMusic(index int) {
	s.update(func(next *State) bool {
		next.CurrentMusic = index
		return true
	})
}

// NextMusic advances the cursor, wrapping to 0 past the end. It does nothing
// when the current playlist is missing or empty, so the cursor never becomes
// -1.
func (s *Store) NextMusic() {
	s.step(true)
}

// PrevMusic moves the cursor back, wrapping to the last track before 0. Like
// NextMusic it does nothing on a missing or empty playlist.
func (s *Store) PrevMusic() {
	s.step(false)
}

func (s *Store) step(forward bool) {
	s.update(func(next *State) bool {
		tracks, ok := next.playlists[next.CurrentPlaylist]
		if !ok || len(tracks) == 0 {
			return false
		}
		next.CurrentMusic = playlist.Step(next.CurrentMusic, len(tracks), forward)
		return true
	})
}

// ShuffleCurrentPlaylist replaces the current playlist with a uniformly random
// permutation and rewinds the cursor.
func (s *Store) ShuffleCurrentPlaylist() {
	s.reorderCurrent(func(tracks []track.Track) []track.Track {
		return playlist.Shuffled(tracks, s.rng)
	})
}

// SortCurrentPlaylist stably sorts the current playlist by a mood field and
// rewinds the cursor. Unknown fields or orders are ignored.
func (s *Store) SortCurrentPlaylist(field playlist.SortField, order playlist.SortOrder) {
	if !field.Valid() || !order.Valid() {
		return
	}
	s.reorderCurrent(func(tracks []track.Track) []track.Track {
		return playlist.Sorted(tracks, field, order)
	})
}

// reorderCurrent runs under s.mu, which also guards s.rng.
func (s *Store) reorderCurrent(reorder func([]track.Track) []track.Track) {
	s.update(func(next *State) bool {
		if next.CurrentPlaylist == "" {
			return false
		}
		tracks, ok := next.playlists[next.CurrentPlaylist]
		if !ok {
			return false
		}
		next.playlists = maps.Clone(next.playlists)
		next.playlists[next.CurrentPlaylist] = reorder(tracks)
		next.CurrentMusic = 0
		return true
	})
}
