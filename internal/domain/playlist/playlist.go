// Package playlist provides the Playlist domain entity and the ordering
// operations applied to track sequences.
package playlist

import (
	"cmp"
	"math/rand"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/osa030/moodbox/internal/domain/track"
)

// Playlist represents a named, ordered sequence of tracks.
type Playlist struct {
	Title  string        // Unique playlist title
	Tracks []track.Track // Tracks in playback order
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}

// Clone returns a copy that shares no track storage with p.
func (p *Playlist) Clone() Playlist {
	return Playlist{
		Title:  p.Title,
		Tracks: slices.Clone(p.Tracks),
	}
}

// SortField selects the mood attribute used for sorting.
type SortField string

const (
	SortByEmotion SortField = "emotion"
	SortByEnergy  SortField = "energy"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	return f == SortByEmotion || f == SortByEnergy
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Valid reports whether o is a known sort order.
func (o SortOrder) Valid() bool {
	return o == Ascending || o == Descending
}

var (
	// ErrInvalidSortField is returned when a sort field cannot be parsed.
	ErrInvalidSortField = errors.New("invalid sort field")
	// ErrInvalidSortOrder is returned when a sort order cannot be parsed.
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

// ParseSortField parses "emotion" or "energy".
func ParseSortField(s string) (SortField, error) {
	f := SortField(s)
	if !f.Valid() {
		return "", errors.Wrapf(ErrInvalidSortField, "%q", s)
	}
	return f, nil
}

// ParseSortOrder parses "asc" or "desc".
func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(s)
	if !o.Valid() {
		return "", errors.Wrapf(ErrInvalidSortOrder, "%q", s)
	}
	return o, nil
}

// Sorted returns a copy of tracks stably sorted by the given mood field.
// Tracks with equal values keep their relative order.
func Sorted(tracks []track.Track, field SortField, order SortOrder) []track.Track {
	sorted := slices.Clone(tracks)
	slices.SortStableFunc(sorted, func(a, b track.Track) int {
		c := cmp.Compare(a.MusicValue.Value(string(field)), b.MusicValue.Value(string(field)))
		if order == Descending {
			return -c
		}
		return c
	})
	return sorted
}

// Shuffled returns a Fisher-Yates permutation of a copy of tracks drawn from rng.
func Shuffled(tracks []track.Track, rng *rand.Rand) []track.Track {
	shuffled := slices.Clone(tracks)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// Step moves index one position forward or backward within a sequence of the
// given length, wrapping at both ends. Indices beyond the ends only wrap once
// they cross them: stepping forward from an index >= length yields 0, and
// stepping backward yields index-1 unless that is negative.
func Step(index, length int, forward bool) int {
	if forward {
		index++
		if index >= length {
			return 0
		}
		return index
	}

	index--
	if index < 0 {
		return length - 1
	}
	return index
}
