package store

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/moodbox/internal/domain/playlist"
	"github.com/osa030/moodbox/internal/domain/track"
)

func mood(title string, emotion, energy float64) track.Track {
	return track.Track{
		Author:     "author-" + title,
		Title:      title,
		MusicValue: track.MusicValue{Emotion: emotion, Energy: energy},
	}
}

func titlesOf(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func newSeeded(seed int64) *Store {
	return New(WithRand(rand.New(rand.NewSource(seed))))
}

func popStore(t *testing.T) *Store {
	t.Helper()
	s := newSeeded(1)
	s.SetPlaylist("Pop", []track.Track{mood("A", 3, 1), mood("B", 1, 3), mood("C", 2, 2)})
	s.SetCurrentPlaylist("Pop")
	return s
}

func TestNew_EmptyState(t *testing.T) {
	st := New().Snapshot()
	assert.Equal(t, "", st.CurrentPlaylist)
	assert.Equal(t, 0, st.CurrentMusic)
	assert.False(t, st.RefreshTrigger)
	assert.Equal(t, 0, st.PlaylistCount())
}

func TestRefresh(t *testing.T) {
	s := New()
	s.Refresh()
	assert.True(t, s.Snapshot().RefreshTrigger)
	s.Refresh()
	assert.False(t, s.Snapshot().RefreshTrigger)
}

func TestSetPlaylist_DerivesFields(t *testing.T) {
	s := New(WithThumbnailer(track.NewThumbnailer("https://thumbs.test/api")))
	s.SetPlaylist("Mix", []track.Track{
		{Author: "Ann", Title: "One"},
		{Author: "Bob", Title: "Two", Thumbnail: "https://img/two.webp", ThumbnailColorcode: "00ff00"},
	})

	tracks, ok := s.Snapshot().Playlist("Mix")
	require.True(t, ok)
	require.Len(t, tracks, 2)

	assert.Equal(t, track.ThumbnailURL("https://thumbs.test/api", "Ann", "One"), tracks[0].Thumbnail)
	assert.InDelta(t, 0, tracks[0].ThumbnailHue, 0.001)
	assert.Equal(t, "https://img/two.webp", tracks[1].Thumbnail)
	assert.InDelta(t, 120, tracks[1].ThumbnailHue, 0.001)
}

func TestSetPlaylist_DoesNotMutateInput(t *testing.T) {
	s := New()
	input := []track.Track{{Author: "Ann", Title: "One"}}
	s.SetPlaylist("Mix", input)

	assert.Empty(t, input[0].Thumbnail)
	assert.Zero(t, input[0].ThumbnailHue)
}

func TestSetPlaylist_IdempotentDerivation(t *testing.T) {
	s := New()
	input := []track.Track{{Author: "Ann", Title: "One & Two"}}

	s.SetPlaylist("Mix", input)
	first, _ := s.Snapshot().Playlist("Mix")
	s.SetPlaylist("Mix", input)
	second, _ := s.Snapshot().Playlist("Mix")

	assert.Equal(t, first, second)
}

func TestSetPlaylist_ReplacesExisting(t *testing.T) {
	s := New()
	s.SetPlaylist("Mix", []track.Track{mood("A", 0, 0)})
	s.SetPlaylist("Mix", []track.Track{mood("B", 0, 0), mood("C", 0, 0)})

	st := s.Snapshot()
	assert.Equal(t, 1, st.PlaylistCount())
	tracks, _ := st.Playlist("Mix")
	assert.Equal(t, []string{"B", "C"}, titlesOf(tracks))
}

func TestSetPlaylist_UsesInjectedDerivation(t *testing.T) {
	s := New(
		WithThumbnailer(func(author, title string) string { return author + "/" + title }),
		WithHueFunc(func(code string) float64 { return float64(len(code)) }),
	)
	s.SetPlaylist("Mix", []track.Track{{Author: "a", Title: "b"}})

	tracks, _ := s.Snapshot().Playlist("Mix")
	assert.Equal(t, "a/b", tracks[0].Thumbnail)
	assert.Equal(t, float64(len(track.DefaultColorcode)), tracks[0].ThumbnailHue)
}

func TestRemovePlaylist(t *testing.T) {
	s := popStore(t)
	s.SetCurrentMusic(2)

	s.RemovePlaylist("Pop")

	st := s.Snapshot()
	assert.Equal(t, 0, st.PlaylistCount())
	assert.Equal(t, "Pop", st.CurrentPlaylist, "selection is left to the caller")
	assert.Equal(t, 2, st.CurrentMusic)
	_, ok := st.CurrentTrack()
	assert.False(t, ok)
}

func TestRemovePlaylist_Missing(t *testing.T) {
	s := popStore(t)
	before := s.Snapshot()

	s.RemovePlaylist("Missing")

	after := s.Snapshot()
	assert.Equal(t, before.PlaylistCount(), after.PlaylistCount())
	assert.Equal(t, before.Version, after.Version, "a no-op must not commit")
}

func TestSetCurrentPlaylist(t *testing.T) {
	s := popStore(t)
	s.SetCurrentMusic(2)

	s.SetCurrentPlaylist("Unknown")

	st := s.Snapshot()
	assert.Equal(t, "Unknown", st.CurrentPlaylist)
	assert.Equal(t, 0, st.CurrentMusic)
	_, ok := st.CurrentTrack()
	assert.False(t, ok)
}

func TestSetCurrentMusic_Verbatim(t *testing.T) {
	s := popStore(t)
	for _, i := range []int{0, 1, 2, 3, 99, -1} {
		s.SetCurrentMusic(i)
		assert.Equal(t, i, s.Snapshot().CurrentMusic)
	}
}

func TestNextMusic(t *testing.T) {
	s := popStore(t)
	s.SetCurrentMusic(2)

	s.NextMusic()
	assert.Equal(t, 0, s.Snapshot().CurrentMusic)

	s.NextMusic()
	assert.Equal(t, 1, s.Snapshot().CurrentMusic)
}

func TestPrevMusic(t *testing.T) {
	s := popStore(t)

	s.PrevMusic()
	assert.Equal(t, 2, s.Snapshot().CurrentMusic)

	s.PrevMusic()
	assert.Equal(t, 1, s.Snapshot().CurrentMusic)
}

func TestNextPrev_Cyclic(t *testing.T) {
	for length := 1; length <= 6; length++ {
		tracks := make([]track.Track, length)
		for i := range tracks {
			tracks[i] = mood(string(rune('A'+i)), 0, 0)
		}

		for start := 0; start < length; start++ {
			s := New()
			s.SetPlaylist("L", tracks)
			s.SetCurrentPlaylist("L")
			s.SetCurrentMusic(start)

			for i := 0; i < length; i++ {
				s.NextMusic()
			}
			assert.Equal(t, start, s.Snapshot().CurrentMusic, "next x%d from %d", length, start)

			for i := 0; i < length; i++ {
				s.PrevMusic()
			}
			assert.Equal(t, start, s.Snapshot().CurrentMusic, "prev x%d from %d", length, start)
		}
	}
}

func TestNextPrev_NoPlaylist(t *testing.T) {
	s := New()
	s.SetCurrentMusic(5)

	s.NextMusic()
	assert.Equal(t, 5, s.Snapshot().CurrentMusic)
	s.PrevMusic()
	assert.Equal(t, 5, s.Snapshot().CurrentMusic)

	s.SetPlaylist("Empty", nil)
	s.SetCurrentPlaylist("Empty")
	s.NextMusic()
	s.PrevMusic()
	assert.Equal(t, 0, s.Snapshot().CurrentMusic)
}

func TestShuffleCurrentPlaylist(t *testing.T) {
	s := popStore(t)
	s.SetCurrentMusic(2)
	before, _ := s.Snapshot().Playlist("Pop")

	s.ShuffleCurrentPlaylist()

	st := s.Snapshot()
	after, _ := st.Playlist("Pop")
	assert.Equal(t, 0, st.CurrentMusic)
	assert.Len(t, after, len(before))
	assert.ElementsMatch(t, before, after)
}

func TestShuffleCurrentPlaylist_Deterministic(t *testing.T) {
	tracks := []track.Track{mood("A", 0, 0), mood("B", 0, 0), mood("C", 0, 0), mood("D", 0, 0), mood("E", 0, 0)}

	run := func() []string {
		s := newSeeded(7)
		s.SetPlaylist("L", tracks)
		s.SetCurrentPlaylist("L")
		s.ShuffleCurrentPlaylist()
		got, _ := s.Snapshot().Playlist("L")
		return titlesOf(got)
	}

	expected := titlesOf(playlist.Shuffled(tracks, rand.New(rand.NewSource(7))))
	assert.Equal(t, expected, run())
	assert.Equal(t, run(), run())
}

func TestShuffleCurrentPlaylist_NoSelection(t *testing.T) {
	s := newSeeded(1)
	s.SetPlaylist("Pop", []track.Track{mood("A", 0, 0), mood("B", 0, 0)})
	s.SetCurrentMusic(1)
	version := s.Snapshot().Version

	s.ShuffleCurrentPlaylist()
	assert.Equal(t, version, s.Snapshot().Version)
	assert.Equal(t, 1, s.Snapshot().CurrentMusic)

	s.SetCurrentPlaylist("Missing")
	s.SetCurrentMusic(1)
	s.ShuffleCurrentPlaylist()
	assert.Equal(t, 1, s.Snapshot().CurrentMusic)
}

func TestSortCurrentPlaylist(t *testing.T) {
	tests := []struct {
		name     string
		field    playlist.SortField
		order    playlist.SortOrder
		expected []string
	}{
		{name: "emotion asc", field: playlist.SortByEmotion, order: playlist.Ascending, expected: []string{"B", "C", "A"}},
		{name: "emotion desc", field: playlist.SortByEmotion, order: playlist.Descending, expected: []string{"A", "C", "B"}},
		{name: "energy asc", field: playlist.SortByEnergy, order: playlist.Ascending, expected: []string{"A", "C", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := popStore(t)
			s.SetCurrentMusic(1)

			s.SortCurrentPlaylist(tt.field, tt.order)

			st := s.Snapshot()
			got, _ := st.Playlist("Pop")
			assert.Equal(t, tt.expected, titlesOf(got))
			assert.Equal(t, 0, st.CurrentMusic)
		})
	}
}

func TestSortCurrentPlaylist_InvalidArgumentsIgnored(t *testing.T) {
	s := popStore(t)
	s.SetCurrentMusic(1)
	version := s.Snapshot().Version

	s.SortCurrentPlaylist("tempo", playlist.Ascending)
	s.SortCurrentPlaylist(playlist.SortByEnergy, "sideways")

	assert.Equal(t, version, s.Snapshot().Version)
	assert.Equal(t, 1, s.Snapshot().CurrentMusic)
}

func TestSnapshot_CopyOnWrite(t *testing.T) {
	s := popStore(t)
	old := s.Snapshot()

	got, _ := old.Playlist("Pop")
	got[0].Title = "mutated"
	all := old.Playlists()
	all["Pop"][1].Title = "mutated"
	delete(all, "Pop")

	fresh, _ := s.Snapshot().Playlist("Pop")
	assert.Equal(t, []string{"A", "B", "C"}, titlesOf(fresh))

	s.SortCurrentPlaylist(playlist.SortByEmotion, playlist.Ascending)

	stale, _ := old.Playlist("Pop")
	assert.Equal(t, []string{"A", "B", "C"}, titlesOf(stale), "older snapshots must not observe new mutations")
	assert.Greater(t, s.Snapshot().Version, old.Version)
}

func TestState_CurrentTrack(t *testing.T) {
	s := popStore(t)
	s.SetCurrentMusic(1)

	cur, ok := s.Snapshot().CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, "B", cur.Title)

	s.SetCurrentMusic(3)
	_, ok = s.Snapshot().CurrentTrack()
	assert.False(t, ok)
}

func TestState_Titles(t *testing.T) {
	s := New()
	s.SetPlaylist("b", nil)
	s.SetPlaylist("a", nil)
	s.SetPlaylist("c", nil)

	assert.Equal(t, []string{"a", "b", "c"}, s.Snapshot().Titles())
}

func TestSubscribe(t *testing.T) {
	s := popStore(t)

	var seen []State
	unsubscribe := s.Subscribe(func(st State) {
		seen = append(seen, st)
	})

	s.NextMusic()
	s.RemovePlaylist("Missing") // no-op, no notification
	s.Refresh()

	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].CurrentMusic)
	assert.True(t, seen[1].RefreshTrigger)
	assert.Less(t, seen[0].Version, seen[1].Version)

	unsubscribe()
	s.Refresh()
	assert.Len(t, seen, 2)
}

func TestSubscribe_ListenerMayReadStore(t *testing.T) {
	s := popStore(t)

	var observed int
	s.Subscribe(func(State) {
		observed = s.Snapshot().CurrentMusic
	})

	s.SetCurrentMusic(2)
	assert.Equal(t, 2, observed)
}

func TestConcurrentActions_ListenerReadsStore(t *testing.T) {
	s := popStore(t)

	var mu sync.Mutex
	var reads []uint64
	s.Subscribe(func(st State) {
		time.Sleep(time.Millisecond)
		snap := s.Snapshot()
		mu.Lock()
		reads = append(reads, snap.Version)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					s.NextMusic()
				}
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent actions with a store-reading listener did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reads, 160)
	for i := 1; i < len(reads); i++ {
		assert.LessOrEqual(t, reads[i-1], reads[i], "listeners see commits in order")
	}
}

func TestConcurrentActions_Ordered(t *testing.T) {
	s := popStore(t)

	var mu sync.Mutex
	var versions []uint64
	s.Subscribe(func(st State) {
		mu.Lock()
		versions = append(versions, st.Version)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NextMusic()
			s.ShuffleCurrentPlaylist()
		}()
	}
	wg.Wait()

	require.Len(t, versions, 100)
	for i := 1; i < len(versions); i++ {
		assert.Equal(t, versions[i-1]+1, versions[i])
	}
}
