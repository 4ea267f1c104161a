package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/moodbox/internal/app/store"
	"github.com/osa030/moodbox/internal/domain/playlist"
	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/config"
	"github.com/osa030/moodbox/internal/infra/lastfm"
)

const testCatalog = `playlists:
  - title: Pop
    tracks:
      - author: Alice
        title: Song A
        music_value:
          emotion: 80
          energy: 20
      - author: Bob
        title: Song B
        thumbnail: https://img.example.com/b.jpg
        thumbnail_colorcode: ff0000
  - title: Rock
    tracks:
      - author: Carol
        title: Song C
  - title: ""
    tracks: []
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_Load(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	src, err := NewFileSource(map[string]any{"path": path})
	require.NoError(t, err)

	playlists, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 2)

	assert.Equal(t, "Pop", playlists[0].Title)
	require.Len(t, playlists[0].Tracks, 2)
	assert.Equal(t, track.Track{
		Author:     "Alice",
		Title:      "Song A",
		MusicValue: track.MusicValue{Emotion: 80, Energy: 20},
	}, playlists[0].Tracks[0])
	assert.Equal(t, "https://img.example.com/b.jpg", playlists[0].Tracks[1].Thumbnail)
	assert.Equal(t, "ff0000", playlists[0].Tracks[1].ThumbnailColorcode)
	assert.Equal(t, "Rock", playlists[1].Title)
}

func TestFileSource_LoadErrors(t *testing.T) {
	_, err := NewFileSource(map[string]any{})
	assert.Error(t, err, "path is required")

	src, err := NewFileSource(map[string]any{"path": filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.Error(t, err)

	src, err = NewFileSource(map[string]any{"path": writeCatalog(t, "playlists: [")})
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_Remove(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	src, err := NewFileSource(map[string]any{"path": path, "watch": true})
	require.NoError(t, err)
	assert.True(t, src.Watched())

	require.NoError(t, src.Remove(context.Background(), "Pop"))

	playlists, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, "Rock", playlists[0].Title)

	err = src.Remove(context.Background(), "Pop")
	assert.True(t, errors.Is(err, ErrPlaylistNotFound))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

type fakeSpotify struct {
	playlists  map[string]*playlist.Playlist
	unfollowed []string
	err        error
}

func (f *fakeSpotify) GetPlaylist(_ context.Context, url string) (*playlist.Playlist, error) {
	p, ok := f.playlists[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (f *fakeSpotify) UnfollowPlaylist(_ context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.unfollowed = append(f.unfollowed, url)
	return nil
}

func TestSpotifySource(t *testing.T) {
	client := &fakeSpotify{playlists: map[string]*playlist.Playlist{
		"https://open.spotify.com/playlist/a": {Title: "Chill", Tracks: []track.Track{{Author: "A", Title: "1"}}},
		"https://open.spotify.com/playlist/b": {Title: "Work", Tracks: []track.Track{{Author: "B", Title: "2"}}},
	}}

	src, err := NewSpotifySource(client, map[string]any{
		"playlists": []map[string]any{
			{"url": "https://open.spotify.com/playlist/a"},
			{"url": "https://open.spotify.com/playlist/b", "title": "Focus"},
			{"url": "https://open.spotify.com/playlist/missing"},
		},
	})
	require.NoError(t, err)

	playlists, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	assert.Equal(t, "Chill", playlists[0].Title)
	assert.Equal(t, "Focus", playlists[1].Title)

	playlists[0].Tracks[0].Title = "changed"
	assert.Equal(t, "1", client.playlists["https://open.spotify.com/playlist/a"].Tracks[0].Title,
		"loaded playlists do not share track storage with the client")

	require.NoError(t, src.Remove(context.Background(), "Focus"))
	assert.Equal(t, []string{"https://open.spotify.com/playlist/b"}, client.unfollowed)

	err = src.Remove(context.Background(), "Unknown")
	assert.True(t, errors.Is(err, ErrPlaylistNotFound))

	client.err = errors.New("forbidden")
	assert.Error(t, src.Remove(context.Background(), "Chill"))
}

func TestSpotifySource_AllFail(t *testing.T) {
	src, err := NewSpotifySource(&fakeSpotify{}, map[string]any{
		"playlists": []map[string]any{{"url": "https://open.spotify.com/playlist/x"}},
	})
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	assert.Error(t, err)
}

func TestNewSpotifySource_Invalid(t *testing.T) {
	_, err := NewSpotifySource(nil, map[string]any{})
	assert.Error(t, err)

	_, err = NewSpotifySource(&fakeSpotify{}, map[string]any{})
	assert.Error(t, err, "at least one playlist is required")
}

type fakeLastFm struct {
	tags  map[string][]lastfm.TopTrack
	chart []lastfm.TopTrack
	limit int
}

func (f *fakeLastFm) GetTopTracks(_ context.Context, tag string, limit int) ([]lastfm.TopTrack, error) {
	f.limit = limit
	tops, ok := f.tags[tag]
	if !ok {
		return nil, errors.New("unknown tag")
	}
	return tops, nil
}

func (f *fakeLastFm) GetChartTopTracks(_ context.Context, limit int) ([]lastfm.TopTrack, error) {
	return f.chart, nil
}

func TestLastFmSource(t *testing.T) {
	client := &fakeLastFm{
		tags: map[string][]lastfm.TopTrack{
			"jazz": {{Name: "So What", Artist: "Miles Davis", ImageURL: "https://img.example.com/sw.png"}},
		},
		chart: []lastfm.TopTrack{{Name: "Hit", Artist: "Star"}},
	}

	src, err := NewLastFmSource(client, map[string]any{
		"tags":  []string{"jazz", "unknown"},
		"chart": true,
	})
	require.NoError(t, err)

	playlists, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 2)

	assert.Equal(t, 50, client.limit)
	assert.Equal(t, "jazz", playlists[0].Title)
	assert.Equal(t, track.Track{Author: "Miles Davis", Title: "So What", Thumbnail: "https://img.example.com/sw.png"}, playlists[0].Tracks[0])
	assert.Equal(t, "Top Chart", playlists[1].Title)
	assert.Equal(t, "Star", playlists[1].Tracks[0].Author)
}

func TestNewLastFmSource_Invalid(t *testing.T) {
	_, err := NewLastFmSource(&fakeLastFm{}, map[string]any{})
	assert.Error(t, err, "tags or chart is required")

	_, err = NewLastFmSource(&fakeLastFm{}, map[string]any{"tags": []string{"rock"}, "limit": 500})
	assert.Error(t, err)
}

func TestNewSourcesFromConfig(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	cfg := &config.Config{Sources: []config.SourceConfig{
		{Type: config.SourceTypeFile, Settings: map[string]any{"path": path, "watch": true}},
		{Type: config.SourceTypeLastFm, Settings: map[string]any{"tags": []string{"rock"}}},
	}}

	sources, err := NewSourcesFromConfig(cfg, Deps{LastFm: &fakeLastFm{}})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "file:"+path, sources[0].Name())
	assert.Equal(t, "lastfm", sources[1].Name())
	assert.Len(t, FileSources(sources), 1)

	_, err = NewSourcesFromConfig(&config.Config{}, Deps{})
	assert.Error(t, err)

	cfg.Sources = append(cfg.Sources, config.SourceConfig{Type: config.SourceTypeSpotify})
	_, err = NewSourcesFromConfig(cfg, Deps{})
	assert.Error(t, err, "spotify client missing")

	cfg.Sources = []config.SourceConfig{{Type: "ftp"}}
	_, err = NewSourcesFromConfig(cfg, Deps{})
	assert.Error(t, err)
}

type stubSource struct {
	mu        sync.Mutex
	name      string
	playlists []playlist.Playlist
	err       error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Load(context.Context) ([]playlist.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlists, s.err
}

func (s *stubSource) set(playlists ...playlist.Playlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists = playlists
}

func TestLoader_LoadAll(t *testing.T) {
	st := store.New()
	a := &stubSource{name: "a"}
	a.set(playlist.Playlist{Title: "Pop", Tracks: []track.Track{{Author: "A", Title: "1"}}})
	b := &stubSource{name: "b", err: errors.New("offline")}

	loader := NewLoader(st, []Source{a, b})
	result := loader.LoadAll(context.Background())

	assert.Equal(t, []string{"Pop"}, result.Loaded)
	assert.Equal(t, []string{"b"}, result.Failed)
	assert.True(t, st.Snapshot().HasPlaylist("Pop"))

	owner, ok := loader.Owner("Pop")
	require.True(t, ok)
	assert.Equal(t, "a", owner.Name())

	_, ok = loader.Owner("Rock")
	assert.False(t, ok)
}

func TestLoader_RemovesStalePlaylists(t *testing.T) {
	st := store.New()
	a := &stubSource{name: "a"}
	a.set(playlist.Playlist{Title: "Pop"}, playlist.Playlist{Title: "Rock"})
	b := &stubSource{name: "b"}
	b.set(playlist.Playlist{Title: "Jazz"})

	loader := NewLoader(st, []Source{a, b})
	loader.LoadAll(context.Background())
	assert.Equal(t, []string{"Jazz", "Pop", "Rock"}, st.Snapshot().Titles())

	a.set(playlist.Playlist{Title: "Pop"})
	_, err := loader.Load(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, []string{"Jazz", "Pop"}, st.Snapshot().Titles())
	_, ok := loader.Owner("Rock")
	assert.False(t, ok)
}

func TestLoader_StaleTitleTakenOverIsKept(t *testing.T) {
	st := store.New()
	a := &stubSource{name: "a"}
	a.set(playlist.Playlist{Title: "Mix"})
	b := &stubSource{name: "b"}
	b.set(playlist.Playlist{Title: "Mix"})

	loader := NewLoader(st, []Source{a, b})
	loader.LoadAll(context.Background())

	a.set()
	_, err := loader.Load(context.Background(), a)
	require.NoError(t, err)

	assert.True(t, st.Snapshot().HasPlaylist("Mix"))
	owner, ok := loader.Owner("Mix")
	require.True(t, ok)
	assert.Equal(t, "b", owner.Name())
}

func TestLoader_Forget(t *testing.T) {
	st := store.New()
	a := &stubSource{name: "a"}
	a.set(playlist.Playlist{Title: "Pop"}, playlist.Playlist{Title: "Rock"})

	loader := NewLoader(st, []Source{a})
	loader.LoadAll(context.Background())

	st.RemovePlaylist("Rock")
	loader.Forget("Rock")
	loader.Forget("Unknown")

	_, ok := loader.Owner("Rock")
	assert.False(t, ok)

	a.set(playlist.Playlist{Title: "Pop"})
	_, err := loader.Load(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pop"}, st.Snapshot().Titles())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	src, err := NewFileSource(map[string]any{"path": path, "watch": true})
	require.NoError(t, err)

	st := store.New()
	loader := NewLoader(st, []Source{src})
	loader.LoadAll(context.Background())
	require.Equal(t, []string{"Pop", "Rock"}, st.Snapshot().Titles())

	w, err := NewWatcher(loader, []*FileSource{src})
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	updated := `playlists:
  - title: Rock
    tracks:
      - author: Carol
        title: Song C
  - title: Ambient
    tracks: []
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		titles := st.Snapshot().Titles()
		return len(titles) == 2 && titles[0] == "Ambient" && titles[1] == "Rock"
	}, 2*time.Second, 10*time.Millisecond)
}
