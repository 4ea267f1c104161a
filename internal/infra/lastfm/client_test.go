package lastfm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topTracksBody = `{
	"tracks": {
		"track": [
			{
				"name": "Track 1",
				"url": "url1",
				"artist": {"name": "Artist 1", "mbid": "ambid1", "url": "aurl1"},
				"image": [
					{"#text": "https://img/small.png", "size": "small"},
					{"#text": "https://img/large.png", "size": "extralarge"}
				]
			},
			{
				"name": "Track 2",
				"url": "url2",
				"artist": {"name": "Artist 2", "mbid": "ambid2", "url": "aurl2"}
			}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{APIKey: "test_key"})
	require.NoError(t, err)
	client.baseURL = server.URL + "/"
	return client
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetTopTracks(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "tag.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "rock", r.URL.Query().Get("tag"))
		assert.Equal(t, "test_key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, topTracksBody)
	})

	ctx := context.Background()
	tracks, err := client.GetTopTracks(ctx, "rock", 5)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Track 1", tracks[0].Name)
	assert.Equal(t, "Artist 1", tracks[0].Artist)
	assert.Equal(t, "https://img/large.png", tracks[0].ImageURL)
	assert.Empty(t, tracks[1].ImageURL)

	// Second call is served from the cache.
	tracksCached, err := client.GetTopTracks(ctx, "rock", 5)
	require.NoError(t, err)
	assert.Equal(t, tracks, tracksCached)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetTopTracks_CacheExpires(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, topTracksBody)
	})

	now := time.Now()
	client.now = func() time.Time { return now }

	_, err := client.GetTopTracks(context.Background(), "rock", 5)
	require.NoError(t, err)

	now = now.Add(defaultCacheTTL + time.Second)
	_, err = client.GetTopTracks(context.Background(), "rock", 5)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestGetTopTracks_EmptyTag(t *testing.T) {
	client, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = client.GetTopTracks(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestGetChartTopTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "chart.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"), "limit is capped")
		fmt.Fprint(w, topTracksBody)
	})

	tracks, err := client.GetChartTopTracks(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": 6, "message": "Tag not found"}`)
	})

	_, err := client.GetTopTracks(context.Background(), "nonexistent", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last.fm API error 6: Tag not found")
}

func TestHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetTopTracks(context.Background(), "rock", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
