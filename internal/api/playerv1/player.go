// Package playerv1 defines the messages and procedure names of the player
// service. Messages are plain structs carried as JSON.
package playerv1

// ServiceName is the fully-qualified name of the player service.
const ServiceName = "moodbox.player.v1.PlayerService"

// Procedure paths.
const (
	GetStateProcedure        = "/" + ServiceName + "/GetState"
	ListPlaylistsProcedure   = "/" + ServiceName + "/ListPlaylists"
	GetPlaylistProcedure     = "/" + ServiceName + "/GetPlaylist"
	RefreshProcedure         = "/" + ServiceName + "/Refresh"
	SelectPlaylistProcedure  = "/" + ServiceName + "/SelectPlaylist"
	PlayTrackProcedure       = "/" + ServiceName + "/PlayTrack"
	NextProcedure            = "/" + ServiceName + "/Next"
	PrevProcedure            = "/" + ServiceName + "/Prev"
	ShuffleProcedure         = "/" + ServiceName + "/Shuffle"
	SortProcedure            = "/" + ServiceName + "/Sort"
	DeletePlaylistProcedure  = "/" + ServiceName + "/DeletePlaylist"
	ReloadPlaylistsProcedure = "/" + ServiceName + "/ReloadPlaylists"
	WatchStateProcedure      = "/" + ServiceName + "/WatchState"
)

// MusicValue carries the mood attributes of a track.
type MusicValue struct {
	Emotion float64 `json:"emotion"`
	Energy  float64 `json:"energy"`
}

// TrackInfo describes a track.
type TrackInfo struct {
	Author       string     `json:"author"`
	Title        string     `json:"title"`
	Thumbnail    string     `json:"thumbnail"`
	ThumbnailHue float64    `json:"thumbnailHue"`
	MusicValue   MusicValue `json:"musicValue"`
}

// PlaylistInfo describes a playlist. Tracks are only filled by GetPlaylist.
type PlaylistInfo struct {
	Title      string       `json:"title"`
	TrackCount int          `json:"trackCount"`
	Tracks     []*TrackInfo `json:"tracks,omitempty"`
}

// PlayerState is the client view of the playback store.
type PlayerState struct {
	Version         uint64     `json:"version"`
	RefreshTrigger  bool       `json:"refreshTrigger"`
	CurrentPlaylist string     `json:"currentPlaylist"`
	CurrentMusic    int        `json:"currentMusic"`
	CurrentTrack    *TrackInfo `json:"currentTrack,omitempty"` // nil when the cursor points at nothing
	Playlists       []string   `json:"playlists"`
}

// StateResponse is returned by every state-changing procedure.
type StateResponse struct {
	State *PlayerState `json:"state"`
}

type GetStateRequest struct{}

type ListPlaylistsRequest struct{}

type ListPlaylistsResponse struct {
	Playlists []*PlaylistInfo `json:"playlists"`
}

type GetPlaylistRequest struct {
	Title string `json:"title"`
}

type GetPlaylistResponse struct {
	Playlist *PlaylistInfo `json:"playlist"`
}

type RefreshRequest struct{}

type SelectPlaylistRequest struct {
	Title string `json:"title"`
}

type PlayTrackRequest struct {
	Index int `json:"index"`
}

type NextRequest struct{}

type PrevRequest struct{}

type ShuffleRequest struct{}

type SortRequest struct {
	Field string `json:"field"` // "emotion" or "energy"
	Order string `json:"order"` // "asc" or "desc"
}

type DeletePlaylistRequest struct {
	Title string `json:"title"`
}

type ReloadPlaylistsRequest struct{}

type ReloadPlaylistsResponse struct {
	Loaded []string `json:"loaded"`
	Failed []string `json:"failed,omitempty"` // names of sources that failed
}

type WatchStateRequest struct{}

// StateNotification is streamed to WatchState subscribers.
type StateNotification struct {
	SequenceNo uint64       `json:"sequenceNo"`
	Initial    bool         `json:"initial"`
	State      *PlayerState `json:"state"`
}
