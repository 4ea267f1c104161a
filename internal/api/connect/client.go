package connect

import (
	"context"

	"connectrpc.com/connect"

	"github.com/osa030/moodbox/internal/api/playerv1"
)

// Client is a typed PlayerService client.
type Client struct {
	getState        *connect.Client[playerv1.GetStateRequest, playerv1.StateResponse]
	listPlaylists   *connect.Client[playerv1.ListPlaylistsRequest, playerv1.ListPlaylistsResponse]
	getPlaylist     *connect.Client[playerv1.GetPlaylistRequest, playerv1.GetPlaylistResponse]
	refresh         *connect.Client[playerv1.RefreshRequest, playerv1.StateResponse]
	selectPlaylist  *connect.Client[playerv1.SelectPlaylistRequest, playerv1.StateResponse]
	playTrack       *connect.Client[playerv1.PlayTrackRequest, playerv1.StateResponse]
	next            *connect.Client[playerv1.NextRequest, playerv1.StateResponse]
	prev            *connect.Client[playerv1.PrevRequest, playerv1.StateResponse]
	shuffle         *connect.Client[playerv1.ShuffleRequest, playerv1.StateResponse]
	sort            *connect.Client[playerv1.SortRequest, playerv1.StateResponse]
	deletePlaylist  *connect.Client[playerv1.DeletePlaylistRequest, playerv1.StateResponse]
	reloadPlaylists *connect.Client[playerv1.ReloadPlaylistsRequest, playerv1.ReloadPlaylistsResponse]
	watchState      *connect.Client[playerv1.WatchStateRequest, playerv1.StateNotification]
}

// NewClient creates a PlayerService client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &Client{
		getState:        connect.NewClient[playerv1.GetStateRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.GetStateProcedure, opts...),
		listPlaylists:   connect.NewClient[playerv1.ListPlaylistsRequest, playerv1.ListPlaylistsResponse](httpClient, baseURL+playerv1.ListPlaylistsProcedure, opts...),
		getPlaylist:     connect.NewClient[playerv1.GetPlaylistRequest, playerv1.GetPlaylistResponse](httpClient, baseURL+playerv1.GetPlaylistProcedure, opts...),
		refresh:         connect.NewClient[playerv1.RefreshRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.RefreshProcedure, opts...),
		selectPlaylist:  connect.NewClient[playerv1.SelectPlaylistRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.SelectPlaylistProcedure, opts...),
		playTrack:       connect.NewClient[playerv1.PlayTrackRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.PlayTrackProcedure, opts...),
		next:            connect.NewClient[playerv1.NextRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.NextProcedure, opts...),
		prev:            connect.NewClient[playerv1.PrevRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.PrevProcedure, opts...),
		shuffle:         connect.NewClient[playerv1.ShuffleRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.ShuffleProcedure, opts...),
		sort:            connect.NewClient[playerv1.SortRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.SortProcedure, opts...),
		deletePlaylist:  connect.NewClient[playerv1.DeletePlaylistRequest, playerv1.StateResponse](httpClient, baseURL+playerv1.DeletePlaylistProcedure, opts...),
		reloadPlaylists: connect.NewClient[playerv1.ReloadPlaylistsRequest, playerv1.ReloadPlaylistsResponse](httpClient, baseURL+playerv1.ReloadPlaylistsProcedure, opts...),
		watchState:      connect.NewClient[playerv1.WatchStateRequest, playerv1.StateNotification](httpClient, baseURL+playerv1.WatchStateProcedure, opts...),
	}
}

func stateOf(resp *connect.Response[playerv1.StateResponse], err error) (*playerv1.PlayerState, error) {
	if err != nil {
		return nil, err
	}
	return resp.Msg.State, nil
}

// GetState returns the current player state.
func (c *Client) GetState(ctx context.Context) (*playerv1.PlayerState, error) {
	return stateOf(c.getState.CallUnary(ctx, connect.NewRequest(&playerv1.GetStateRequest{})))
}

// ListPlaylists returns every playlist without tracks.
func (c *Client) ListPlaylists(ctx context.Context) ([]*playerv1.PlaylistInfo, error) {
	resp, err := c.listPlaylists.CallUnary(ctx, connect.NewRequest(&playerv1.ListPlaylistsRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Playlists, nil
}

// GetPlaylist returns a playlist with its tracks.
func (c *Client) GetPlaylist(ctx context.Context, title string) (*playerv1.PlaylistInfo, error) {
	resp, err := c.getPlaylist.CallUnary(ctx, connect.NewRequest(&playerv1.GetPlaylistRequest{Title: title}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Playlist, nil
}

// Refresh flips the refresh trigger.
func (c *Client) Refresh(ctx context.Context) (*playerv1.PlayerState, error) {
	return stateOf(c.refresh.CallUnary(ctx, connect.NewRequest(&playerv1.RefreshRequest{})))
}

// SelectPlaylist makes a playlist current.
func (c *Client) SelectPlaylist(ctx context.Context, title string) (*playerv1.PlayerState, error) {
	return stateOf(c.selectPlaylist.CallUnary(ctx, connect.NewRequest(&playerv1.SelectPlaylistRequest{Title: title})))
}

// PlayTrack moves the cursor.
func (c *Client) PlayTrack(ctx context.Context, index int) (*playerv1.PlayerState, error) {
	return stateOf(c.playTrack.CallUnary(ctx, connect.NewRequest(&playerv1.PlayTrackRequest{Index: index})))
}

// Next advances to the next track.
func (c *Client) Next(ctx context.Context) (*playerv1.PlayerState, error) {
	return stateOf(c.next.CallUnary(ctx, connect.NewRequest(&playerv1.NextRequest{})))
}

// Prev goes back to the previous track.
func (c *Client) Prev(ctx context.Context) (*playerv1.PlayerState, error) {
	return stateOf(c.prev.CallUnary(ctx, connect.NewRequest(&playerv1.PrevRequest{})))
}

// Shuffle shuffles the current playlist.
func (c *Client) Shuffle(ctx context.Context) (*playerv1.PlayerState, error) {
	return stateOf(c.shuffle.CallUnary(ctx, connect.NewRequest(&playerv1.ShuffleRequest{})))
}

// Sort sorts the current playlist.
func (c *Client) Sort(ctx context.Context, field, order string) (*playerv1.PlayerState, error) {
	return stateOf(c.sort.CallUnary(ctx, connect.NewRequest(&playerv1.SortRequest{Field: field, Order: order})))
}

// DeletePlaylist deletes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, title string) (*playerv1.PlayerState, error) {
	return stateOf(c.deletePlaylist.CallUnary(ctx, connect.NewRequest(&playerv1.DeletePlaylistRequest{Title: title})))
}

// ReloadPlaylists reloads every source.
func (c *Client) ReloadPlaylists(ctx context.Context) (*playerv1.ReloadPlaylistsResponse, error) {
	resp, err := c.reloadPlaylists.CallUnary(ctx, connect.NewRequest(&playerv1.ReloadPlaylistsRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// WatchState opens a state stream. The caller must close it.
func (c *Client) WatchState(ctx context.Context) (*connect.ServerStreamForClient[playerv1.StateNotification], error) {
	return c.watchState.CallServerStream(ctx, connect.NewRequest(&playerv1.WatchStateRequest{}))
}
