package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/api/playerv1"
	"github.com/osa030/moodbox/internal/app/deletion"
	"github.com/osa030/moodbox/internal/app/notification"
	"github.com/osa030/moodbox/internal/app/source"
	"github.com/osa030/moodbox/internal/app/store"
	"github.com/osa030/moodbox/internal/domain/playlist"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	store         *store.Store
	loader        *source.Loader
	syncer        *deletion.Syncer
	notifications *notification.Manager
	fallback      string
	done          <-chan struct{}
}

// ServiceOption configures a PlayerService.
type ServiceOption func(*PlayerService)

// WithLoader enables ReloadPlaylists.
func WithLoader(loader *source.Loader) ServiceOption {
	return func(s *PlayerService) { s.loader = loader }
}

// WithFallbackPlaylist sets the playlist selected after the current one is
// deleted. The fallback itself cannot be deleted.
func WithFallbackPlaylist(title string) ServiceOption {
	return func(s *PlayerService) { s.fallback = title }
}

// WithDone ends WatchState streams when done is closed.
func WithDone(done <-chan struct{}) ServiceOption {
	return func(s *PlayerService) { s.done = done }
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(st *store.Store, notifications *notification.Manager, opts ...ServiceOption) *PlayerService {
	s := &PlayerService{
		store:         st,
		notifications: notifications,
	}
	for _, opt := range opts {
		opt(s)
	}

	var owners deletion.Owners
	if s.loader != nil {
		owners = s.loader
	}
	s.syncer = deletion.NewSyncer(st, owners)

	return s
}

// BridgeNotifications publishes every committed store state to the
// notification manager. The returned function stops the bridge.
func BridgeNotifications(st *store.Store, notifications *notification.Manager) func() {
	return st.Subscribe(func(state store.State) {
		notifications.Publish(&playerv1.StateNotification{State: toPlayerState(state)})
	})
}

func (s *PlayerService) stateResponse() *connect.Response[playerv1.StateResponse] {
	return connect.NewResponse(&playerv1.StateResponse{State: toPlayerState(s.store.Snapshot())})
}

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[playerv1.GetStateRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	return s.stateResponse(), nil
}

// ListPlaylists returns every playlist without its tracks.
func (s *PlayerService) ListPlaylists(
	ctx context.Context,
	req *connect.Request[playerv1.ListPlaylistsRequest],
) (*connect.Response[playerv1.ListPlaylistsResponse], error) {
	state := s.store.Snapshot()

	resp := &playerv1.ListPlaylistsResponse{}
	for _, title := range state.Titles() {
		tracks, _ := state.Playlist(title)
		resp.Playlists = append(resp.Playlists, toPlaylistInfo(title, tracks, false))
	}

	return connect.NewResponse(resp), nil
}

// GetPlaylist returns a playlist with its tracks.
func (s *PlayerService) GetPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.GetPlaylistRequest],
) (*connect.Response[playerv1.GetPlaylistResponse], error) {
	tracks, ok := s.store.Snapshot().Playlist(req.Msg.Title)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, errors.Newf("playlist %q not found", req.Msg.Title))
	}

	return connect.NewResponse(&playerv1.GetPlaylistResponse{
		Playlist: toPlaylistInfo(req.Msg.Title, tracks, true),
	}), nil
}

// Refresh flips the refresh trigger.
func (s *PlayerService) Refresh(
	ctx context.Context,
	req *connect.Request[playerv1.RefreshRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	s.store.Refresh()
	return s.stateResponse(), nil
}

// SelectPlaylist makes a playlist current.
func (s *PlayerService) SelectPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.SelectPlaylistRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	s.store.SetCurrentPlaylist(req.Msg.Title)
	return s.stateResponse(), nil
}

// PlayTrack moves the cursor to a track of the current playlist.
func (s *PlayerService) PlayTrack(
	ctx context.Context,
	req *connect.Request[playerv1.PlayTrackRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	s.store.SetCurrentMusic(req.Msg.Index)
	return s.stateResponse(), nil
}

// Next advances to the next track.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[playerv1.NextRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	s.store.NextMusic()
	return s.stateResponse(), nil
}

// Prev goes back to the previous track.
func (s *PlayerService) Prev(
	ctx context.Context,
	req *connect.Request[playerv1.PrevRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	s.store.PrevMusic()
	return s.stateResponse(), nil
}

// Shuffle shuffles the current playlist.
func (s *PlayerService) Shuffle(
	ctx context.Context,
	req *connect.Request[playerv1.ShuffleRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	s.store.ShuffleCurrentPlaylist()
	return s.stateResponse(), nil
}

// Sort sorts the current playlist by a mood field.
func (s *PlayerService) Sort(
	ctx context.Context,
	req *connect.Request[playerv1.SortRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	field, err := playlist.ParseSortField(req.Msg.Field)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	order, err := playlist.ParseSortOrder(req.Msg.Order)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	s.store.SortCurrentPlaylist(field, order)
	return s.stateResponse(), nil
}

// DeletePlaylist deletes a playlist locally and from its source.
func (s *PlayerService) DeletePlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.DeletePlaylistRequest],
) (*connect.Response[playerv1.StateResponse], error) {
	err := s.syncer.Delete(ctx, req.Msg.Title, s.fallback)
	switch {
	case err == nil:
	case errors.Is(err, deletion.ErrProtectedPlaylist):
		return nil, connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, deletion.ErrPlaylistNotFound):
		return nil, connect.NewError(connect.CodeNotFound, err)
	default:
		// The playlist is gone locally; only the source could not follow.
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return s.stateResponse(), nil
}

// ReloadPlaylists reloads every source.
func (s *PlayerService) ReloadPlaylists(
	ctx context.Context,
	req *connect.Request[playerv1.ReloadPlaylistsRequest],
) (*connect.Response[playerv1.ReloadPlaylistsResponse], error) {
	if s.loader == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("no playlist sources configured"))
	}

	result := s.loader.LoadAll(ctx)
	return connect.NewResponse(&playerv1.ReloadPlaylistsResponse{
		Loaded: result.Loaded,
		Failed: result.Failed,
	}), nil
}

// WatchState streams the player state: the current state first, then every
// change until the client goes away.
func (s *PlayerService) WatchState(
	ctx context.Context,
	req *connect.Request[playerv1.WatchStateRequest],
	stream *connect.ServerStream[playerv1.StateNotification],
) error {
	subscriptionID := s.notifications.Subscribe(stream)
	defer s.notifications.Unsubscribe(subscriptionID)

	initial := &playerv1.StateNotification{
		SequenceNo: s.notifications.NextSequenceNo(),
		Initial:    true,
		State:      toPlayerState(s.store.Snapshot()),
	}
	if err := s.notifications.Send(subscriptionID, initial); err != nil {
		zlog.Debug().Err(err).Msgf("failed to send initial state: subscription=%s", subscriptionID)
		return err
	}

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}
