package connect

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/osa030/moodbox/internal/api/playerv1"
)

// NewHandler builds an HTTP handler that serves every PlayerService
// procedure. It returns the path to mount the handler on.
func NewHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(playerv1.GetStateProcedure, connect.NewUnaryHandler(playerv1.GetStateProcedure, svc.GetState, opts...))
	mux.Handle(playerv1.ListPlaylistsProcedure, connect.NewUnaryHandler(playerv1.ListPlaylistsProcedure, svc.ListPlaylists, opts...))
	mux.Handle(playerv1.GetPlaylistProcedure, connect.NewUnaryHandler(playerv1.GetPlaylistProcedure, svc.GetPlaylist, opts...))
	mux.Handle(playerv1.RefreshProcedure, connect.NewUnaryHandler(playerv1.RefreshProcedure, svc.Refresh, opts...))
	mux.Handle(playerv1.SelectPlaylistProcedure, connect.NewUnaryHandler(playerv1.SelectPlaylistProcedure, svc.SelectPlaylist, opts...))
	mux.Handle(playerv1.PlayTrackProcedure, connect.NewUnaryHandler(playerv1.PlayTrackProcedure, svc.PlayTrack, opts...))
	mux.Handle(playerv1.NextProcedure, connect.NewUnaryHandler(playerv1.NextProcedure, svc.Next, opts...))
	mux.Handle(playerv1.PrevProcedure, connect.NewUnaryHandler(playerv1.PrevProcedure, svc.Prev, opts...))
	mux.Handle(playerv1.ShuffleProcedure, connect.NewUnaryHandler(playerv1.ShuffleProcedure, svc.Shuffle, opts...))
	mux.Handle(playerv1.SortProcedure, connect.NewUnaryHandler(playerv1.SortProcedure, svc.Sort, opts...))
	mux.Handle(playerv1.DeletePlaylistProcedure, connect.NewUnaryHandler(playerv1.DeletePlaylistProcedure, svc.DeletePlaylist, opts...))
	mux.Handle(playerv1.ReloadPlaylistsProcedure, connect.NewUnaryHandler(playerv1.ReloadPlaylistsProcedure, svc.ReloadPlaylists, opts...))
	mux.Handle(playerv1.WatchStateProcedure, connect.NewServerStreamHandler(playerv1.WatchStateProcedure, svc.WatchState, opts...))

	return "/" + playerv1.ServiceName + "/", mux
}
