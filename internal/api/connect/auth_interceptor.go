// Package connect provides the Connect RPC player service.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/osa030/moodbox/internal/api/playerv1"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
)

// adminProcedures are the procedures that change playback state.
var adminProcedures = map[string]bool{
	playerv1.RefreshProcedure:         true,
	playerv1.SelectPlaylistProcedure:  true,
	playerv1.PlayTrackProcedure:       true,
	playerv1.NextProcedure:            true,
	playerv1.PrevProcedure:            true,
	playerv1.ShuffleProcedure:         true,
	playerv1.SortProcedure:            true,
	playerv1.DeletePlaylistProcedure:  true,
	playerv1.ReloadPlaylistsProcedure: true,
}

// NewAdminAuthInterceptor creates an interceptor that validates the admin
// token on state-changing procedures. An empty token disables the check.
func NewAdminAuthInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token == "" || !adminProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}

			got := req.Header().Get(AdminTokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			return next(ctx, req)
		}
	}
}

// NewAdminTokenInterceptor attaches the admin token to outgoing requests.
func NewAdminTokenInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" && req.Spec().IsClient {
				req.Header().Set(AdminTokenHeader, token)
			}
			return next(ctx, req)
		}
	}
}
