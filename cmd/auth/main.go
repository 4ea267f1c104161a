// Package main provides the Spotify authentication tool.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/moodbox/internal/infra/logger"
	"github.com/osa030/moodbox/internal/infra/spotify"
)

var (
	app          = kingpin.New("moodbox-auth", "Spotify authentication tool for the moodbox spotify source")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()
	envFile      = app.Flag("env-file", "Store the refresh token in this .env file").String()
)

// callback receives the OAuth2 redirect.
type callback struct {
	auth   *spotifyauth.Authenticator
	state  string
	tokens chan *oauth2.Token
}

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if _, err := logger.Init(logger.Config{Output: "stderr", Level: "info"}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", *port)

	cb := &callback{
		auth: spotifyauth.New(
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithClientID(*clientID),
			spotifyauth.WithClientSecret(*clientSecret),
			spotifyauth.WithScopes(spotify.Scopes...),
		),
		state:  uuid.NewString(),
		tokens: make(chan *oauth2.Token, 1),
	}

	mux := http.NewServeMux()
	mux.Handle("/callback", cb)
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Msgf("Failed to start callback server: %v", err)
		}
	}()

	fmt.Println("Please visit the following URL to authorize moodbox:")
	fmt.Println("")
	fmt.Println(cb.auth.AuthURL(cb.state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	token := <-cb.tokens

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn().Msgf("Failed to shutdown callback server: %v", err)
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")

	if *envFile != "" {
		if err := storeRefreshToken(*envFile, token.RefreshToken); err != nil {
			zlog.Fatal().Msgf("Failed to update %s: %v", *envFile, err)
		}
		fmt.Printf("SPOTIFY_REFRESH_TOKEN written to %s\n", *envFile)
		return
	}

	fmt.Println("Refresh Token:")
	fmt.Println(token.RefreshToken)
	fmt.Println("")
	fmt.Println("Add this to your server.yaml:")
	fmt.Println("")
	fmt.Println("spotify:")
	fmt.Printf("  refresh_token: \"%s\"\n", token.RefreshToken)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=\"%s\"\n", token.RefreshToken)
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if st := r.FormValue("state"); st != c.state {
		http.Error(w, "State mismatch", http.StatusForbidden)
		zlog.Warn().Msgf("State mismatch: %s != %s", st, c.state)
		return
	}

	token, err := c.auth.Token(r.Context(), c.state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusForbidden)
		zlog.Error().Err(err).Msg("Failed to get token")
		return
	}

	fmt.Fprint(w, "Authorization complete. You can close this window and return to the terminal.\n")

	select {
	case c.tokens <- token:
	default:
	}
}

// storeRefreshToken sets SPOTIFY_REFRESH_TOKEN in path, keeping other entries.
func storeRefreshToken(path, refreshToken string) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return errors.Wrap(err, "failed to read env file")
		}
		env = existing
	}

	env["SPOTIFY_REFRESH_TOKEN"] = refreshToken
	if err := godotenv.Write(env, path); err != nil {
		return errors.Wrap(err, "failed to write env file")
	}
	return nil
}
