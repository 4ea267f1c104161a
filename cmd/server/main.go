// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/moodbox/internal/api/connect"
	"github.com/osa030/moodbox/internal/app/notification"
	"github.com/osa030/moodbox/internal/app/persist"
	"github.com/osa030/moodbox/internal/app/source"
	"github.com/osa030/moodbox/internal/app/store"
	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/config"
	"github.com/osa030/moodbox/internal/infra/lastfm"
	"github.com/osa030/moodbox/internal/infra/logger"
	"github.com/osa030/moodbox/internal/infra/spotify"
)

var (
	app        = kingpin.New("moodbox-server", "moodbox playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-sources command
	listSourcesCmd = app.Command("list-sources", "Load every configured source, print its playlists and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == listSourcesCmd.FullCommand() {
		if err := listSources(cfg); err != nil {
			zlog.Error().Msgf("Failed to list sources: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures persistence is flushed)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newStore(cfg)

	// Restore the playback position before anything can observe the store
	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	var persister *persist.Persister
	if backend != nil {
		persister = persist.NewPersister(backend)
		restored, err := persister.Restore(ctx, st)
		if err != nil {
			zlog.Warn().Msgf("Ignoring saved playback position: %v", err)
		}
		if !restored && cfg.Playback.InitialPlaylist != "" {
			st.SetCurrentPlaylist(cfg.Playback.InitialPlaylist)
		}
		defer persister.Attach(st)()
		go persister.Run(ctx)
	} else if cfg.Playback.InitialPlaylist != "" {
		st.SetCurrentPlaylist(cfg.Playback.InitialPlaylist)
	}

	// Load playlists
	var loader *source.Loader
	if len(cfg.Sources) > 0 {
		sources, err := newSources(ctx, cfg)
		if err != nil {
			return err
		}
		loader = source.NewLoader(st, sources)
		result := loader.LoadAll(ctx)
		if len(result.Failed) > 0 {
			zlog.Warn().Msgf("Some sources failed to load: %v", result.Failed)
		}

		if watched := source.FileSources(sources); len(watched) > 0 {
			watcher, err := source.NewWatcher(loader, watched)
			if err != nil {
				return errors.Wrap(err, "failed to start catalog watcher")
			}
			go watcher.Run(ctx)
		}
	} else {
		zlog.Warn().Msg("No playlist sources configured, the store starts empty")
	}

	// Notifications
	notifications := notification.NewManager()
	go notifications.Run(ctx)
	defer apiconnect.BridgeNotifications(st, notifications)()

	// RPC service
	streamsDone := make(chan struct{})
	opts := []apiconnect.ServiceOption{
		apiconnect.WithFallbackPlaylist(cfg.Playback.FallbackPlaylist),
		apiconnect.WithDone(streamsDone),
	}
	if loader != nil {
		opts = append(opts, apiconnect.WithLoader(loader))
	}
	playerService := apiconnect.NewPlayerService(st, notifications, opts...)

	mux := http.NewServeMux()
	path, handler := apiconnect.NewHandler(
		playerService,
		connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)),
	)
	mux.Handle(path, handler)

	if cfg.Admin.Token == "" {
		zlog.Warn().Msg("admin.token is not set, state-changing RPCs are open to everyone")
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// End streams first so Shutdown does not wait on them
	close(streamsDone)
	notifications.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// Stop background workers and flush the last snapshot
	cancel()
	if persister != nil {
		select {
		case <-persister.Done():
		case <-shutdownCtx.Done():
			zlog.Warn().Msg("Timed out flushing playback position")
		}
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// newStore creates the playback store from the playback and thumbnail settings.
func newStore(cfg *config.Config) *store.Store {
	opts := []store.Option{
		store.WithThumbnailer(track.NewThumbnailer(cfg.Thumbnail.BaseURL)),
	}
	if cfg.Playback.Seed != 0 {
		zlog.Info().Msgf("Using fixed shuffle seed: %d", cfg.Playback.Seed)
		opts = append(opts, store.WithRand(rand.New(rand.NewSource(cfg.Playback.Seed))))
	}
	return store.New(opts...)
}

// newBackend creates the configured persistence backend. A nil backend means
// persistence is disabled.
func newBackend(ctx context.Context, cfg *config.Config) (persist.Backend, func(), error) {
	switch cfg.Persistence.Backend {
	case config.BackendFile:
		zlog.Info().Msgf("Persisting playback position to %s", cfg.Persistence.File.Path)
		return persist.NewFileBackend(cfg.Persistence.File.Path), func() {}, nil

	case config.BackendRedis:
		backend, client, err := persist.NewRedisBackend(ctx, persist.RedisConfig{
			Addr:     cfg.Persistence.Redis.Addr,
			Password: cfg.Persistence.Redis.Password,
			DB:       cfg.Persistence.Redis.DB,
			Key:      cfg.Persistence.Redis.Key,
		})
		if err != nil {
			return nil, nil, err
		}
		zlog.Info().Msgf("Persisting playback position to redis: addr=%s key=%s", cfg.Persistence.Redis.Addr, cfg.Persistence.Redis.Key)
		return backend, closeQuietly(client), nil

	default:
		zlog.Info().Msg("Playback position persistence disabled")
		return nil, func() {}, nil
	}
}

func closeQuietly(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			zlog.Warn().Err(err).Msg("Failed to close connection")
		}
	}
}

// newSources creates the remote clients the configured sources need, then
// the sources themselves.
func newSources(ctx context.Context, cfg *config.Config) ([]source.Source, error) {
	var deps source.Deps

	if cfg.HasSource(config.SourceTypeSpotify) {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Spotify client")
		}
		deps.Spotify = client
	}

	if cfg.HasSource(config.SourceTypeLastFm) {
		client, err := lastfm.New(lastfm.Config{APIKey: cfg.LastFm.APIKey})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Last.fm client")
		}
		deps.LastFm = client
	}

	return source.NewSourcesFromConfig(cfg, deps)
}

// listSources loads every source once and prints what it provides.
func listSources(cfg *config.Config) error {
	ctx := context.Background()

	sources, err := newSources(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println("Playlist Sources:")
	for _, src := range sources {
		playlists, err := src.Load(ctx)
		if err != nil {
			fmt.Printf("  %-30s - error: %v\n", src.Name(), err)
			continue
		}
		fmt.Printf("  %-30s - %d playlists\n", src.Name(), len(playlists))
		for _, p := range playlists {
			fmt.Printf("      %-40s %4d tracks\n", p.Title, p.Len())
		}
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
