// Package main provides the player CLI entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/moodbox/internal/api/connect"
	"github.com/osa030/moodbox/internal/api/playerv1"
)

var (
	app    = kingpin.New("moodbox-playerctl", "moodbox player client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	statusCmd    = app.Command("status", "Show the player state")
	playlistsCmd = app.Command("playlists", "List playlists").Alias("ls")

	showCmd   = app.Command("show", "Show the tracks of a playlist")
	showTitle = showCmd.Arg("title", "Playlist title").Required().String()

	selectCmd   = app.Command("select", "Select a playlist")
	selectTitle = selectCmd.Arg("title", "Playlist title").Required().String()

	playCmd   = app.Command("play", "Play a track of the current playlist")
	playIndex = playCmd.Arg("index", "Track index (0-based)").Required().Int()

	nextCmd    = app.Command("next", "Play the next track")
	prevCmd    = app.Command("prev", "Play the previous track")
	shuffleCmd = app.Command("shuffle", "Shuffle the current playlist")

	sortCmd   = app.Command("sort", "Sort the current playlist")
	sortField = sortCmd.Arg("field", "Sort field").Required().Enum("emotion", "energy")
	sortOrder = sortCmd.Arg("order", "Sort order").Default("asc").Enum("asc", "desc")

	deleteCmd   = app.Command("delete", "Delete a playlist")
	deleteTitle = deleteCmd.Arg("title", "Playlist title").Required().String()
	deleteYes   = deleteCmd.Flag("yes", "Do not ask for confirmation").Short('y').Bool()

	reloadCmd  = app.Command("reload", "Reload playlists from every source")
	refreshCmd = app.Command("refresh", "Flip the refresh trigger")
	watchCmd   = app.Command("watch", "Stream state changes")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewAdminTokenInterceptor(*token)),
	)

	ctx := context.Background()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = printState(client.GetState(ctx))
	case playlistsCmd.FullCommand():
		err = listPlaylists(ctx, client)
	case showCmd.FullCommand():
		err = showPlaylist(ctx, client, *showTitle)
	case selectCmd.FullCommand():
		err = printState(client.SelectPlaylist(ctx, *selectTitle))
	case playCmd.FullCommand():
		err = printState(client.PlayTrack(ctx, *playIndex))
	case nextCmd.FullCommand():
		err = printState(client.Next(ctx))
	case prevCmd.FullCommand():
		err = printState(client.Prev(ctx))
	case shuffleCmd.FullCommand():
		err = printState(client.Shuffle(ctx))
	case sortCmd.FullCommand():
		err = printState(client.Sort(ctx, *sortField, *sortOrder))
	case deleteCmd.FullCommand():
		err = deletePlaylist(ctx, client, *deleteTitle, *deleteYes)
	case reloadCmd.FullCommand():
		err = reload(ctx, client)
	case refreshCmd.FullCommand():
		err = printState(client.Refresh(ctx))
	case watchCmd.FullCommand():
		err = watch(ctx, client)
	}

	if err != nil {
		if connect.CodeOf(err) == connect.CodeUnauthenticated {
			fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printState(s *playerv1.PlayerState, err error) error {
	if err != nil {
		return err
	}

	fmt.Println("\n=== PLAYER STATE ===")
	fmt.Printf("Version: %d\n", s.Version)
	fmt.Printf("Playlists: %d\n", len(s.Playlists))
	fmt.Printf("Current Playlist: %s\n", s.CurrentPlaylist)
	fmt.Printf("Current Index: %d\n", s.CurrentMusic)

	if s.CurrentTrack != nil {
		fmt.Println("\nCurrently Playing:")
		printTrack(s.CurrentTrack)
	} else {
		fmt.Println("\nNo track selected")
	}
	fmt.Println()
	return nil
}

func printTrack(t *playerv1.TrackInfo) {
	fmt.Printf("  Title: %s\n", t.Title)
	fmt.Printf("  Author: %s\n", t.Author)
	fmt.Printf("  Thumbnail: %s\n", t.Thumbnail)
	fmt.Printf("  Hue: %.1f\n", t.ThumbnailHue)
	fmt.Printf("  Emotion: %.1f  Energy: %.1f\n", t.MusicValue.Emotion, t.MusicValue.Energy)
}

func listPlaylists(ctx context.Context, client *apiconnect.Client) error {
	playlists, err := client.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	if len(playlists) == 0 {
		fmt.Println("No playlists")
		return nil
	}

	fmt.Printf("\nPlaylists (%d):\n", len(playlists))
	for _, p := range playlists {
		fmt.Printf("  %-40s %4d tracks\n", p.Title, p.TrackCount)
	}
	fmt.Println()
	return nil
}

func showPlaylist(ctx context.Context, client *apiconnect.Client, title string) error {
	p, err := client.GetPlaylist(ctx, title)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== %s (%d tracks) ===\n", p.Title, p.TrackCount)
	for i, t := range p.Tracks {
		fmt.Printf("  %3d. %s - %s  [emotion %.0f, energy %.0f]\n",
			i, t.Author, t.Title, t.MusicValue.Emotion, t.MusicValue.Energy)
	}
	fmt.Println()
	return nil
}

func deletePlaylist(ctx context.Context, client *apiconnect.Client, title string, yes bool) error {
	if !yes && !confirm(fmt.Sprintf("Delete playlist %q? This also removes it from its source.", title)) {
		fmt.Println("Cancelled")
		return nil
	}
	return printState(client.DeletePlaylist(ctx, title))
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func reload(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.ReloadPlaylists(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d playlists\n", len(resp.Loaded))
	for _, title := range resp.Loaded {
		fmt.Printf("  %s\n", title)
	}
	if len(resp.Failed) > 0 {
		fmt.Printf("Failed sources: %s\n", strings.Join(resp.Failed, ", "))
	}
	return nil
}

func watch(ctx context.Context, client *apiconnect.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.WatchState(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Watching player state. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		cancel()
	}()

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printNotification(n *playerv1.StateNotification) {
	fmt.Printf("\n[Sequence: %d] ", n.SequenceNo)
	if n.Initial {
		fmt.Println("=== INITIAL STATE ===")
	} else {
		fmt.Println("=== STATE CHANGED ===")
	}

	if n.State == nil {
		return
	}
	fmt.Printf("  Version: %d\n", n.State.Version)
	fmt.Printf("  Playlist: %s [%d]\n", n.State.CurrentPlaylist, n.State.CurrentMusic)
	if n.State.CurrentTrack != nil {
		fmt.Printf("  Track: %s - %s\n", n.State.CurrentTrack.Author, n.State.CurrentTrack.Title)
	}
	fmt.Printf("  Refresh Trigger: %v\n", n.State.RefreshTrigger)
}
