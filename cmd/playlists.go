package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/session"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/spotify"
	"github.com/desertthunder/spindle/internal/ui"
	"github.com/urfave/cli/v3"
)

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "Browse playlists with the app credential",
		Commands: []*cli.Command{
			{
				Name:  "featured",
				Usage: "List the featured playlist set",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: r.FeaturedPlaylists,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist by URL, URI, or ID",
				ArgsUsage: "<playlist>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: r.ShowPlaylist,
			},
			{
				Name:      "create",
				Usage:     "Create a new playlist for the logged-in account",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Usage: "Description for the new playlist"},
					&cli.BoolFlag{Name: "public", Usage: "Make the new playlist public (default private)"},
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: r.CreatePlaylist,
			},
		},
	}
}

// authenticatedSession returns the most recently updated session that
// completed a login. Login happens through the HTTP surface, so the
// CLI piggybacks on sessions created there.
func authenticatedSession(ctx context.Context, store session.Store) (*models.Session, error) {
	sessions, err := store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate sessions: %w", err)
	}

	var latest *models.Session
	for _, sess := range sessions {
		if sess.Bundle == nil {
			continue
		}
		if latest == nil || sess.UpdatedAt.After(latest.UpdatedAt) {
			latest = sess
		}
	}

	if latest == nil {
		return nil, fmt.Errorf("%w: no logged-in session, run serve and complete /login first", shared.ErrSessionNotFound)
	}

	return latest, nil
}

// FeaturedPlaylists prints the featured playlist set. Only the
// app-scoped client credential is needed, no login.
func (r *Runner) FeaturedPlaylists(ctx context.Context, cmd *cli.Command) error {
	stack, err := r.buildStack()
	if err != nil {
		return err
	}
	defer stack.close()

	playlists, err := stack.client.FeaturedPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch featured playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlain("%s\n", ui.Title("Featured Playlists"))
	for i, p := range playlists {
		r.writePlain("%d. %s %s\n", i+1, p.Name, ui.Help(fmt.Sprintf("(%d tracks, by %s)", p.TrackCount, p.Owner)))
	}

	return r.writePlainln("%s %d playlists", ui.OK("total:"), len(playlists))
}

// ShowPlaylist prints one playlist's metadata.
func (r *Runner) ShowPlaylist(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("playlist URL, URI, or ID is required")
	}

	id, err := spotify.ExtractPlaylistID(arg)
	if err != nil {
		return err
	}

	stack, err := r.buildStack()
	if err != nil {
		return err
	}
	defer stack.close()

	playlist, err := stack.client.Playlist(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}

	r.writePlain("%s\n", ui.Title(playlist.Name))
	if playlist.Description != "" {
		r.writePlain("%s\n", playlist.Description)
	}
	r.writePlain("owner:  %s\n", playlist.Owner)
	r.writePlain("tracks: %d\n", playlist.TrackCount)

	return nil
}

// CreatePlaylist creates an empty playlist owned by the most recently
// logged-in account.
func (r *Runner) CreatePlaylist(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	stack, err := r.buildStack()
	if err != nil {
		return err
	}
	defer stack.close()

	sess, err := authenticatedSession(ctx, stack.sessions)
	if err != nil {
		return err
	}
	if sess.Account == "" {
		return fmt.Errorf("%w: session has no resolved account", shared.ErrSessionNotFound)
	}

	playlist, err := stack.client.CreatePlaylist(ctx, sess, sess.Account, name, cmd.String("description"), cmd.Bool("public"))
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}

	return r.writePlainln("%s %s %s", ui.OK("created"), playlist.Name, ui.Help(fmt.Sprintf("(ID: %s)", playlist.ID)))
}
