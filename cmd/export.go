package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spindle/internal/formatter"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/spotify"
	"github.com/desertthunder/spindle/internal/ui"
	"github.com/urfave/cli/v3"
)

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a playlist's tracks to CSV, Markdown, text, or JSON",
		ArgsUsage: "<playlist>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, markdown, text, json",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Base path for output files (defaults to the playlist ID)",
			},
			&cli.BoolFlag{
				Name:  "audio-features",
				Usage: "Include audio features (danceability, energy, etc.) in the export",
			},
		},
		Action: r.Export,
	}
}

// Export fetches a playlist with its full track listing and writes it
// in the requested format. Public playlists work with the app
// credential alone.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("%w: playlist URL, URI, or ID", shared.ErrMissingArgument)
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

	r.logger.Info("exporting playlist", "playlist", id)

	export, err := stack.client.ExportPlaylist(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to export playlist: %w", err)
	}

	if cmd.Bool("audio-features") {
		// Enrichment is best effort; the plain export still goes out
		// when the analysis endpoint is unavailable.
		if err := stack.client.AttachAudioFeatures(ctx, nil, export.Tracks); err != nil {
			r.logger.Warn("audio features unavailable", "playlist", id, "error", err)
			r.writePlain("%s %v\n", ui.Warn("audio features unavailable:"), err)
		}
	}

	switch format := cmd.String("format"); format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("%s %s\n", ui.OK("tracks:"), result.TracksFile)
		r.writePlain("%s %s\n", ui.OK("metadata:"), result.MetadataFile)

	case "markdown":
		data, err := formatter.ExportToMarkdown(export)
		if err != nil {
			return err
		}
		r.writePlain("%s", data)

	case "text":
		data, err := formatter.ExportToText(export)
		if err != nil {
			return err
		}
		r.writePlain("%s", data)

	case "json":
		return r.writeJSON(export, true)

	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	return r.writePlainln("%s %d tracks from %s", ui.OK("exported"), len(export.Tracks), export.Playlist.Name)
}
