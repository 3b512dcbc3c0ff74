// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/clouder/internal/playback"
	"github.com/urfave/cli/v3"
)

func formatFlags(defaultFormat string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, markdown, csv, json)",
			Value:   defaultFormat,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to a file instead of stdout",
		},
	}
}

// setupCommand creates the config file and the token database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the database",
		Action: r.Setup,
	}
}

// authCommand manages the Spotify session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify session management",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Spotify in the browser",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: authTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL without opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show whether a session is stored",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistsCommand lists the user's Spotify playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List Spotify playlists",
		Flags: append(formatFlags("text"),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to show (0 for all)",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "Only show playlists whose name contains this text",
			},
		),
		Action: r.Playlists,
	}
}

// playerCommand reads and drives Spotify playback.
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Playback state and transport control",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the current track",
				Flags:  formatFlags("text"),
				Action: r.PlayerStatus,
			},
			{
				Name:   "watch",
				Usage:  "Print the current track whenever it changes",
				Action: r.PlayerWatch,
			},
			{
				Name:    "toggle",
				Aliases: []string{"play-pause"},
				Usage:   "Pause when playing, resume otherwise",
				Action:  r.transport(playback.Binding{Action: playback.ActionPlayPause}),
			},
			{
				Name:   "next",
				Usage:  "Skip to the next track",
				Action: r.transport(playback.Binding{Action: playback.ActionNext}),
			},
			{
				Name:    "previous",
				Aliases: []string{"prev"},
				Usage:   "Go back to the previous track",
				Action:  r.transport(playback.Binding{Action: playback.ActionPrevious}),
			},
			{
				Name:    "forward",
				Aliases: []string{"ff"},
				Usage:   "Seek forward by player.seek_step",
				Action:  r.transport(playback.Binding{Action: playback.ActionFastForward}),
			},
			{
				Name:    "rewind",
				Aliases: []string{"rw"},
				Usage:   "Seek back by player.seek_step",
				Action:  r.transport(playback.Binding{Action: playback.ActionRewind}),
			},
			{
				Name:  "seek",
				Usage: "Seek to a percentage of the current track",
				Flags: []cli.Flag{
					&cli.FloatFlag{
						Name:     "percent",
						Usage:    "Target position from 0 to 100",
						Required: true,
					},
				},
				Action: r.PlayerSeek,
			},
			{
				Name:      "open",
				Usage:     "Start a playlist or album",
				ArgsUsage: "<spotify-uri>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "uri"},
				},
				Action: r.PlayerOpen,
			},
		},
	}
}

// categoriesCommand shows and moves tracks between weekly category playlists.
func categoriesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "categories",
		Aliases: []string{"cat"},
		Usage:   "Weekly category playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the categories of the playing playlist",
				Flags: append(formatFlags("text"),
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Playlist ID to resolve instead of the playing context",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Do not truncate the list",
					},
				),
				Action: r.CategoriesList,
			},
			{
				Name:      "move",
				Usage:     "Move the current track into a category playlist",
				ArgsUsage: "<playlist-id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "target"},
				},
				Action: r.CategoriesMove,
			},
			{
				Name:   "weeks",
				Usage:  "List the weeks known to the backend",
				Flags:  formatFlags("text"),
				Action: r.CategoriesWeeks,
			},
		},
	}
}

// serveCommand runs the local control API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the local control API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive player.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive player",
		Action: r.TUI,
	}
}
