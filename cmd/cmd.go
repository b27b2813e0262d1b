// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func historyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "history",
		Usage:   "Path to the SQLite run history (overrides database.path)",
		Sources: cli.EnvVars("JSI_HISTORY"),
	}
}

// importCommand reconciles an export file against Jellyfin
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create or update Jellyfin playlists from a Spotify export or CSV file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			configFlag(),
			historyFlag(),
			&cli.BoolFlag{
				Name:  "spotify",
				Usage: "Read FILE as a Spotify JSON export",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Read FILE as CSV with trackName, artistName and albumName columns",
			},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Jellyfin server URL",
				Sources: cli.EnvVars("JSI_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Jellyfin API token",
				Sources: cli.EnvVars("JSI_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "user",
				Usage:   "Jellyfin user that owns the playlists",
				Sources: cli.EnvVars("JSI_USER"),
			},
			&cli.BoolFlag{
				Name:  "private",
				Usage: "Create private playlists",
			},
			&cli.BoolFlag{
				Name:  "any-album",
				Usage: "Search every album of the artist when the named album has no match",
			},
			&cli.IntFlag{
				Name:  "fuzz",
				Usage: "Minimum similarity (0-100) for album and track names",
				Value: 100,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Resolve tracks without creating or updating playlists",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error, fatal)",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "skip-tls",
				Usage: "Skip TLS certificate verification",
			},
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"o"},
				Usage:   "Write unresolved tracks to a file (.csv, .json or text)",
			},
		},
		Action: r.Import,
	}
}

// historyCommand lists recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded import runs",
		Flags: []cli.Flag{
			configFlag(),
			historyFlag(),
			&cli.StringFlag{
				Name:  "run",
				Usage: "Show a single run by number or ID, including its unresolved tracks",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only list runs with this status (running, completed, failed)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// setupCommand writes a config template and initializes the history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the run history database",
		Flags: []cli.Flag{
			configFlag(),
			historyFlag(),
		},
		Action: r.Setup,
	}
}
