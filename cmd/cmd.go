// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the stdio bridge (also the default action)
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Read request lines from stdin and write responses to stdout",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-in-flight",
				Usage: "Maximum concurrently running handlers (0 is unbounded)",
			},
		},
		Action: r.Serve,
	}
}

// callCommand sends a single command envelope
func callCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "call",
		Usage: "Run one bridge command and print the response",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "command",
			},
		},
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "arg",
				Aliases: []string{"a"},
				Usage:   "Request parameter as key=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "call-id",
				Usage: "callId to send (default: random)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Call,
	}
}

// exportCommand handles playlist export to files
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export playlists to json, csv, markdown or txt files",
		ArgsUsage: "[playlist-id...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Export every playlist in the library",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (json, csv, markdown, txt)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: ytmusic_export_{timestamp})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent playlist exports (max 10)",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  "rate-limit",
				Usage: "Catalog requests per second",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum tracks fetched per playlist",
				Value: 1000,
			},
		},
		Action: r.Export,
	}
}

// authCommand handles credential management
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage stored credentials",
		Commands: []*cli.Command{
			{
				Name:  "cookie",
				Usage: "Save browser cookie credentials from a DevTools cURL capture",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output path for browser.json (default: paths.cookie_file)",
					},
				},
				Action: r.AuthCookie,
			},
			{
				Name:  "oauth",
				Usage: "Sign in with the Google device-code flow and save oauth.json",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the verification URL without opening a browser",
					},
				},
				Action: r.AuthOAuth,
			},
			{
				Name:   "status",
				Usage:  "Show which credential is in use",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete stored credentials",
				Action: r.AuthLogout,
			},
		},
	}
}

// cacheCommand manages persisted stream URLs
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage persisted stream URLs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored stream URLs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include expired URLs",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:   "prune",
				Usage:  "Remove expired stream URLs",
				Action: r.CachePrune,
			},
			{
				Name:   "clear",
				Usage:  "Remove every stored stream URL",
				Action: r.CacheClear,
			},
		},
	}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the stream URL database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file path (default: {base_dir}/tmp/ytbridge-tui.log)",
			},
		},
		Action: r.TUI,
	}
}
