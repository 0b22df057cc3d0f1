package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/placeshelf/internal/places"
	"github.com/dtnitsch/placeshelf/internal/resolve"
	"github.com/dtnitsch/placeshelf/pkg/help"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	formatFlag := func(def string) *cli.StringFlag {
		return &cli.StringFlag{Name: "format", Aliases: []string{"o"}, Value: def, Usage: "Output format (json, yaml" + tableHint(def) + ")"}
	}
	collectionFlag := &cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Value: "default", Usage: "Collection name"}

	return &cli.App{
		Name:    "placeshelf",
		Usage:   "Resolve shared map links into places and keep them in collections",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug detail"},
			&cli.StringFlag{Name: "config", Usage: "Path to YAML config (default: placeshelf.yaml if present)"},
			&cli.StringFlag{Name: "db", Usage: "Path to SQLite database"},
			&cli.StringFlag{Name: "api-key", Usage: "Places API key", EnvVars: []string{"PLACESHELF_API_KEY"}},
			&cli.StringFlag{Name: "env", Usage: "Browser environment (development, production)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "Resolve shared text or a map link into a normalized place",
				ArgsUsage: "<text or link> (or stdin)",
				Flags: []cli.Flag{
					formatFlag("json"),
					&cli.StringFlag{Name: "fields", Usage: "Comma-separated place fields to print"},
					&cli.BoolFlag{Name: "no-log", Usage: "Do not record the run in the resolution log"},
					&cli.BoolFlag{Name: "batch", Usage: "Resolve each argument (or stdin line) separately"},
					&cli.IntFlag{Name: "workers", Value: resolve.DefaultWorkers, Usage: "Concurrent resolutions in batch mode"},
				},
				Action: resolve.ResolveAction,
			},
			{
				Name:      "add",
				Usage:     "Resolve a link and add the place to a collection",
				ArgsUsage: "<text or link> (or stdin)",
				Flags: []cli.Flag{
					collectionFlag,
					formatFlag("json"),
					&cli.BoolFlag{Name: "force", Usage: "Add even when the place duplicates a stored one"},
				},
				Action: places.AddAction,
			},
			{
				Name:   "list",
				Usage:  "List places in a collection",
				Flags:  []cli.Flag{collectionFlag, formatFlag("table")},
				Action: places.ListAction,
			},
			{
				Name:  "check",
				Usage: "Check whether a URL or coordinates duplicate a stored place",
				Flags: []cli.Flag{
					collectionFlag,
					formatFlag("json"),
					&cli.StringFlag{Name: "url", Usage: "Candidate URL"},
					&cli.Float64Flag{Name: "lat", Usage: "Candidate latitude"},
					&cli.Float64Flag{Name: "lng", Usage: "Candidate longitude"},
				},
				Action: places.CheckAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a stored place",
				ArgsUsage: "<place-id>",
				Action:    places.DeleteAction,
			},
			{
				Name:   "collections",
				Usage:  "List collections",
				Flags:  []cli.Flag{formatFlag("table")},
				Action: places.CollectionsAction,
			},
			{
				Name:  "history",
				Usage: "Show recent resolutions",
				Flags: []cli.Flag{
					formatFlag("table"),
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Number of entries"},
				},
				Action: places.HistoryAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a quick reference",
				Action: func(c *cli.Context) error {
					fmt.Print(help.QuickstartYAML)
					return nil
				},
			},
		},
	}
}

func tableHint(def string) string {
	if def == "table" {
		return ", table"
	}
	return ""
}
