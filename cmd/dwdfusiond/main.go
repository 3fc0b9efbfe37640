package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dwdfusion/dwdfusion/internal/fusion"
	"github.com/dwdfusion/dwdfusion/internal/layout"
)

// main wires the urfave/cli/v2 subcommand surface spec §6 describes
// ("render / windowed / background / export"), collapsed to what a
// headless Go service can meaningfully do without a 2D rasteriser:
// serve the HTTP front-end, run one refresh cycle, or dump a layout
// plan to a file.
func main() {
	cliApp := &cli.App{
		Name:  "dwdfusiond",
		Usage: "fuse DWD weather sources into a single timeline",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP front-end and the background refresh scheduler",
				Action: runServe,
			},
			{
				Name:   "refresh",
				Usage:  "load the cache, refresh it once, persist, and exit",
				Action: runRefreshOnce,
			},
			{
				Name:  "export",
				Usage: "refresh once and dump the resulting layout plan as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "file to write the JSON plan to",
						Required: true,
					},
				},
				Action: runExport,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	a.scheduler.Start()
	a.logger.Info("serving", "addr", a.cfg.ListenAddr)
	return a.server().ListenAndServe()
}

func runRefreshOnce(c *cli.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	updated := a.runRefresh()
	a.logger.Info("one-shot refresh finished", "updated", updated)
	return nil
}

func runExport(c *cli.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	a.runRefresh()

	merged := fusion.Merge(a.cache.Report(), a.cache.Forecast())
	rect := layout.Rect{Width: 800, Height: 480}
	plan := layout.Build(rect, merged, a.cache.Radar(), time.Now())

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal plan: %w", err)
	}
	if err := os.WriteFile(c.String("output"), data, 0o644); err != nil {
		return fmt.Errorf("export: write output: %w", err)
	}
	a.logger.Info("exported layout plan", "path", c.String("output"))
	return nil
}
