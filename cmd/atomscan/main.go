package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/atom/internal/config"
	"github.com/standardbeagle/atom/internal/debug"
	"github.com/standardbeagle/atom/internal/scan"
	"github.com/standardbeagle/atom/internal/version"
	"github.com/standardbeagle/atom/pkg/atom"
	"github.com/standardbeagle/atom/pkg/pathutil"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configDir := c.String("config")
	rootFlag := c.String("root")

	// Without an explicit config directory, look next to the root
	if configDir == "" {
		configDir = rootFlag
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configDir, err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.MergeExclusions(excludeFlags...)
	}
	if rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Scan.Root = absRoot
	}
	if c.IsSet("workers") {
		cfg.Performance.Workers = c.Int("workers")
	}
	if c.IsSet("tokenize") {
		cfg.Scan.Tokenize = c.String("tokenize")
	}
	if c.IsSet("top") {
		cfg.Report.Top = c.Int("top")
	}
	if c.Bool("json") {
		cfg.Report.Format = config.FormatJSON
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                   "atomscan",
		Usage:                  "Intern the tokens of a source tree and report how much they deduplicate",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory containing .atomscan.kdl or .atomscan.toml (defaults to the root)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Directory to scan (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include '**/*.go')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/testdata/**')",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Files read in parallel (0 = number of CPUs)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logs to a file under the temp directory",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
			}
			// DEBUG in the environment also gets a log file
			if !debug.IsDebugEnabled() {
				return nil
			}
			path, err := debug.InitDebugLogFile()
			if err != nil {
				fmt.Fprintf(c.App.ErrWriter, "Warning: %v; debug output goes to stderr\n", err)
				debug.SetDebugOutput(c.App.ErrWriter)
				return nil
			}
			fmt.Fprintf(c.App.ErrWriter, "Debug log: %s\n", path)
			return nil
		},
		After: func(c *cli.Context) error {
			err := debug.CloseDebugLog()
			debug.SetDebugOutput(nil)
			return err
		},
		Commands: []*cli.Command{
			{
				Name:    "scan",
				Aliases: []string{"s"},
				Usage:   "Scan the tree once and print a report",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "Number of most frequent tokens to list",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
					&cli.StringFlag{
						Name:    "tokenize",
						Aliases: []string{"t"},
						Usage:   "Tokenize mode: words, lines or fields",
					},
				},
				Action: scanCommand,
			},
			{
				Name:  "watch",
				Usage: "Scan, then keep interning tokens of changed files until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "tokenize",
						Aliases: []string{"t"},
						Usage:   "Tokenize mode: words, lines or fields",
					},
					&cli.DurationFlag{
						Name:  "for",
						Usage: "Stop after this long (0 = until interrupted)",
					},
				},
				Action: watchCommand,
			},
			{
				Name:      "key",
				Usage:     "Print the fingerprint key of each argument",
				ArgsUsage: "STRING...",
				Action:    keyCommand,
			},
			{
				Name:   "stats",
				Usage:  "Scan the tree and print registry statistics as JSON",
				Action: statsCommand,
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
	}
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func scanCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	report, err := scan.New(cfg).Scan(ctx)
	if err != nil {
		return err
	}

	if cfg.Report.Format == config.FormatJSON {
		return report.WriteJSON(c.App.Writer)
	}
	return report.WriteText(c.App.Writer)
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	cfg.Watch.Enabled = true

	ctx, cancel := signalContext(c.Context)
	defer cancel()
	if d := c.Duration("for"); d > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, d)
		defer stop()
	}

	scanner := scan.New(cfg)
	report, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Scanned %d files: %d tokens, %d unique. Watching %s\n",
		report.Files, report.Tokens, report.UniqueTokens, cfg.Scan.Root)

	watcher, err := scan.NewWatcher(cfg, scanner)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	watcher.SetCallbacks(
		func(path string, res scan.FileResult) {
			stats := atom.ReadStats()
			fmt.Fprintf(c.App.Writer, "%s: %d tokens, %d distinct (registry: %d records)\n",
				pathutil.ToRelative(path, cfg.Scan.Root), res.Tokens, res.Distinct, stats.Records)
		},
		func(path string) {
			fmt.Fprintf(c.App.Writer, "%s: removed (its tokens stay interned)\n", pathutil.ToRelative(path, cfg.Scan.Root))
		},
	)

	if err := watcher.Start(cfg.Scan.Root); err != nil {
		watcher.Stop()
		return err
	}

	<-ctx.Done()
	if err := watcher.Stop(); err != nil {
		return err
	}

	ws := watcher.GetStats()
	fmt.Fprintf(c.App.Writer, "Stopped after %d events (%d errors)\n", ws.EventsProcessed, ws.ErrorCount)
	return nil
}

func keyCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("key requires at least one string argument")
	}

	for _, s := range c.Args().Slice() {
		key := atom.KeyOf(s)
		fmt.Fprintf(c.App.Writer, "%016x\t%d\twindowed=%t\t%q\n", key.Digest, key.Length, key.Windowed(), s)
	}
	return nil
}

type statsOutput struct {
	Registry atom.Stats `json:"registry"`
	Files    int        `json:"files"`
	Tokens   int        `json:"tokens"`
	Buffers  struct {
		Allocations int64   `json:"allocations"`
		Reuses      int64   `json:"reuses"`
		TierHits    []int64 `json:"tier_hits"`
		BusiestTier int     `json:"busiest_tier"`
	} `json:"buffers"`
	Elapsed string `json:"elapsed"`
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	start := time.Now()
	scanner := scan.New(cfg)
	report, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	var out statsOutput
	out.Registry = atom.ReadStats()
	out.Files = report.Files
	out.Tokens = report.Tokens
	bs := scanner.BufferStats()
	out.Buffers.Allocations = bs.Allocations
	out.Buffers.Reuses = bs.Reuses
	out.Buffers.TierHits = bs.TierHits
	out.Buffers.BusiestTier = bs.BusiestTier
	out.Elapsed = time.Since(start).Round(time.Millisecond).String()

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
