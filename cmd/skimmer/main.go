// Command skimmer serves a trained sentence role model: an interactive
// terminal demo (tui), an HTTP API (serve) and batch classification of
// abstract collections (classify).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crimson-sun/skimmer/internal/config"
	"github.com/crimson-sun/skimmer/internal/logging"
	"github.com/crimson-sun/skimmer/internal/server"
	"github.com/crimson-sun/skimmer/internal/ui"
)

const usage = `usage: skimmer <command> [flags]

commands:
  tui       interactive demo in the terminal
  serve     HTTP API (POST /api/v1/classify)
  classify  classify abstracts from a source and write NDJSON
`

var errUsage = errors.New("unknown command")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	default:
		slog.Error("skimmer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg := config.Load()

	switch args[0] {
	case "tui":
		return runTUI(ctx, cfg, args[1:], stderr)
	case "serve":
		return runServe(ctx, cfg, args[1:], stderr)
	case "classify":
		return runClassify(ctx, cfg, args[1:], stdout, stderr)
	}
	return fmt.Errorf("%w %q", errUsage, args[0])
}

// modelFlags registers the flags every command shares.
func modelFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Model.Dir, "model", cfg.Model.Dir, "run directory to load (default: latest under -models)")
	fs.StringVar(&cfg.Model.Root, "models", cfg.Model.Root, "directory holding run directories")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
}

func runTUI(ctx context.Context, cfg config.Config, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("skimmer tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// The alternate screen owns the terminal; only warnings reach stderr.
	logging.Init(false, max(logging.ParseLevel(cfg.Log.Level), slog.LevelWarn))

	m, err := loadModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	return ui.Run(m.pipeline, ui.Info{
		Variant: string(m.manifest.Variant),
		RunID:   m.manifest.RunID,
		Summary: m.summary,
	})
}

func runServe(ctx context.Context, cfg config.Config, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("skimmer serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelFlags(fs, &cfg)
	fs.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Init(true, logging.ParseLevel(cfg.Log.Level))

	m, err := loadModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	srv := server.New(m.pipeline, server.Info{
		Variant: string(m.manifest.Variant),
		RunID:   m.manifest.RunID,
		Labels:  m.manifest.Statistics.Labels.Categories,
		Summary: m.summary,
	}, cfg.Server.Release)
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout)
}
