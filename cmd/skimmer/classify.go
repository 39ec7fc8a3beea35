package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/crimson-sun/skimmer/internal/config"
	"github.com/crimson-sun/skimmer/internal/dedup"
	"github.com/crimson-sun/skimmer/internal/logging"
	"github.com/crimson-sun/skimmer/internal/output"
	"github.com/crimson-sun/skimmer/internal/output/async"
	"github.com/crimson-sun/skimmer/internal/output/file"
	"github.com/crimson-sun/skimmer/internal/output/multi"
	"github.com/crimson-sun/skimmer/internal/output/stdout"
	"github.com/crimson-sun/skimmer/internal/output/webhook"
	"github.com/crimson-sun/skimmer/internal/pipeline"
	"github.com/crimson-sun/skimmer/internal/source"

	// Register source implementations.
	_ "github.com/crimson-sun/skimmer/internal/source/file"
	_ "github.com/crimson-sun/skimmer/internal/source/pubmed"
)

func runClassify(ctx context.Context, cfg config.Config, args []string, w, stderr io.Writer) error {
	var (
		limit   int
		stream  bool
		ids     string
		noDedup bool
	)
	fs := flag.NewFlagSet("skimmer classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelFlags(fs, &cfg)
	fs.StringVar(&cfg.Source.Provider, "source", cfg.Source.Provider, fmt.Sprintf("abstract source %v", source.Providers()))
	fs.StringVar(&cfg.Source.Path, "in", cfg.Source.Path, `input file for the file source ("-" for stdin)`)
	fs.StringVar(&ids, "ids", "", "comma-separated PMIDs for the pubmed source")
	fs.IntVar(&limit, "limit", 0, "stop after this many abstracts (0: no limit)")
	fs.BoolVar(&noDedup, "no-dedup", false, "classify repeated abstracts again")
	fs.BoolVar(&stream, "stream", false, "classify abstracts as they are read instead of fetching the batch first")
	fs.StringVar(&cfg.Output.Format, "out", cfg.Output.Format, "stdout or file")
	fs.StringVar(&cfg.Output.FilePath, "out-file", cfg.Output.FilePath, "NDJSON file for -out file; {source} is replaced by the source name")
	fs.StringVar(&cfg.Output.Verbosity, "verbosity", cfg.Output.Verbosity, "minimal or full")
	fs.BoolVar(&cfg.Output.Pretty, "pretty", cfg.Output.Pretty, "indent JSON")
	fs.StringVar(&cfg.Output.WebhookURL, "webhook", cfg.Output.WebhookURL, "also POST batches of results to this URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if ids != "" {
		cfg.Source.IDs = config.SplitList(ids)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Init(cfg.Output.Format == "stdout", logging.ParseLevel(cfg.Log.Level))

	m, err := loadModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		return err
	}
	out, err := buildOutput(cfg.Output, w)
	if err != nil {
		return err
	}

	var popts []pipeline.Option
	if !noDedup {
		popts = append(popts, pipeline.WithDedup(dedup.New()))
	}
	p := pipeline.New(ctor(), m.pipeline, out, popts...)
	scfg := source.Config{
		Provider: cfg.Source.Provider,
		Path:     cfg.Source.Path,
		Endpoint: cfg.Source.Endpoint,
		APIKey:   cfg.Source.APIKey,
		IDs:      cfg.Source.IDs,
	}
	if stream {
		err = p.Stream(ctx, scfg)
	} else {
		err = p.Query(ctx, scfg, source.QueryParams{Limit: limit})
	}
	if cerr := p.Close(); err == nil {
		err = cerr
	}
	slog.Info("classification finished",
		"classified", p.Classified(),
		"skipped", p.Skipped(),
		"duplicates", p.Duplicates(),
	)
	return err
}

// buildOutput assembles the configured sinks. Slow sinks are decoupled from
// the classifier with an async buffer.
func buildOutput(oc config.OutputConfig, w io.Writer) (output.Output, error) {
	verbosity, err := output.ParseVerbosity(oc.Verbosity)
	if err != nil {
		return nil, err
	}

	var outs []output.Output
	switch oc.Format {
	case "file":
		opts := []file.Option{file.WithMaxBackups(oc.FileBackups)}
		if oc.FileMaxSize > 0 {
			opts = append(opts, file.WithMaxSize(oc.FileMaxSize))
		}
		f, err := file.New(oc.FilePath, verbosity, opts...)
		if err != nil {
			return nil, err
		}
		outs = append(outs, async.New(f))
	default:
		outs = append(outs, stdout.NewWriter(w, verbosity, oc.Pretty))
	}
	if oc.WebhookURL != "" {
		outs = append(outs, async.New(webhook.New(oc.WebhookURL, verbosity), async.WithDropOnFull()))
	}

	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
