// Command skimmer-train fits a sentence role model on a PubMed RCT corpus
// and saves it as a run directory under the models root.
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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/crimson-sun/skimmer/internal/artifact"
	"github.com/crimson-sun/skimmer/internal/config"
	"github.com/crimson-sun/skimmer/internal/corpus"
	"github.com/crimson-sun/skimmer/internal/dataset"
	"github.com/crimson-sun/skimmer/internal/device"
	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/features"
	"github.com/crimson-sun/skimmer/internal/logging"
	"github.com/crimson-sun/skimmer/internal/train"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

type flags struct {
	epochs   int
	train    string
	variant  string
	dataDir  string
	root     string
	restore  bool
	progress bool
}

func parseFlags(args []string, cfg config.Config, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("skimmer-train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&f.epochs, "epochs", cfg.Train.Epochs, "Number of epochs to train on")
	fs.StringVar(&f.train, "train", "True", "flag to train the model; false only reports the latest run")
	fs.StringVar(&f.variant, "variant", cfg.Train.Variant, "model variant: tribrid, token or token_char")
	fs.StringVar(&f.dataDir, "data-dir", cfg.Data.Dir, "directory holding train.txt, dev.txt and test.txt")
	fs.StringVar(&f.root, "models", cfg.Model.Root, "directory run directories are saved under")
	fs.BoolVar(&f.restore, "restore-best", false, "save the best checkpointed weights instead of the final ones")
	fs.BoolVar(&f.progress, "progress", true, "render progress bars on stderr")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// truthy accepts the spellings people pass for a boolean flag given as a
// string ("True", "yes", "1").
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "f", "0", "no", "n", "off":
		return false
	}
	return true
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Load()
	f, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	cfg.Train.Epochs = f.epochs
	cfg.Train.Variant = f.variant
	cfg.Data.Dir = f.dataDir
	cfg.Model.Root = f.root
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Init(false, logging.ParseLevel(cfg.Log.Level))

	if !truthy(f.train) {
		return report(stdout, cfg.Model.Root)
	}

	var progress io.Writer
	if f.progress {
		progress = stderr
	}
	return fit(ctx, cfg, f, progress, stdout)
}

// report prints the summary of the most recent run.
func report(stdout io.Writer, root string) error {
	dir, err := artifact.Latest(root)
	if err != nil {
		return err
	}
	man, err := artifact.ReadManifest(dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Latest model: %s (run %s, variant %s, created %s)\n",
		dir, man.RunID, man.Variant, man.Created.Format(time.RFC3339))
	if last := man.History.Last(); last.Epoch > 0 {
		fmt.Fprintf(stdout, "Final epoch %d: loss %.4f, accuracy %.4f, val_loss %.4f, val_accuracy %.4f\n",
			last.Epoch, last.Loss, last.Accuracy, last.ValLoss, last.ValAccuracy)
	}
	return nil
}

func fit(ctx context.Context, cfg config.Config, f flags, progress io.Writer, stdout io.Writer) error {
	variant, err := classifier.ParseVariant(cfg.Train.Variant)
	if err != nil {
		return err
	}
	policy, err := features.ParsePolicy(cfg.Features.PositionPolicy)
	if err != nil {
		return err
	}

	if rep, err := device.Probe(ctx); err != nil {
		slog.Warn("device probe failed", "error", err)
	} else {
		fmt.Fprintf(stdout, "\n%s\n\n", rep)
	}

	var copts []corpus.Option
	if progress != nil {
		copts = append(copts, corpus.WithProgress(progress))
	}
	splits, err := corpus.ExtractSplits(cfg.Data.Dir, copts...)
	if err != nil {
		return err
	}
	slog.Info("corpus loaded",
		logging.KeyPath, cfg.Data.Dir,
		"train", len(splits.Train),
		"validation", len(splits.Validation),
		"test", len(splits.Test),
	)

	stats, err := features.Fit(splits.Train, features.FitOptions{
		MaxTokens:       cfg.Features.MaxTokens,
		LineNumberDepth: cfg.Features.LineNumberDepth,
		TotalLinesDepth: cfg.Features.TotalLinesDepth,
		PositionPolicy:  policy,
	})
	if err != nil {
		return err
	}

	streams, err := assemble(stats, splits, cfg.Data)
	if err != nil {
		return err
	}

	opts := classifier.Options{LearningRate: cfg.Train.LearningRate, Seed: cfg.Data.Seed}
	if variant.NeedsEncoder() {
		enc, err := encoder.New(encoder.Config{
			ModelPath:      cfg.Encoder.ModelPath,
			VocabPath:      cfg.Encoder.VocabPath,
			ProjectionPath: cfg.Encoder.ProjectionPath,
			LibraryPath:    cfg.Encoder.LibraryPath,
			MaxSeqLen:      cfg.Encoder.MaxSeqLen,
		})
		if err != nil {
			return fmt.Errorf("variant %s: %w", variant, err)
		}
		// Sentences repeat every epoch; the encoder is frozen.
		cache := encoder.NewCache(enc)
		defer cache.Close()
		opts.Encoder = cache
	}

	m, err := classifier.New(variant, stats, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, m.Summary())

	runDir := artifact.NewRunDir(cfg.Model.Root, time.Now())
	ckptPath := cfg.Train.CheckpointPath
	if ckptPath == "" {
		ckptPath = filepath.Join(runDir, "checkpoints.db")
	}
	if err := os.MkdirAll(filepath.Dir(ckptPath), 0o755); err != nil {
		return err
	}
	ckpt, err := train.OpenCheckpointer(ckptPath, train.MetricAccuracy)
	if err != nil {
		return err
	}
	defer ckpt.Close()

	plateau := train.NewReduceLROnPlateau(train.PlateauConfig{
		Monitor:  train.MetricLoss,
		Factor:   cfg.Train.PlateauFactor,
		Patience: cfg.Train.PlateauPatience,
		MinDelta: cfg.Train.PlateauMinDelta,
		MinLR:    cfg.Train.MinLearningRate,
	})

	topts := []train.Option{train.WithCallbacks(plateau, ckpt)}
	if progress != nil {
		topts = append(topts, train.WithProgress(progress))
	}

	start := time.Now()
	history, err := train.New(topts...).Fit(ctx, m, streams, cfg.Train.Epochs)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Time taken to train: %.2f mins\n", time.Since(start).Minutes())

	if f.restore {
		best, err := ckpt.Restore(m)
		switch {
		case errors.Is(err, train.ErrNoCheckpoint):
			slog.Warn("no checkpoint to restore, keeping final weights")
		case err != nil:
			return err
		default:
			slog.Info("restored best checkpoint", logging.KeyEpoch, best.Epoch, logging.KeyAccuracy, best.Accuracy)
		}
	}

	man, err := artifact.Save(runDir, m, stats, artifact.Meta{
		Hyperparameters: artifact.Hyperparameters{
			Epochs:       cfg.Train.Epochs,
			BatchSize:    cfg.Data.BatchSize,
			LearningRate: cfg.Train.LearningRate,
			Shuffle:      cfg.Data.Shuffle,
			Seed:         cfg.Data.Seed,
		},
		History: history,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Model saved to %s (run %s)\n", runDir, man.RunID)

	if streams.Test != nil {
		tm, err := train.Evaluate(ctx, m, streams.Test)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Test loss: %.4f, test accuracy: %.4f\n", tm.Loss(), tm.Accuracy())
	}
	return nil
}

func assemble(stats *features.Statistics, s corpus.Splits, dc config.DataConfig) (*dataset.Streams, error) {
	enc := features.NewEncoder(stats)
	trainB, err := enc.Encode(s.Train)
	if err != nil {
		return nil, fmt.Errorf("encode train split: %w", err)
	}
	valB, err := enc.Encode(s.Validation)
	if err != nil {
		return nil, fmt.Errorf("encode validation split: %w", err)
	}
	var testB features.Bundle
	if len(s.Test) > 0 {
		if testB, err = enc.Encode(s.Test); err != nil {
			return nil, fmt.Errorf("encode test split: %w", err)
		}
	}
	return dataset.Assemble(trainB, valB, testB, dataset.Options{
		BatchSize: dc.BatchSize,
		Prefetch:  dc.Prefetch,
		Shuffle:   dc.Shuffle,
		Seed:      dc.Seed,
	})
}
