package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/skimmer/internal/artifact"
	"github.com/crimson-sun/skimmer/internal/config"
	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/engine/encoder"
	"github.com/crimson-sun/skimmer/internal/inference"
	"github.com/crimson-sun/skimmer/internal/logging"
	"github.com/crimson-sun/skimmer/internal/segment"
)

// loaded is a model ready to classify.
type loaded struct {
	pipeline *inference.Pipeline
	manifest artifact.Manifest
	summary  string
	encoder  encoder.Encoder
}

func (l *loaded) Close() error {
	if l.encoder == nil {
		return nil
	}
	return l.encoder.Close()
}

// loadModel resolves, optionally downloads, and loads the configured run.
// It fails before any input is read when no run can be found.
func loadModel(ctx context.Context, cfg config.Config) (*loaded, error) {
	if cfg.Model.S3Bucket != "" {
		dir, err := fetchRemote(ctx, cfg.Model)
		if err != nil {
			return nil, err
		}
		cfg.Model.Dir = dir
	}

	dir, err := artifact.Resolve(cfg.Model.Dir, cfg.Model.Root)
	if err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}
	man, err := artifact.ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	var opts classifier.Options
	if man.Variant.NeedsEncoder() {
		enc, err := encoder.New(encoder.Config{
			ModelPath:      cfg.Encoder.ModelPath,
			VocabPath:      cfg.Encoder.VocabPath,
			ProjectionPath: cfg.Encoder.ProjectionPath,
			LibraryPath:    cfg.Encoder.LibraryPath,
			MaxSeqLen:      cfg.Encoder.MaxSeqLen,
		})
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", man.Variant, err)
		}
		opts.Encoder = enc
	}

	art, err := artifact.Load(dir, opts)
	if err != nil {
		if opts.Encoder != nil {
			opts.Encoder.Close()
		}
		return nil, err
	}
	slog.Info("model loaded",
		logging.KeyPath, dir,
		logging.KeyVariant, man.Variant,
		"run_id", man.RunID,
	)
	return &loaded{
		pipeline: inference.New(segment.New(), art.Manifest.Statistics, art.Model),
		manifest: art.Manifest,
		summary:  art.Model.Summary(),
		encoder:  opts.Encoder,
	}, nil
}

// fetchRemote downloads the run at s3://bucket/prefix unless a complete copy
// is already on disk, and returns the local directory.
func fetchRemote(ctx context.Context, mc config.ModelConfig) (string, error) {
	dir := mc.Dir
	if dir == "" {
		dir = filepath.Join(mc.Root, path.Base(strings.TrimSuffix(mc.S3Prefix, "/")))
	}
	if _, err := os.Stat(filepath.Join(dir, artifact.ManifestFile)); err == nil {
		slog.Debug("using cached remote model", logging.KeyPath, dir)
		return dir, nil
	}
	client, err := artifact.NewS3Client(mc.S3Region)
	if err != nil {
		return "", err
	}
	if err := artifact.FetchS3(ctx, client, mc.S3Bucket, mc.S3Prefix, dir); err != nil {
		return "", fmt.Errorf("model not found: %w", err)
	}
	return dir, nil
}
