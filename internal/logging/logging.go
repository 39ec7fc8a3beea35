// Package logging configures the process-wide slog logger and defines the
// attribute keys used for training and inference events.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Attribute keys shared by every package that logs model activity.
const (
	KeyModel     = "model.name"
	KeyVariant   = "model.variant"
	KeyOperation = "ml.operation"
	KeyPhase     = "ml.phase"
	KeySamples   = "data.samples"
	KeySplit     = "data.split"
	KeyEpoch     = "train.epoch"
	KeyLoss      = "train.loss"
	KeyAccuracy  = "train.accuracy"
	KeyValLoss   = "train.val_loss"
	KeyValAcc    = "train.val_accuracy"
	KeyLR        = "train.lr"
	KeyDuration  = "duration"
	KeyPath      = "path"
)

// New builds a logger writing to w. JSON output is used when json is true,
// text otherwise.
func New(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init sets the default logger on stderr. When outputIsStdout is true, JSON
// is used so logs are not confused with NDJSON results on stdout.
func Init(outputIsStdout bool, level slog.Level) {
	slog.SetDefault(New(os.Stderr, outputIsStdout, level))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
