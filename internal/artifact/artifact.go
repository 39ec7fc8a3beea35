// Package artifact persists trained models. An artifact is a directory
// holding manifest.json (run metadata, frozen feature statistics, training
// history) and weights.safetensors (parameters keyed by name).
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/features"
	"github.com/crimson-sun/skimmer/internal/safetensors"
	"github.com/crimson-sun/skimmer/internal/train"
)

// File names inside an artifact directory.
const (
	ManifestFile = "manifest.json"
	WeightsFile  = "weights.safetensors"
	runPrefix    = "model_"
)

// ErrModelNotFound is returned when no artifact exists at the requested
// location.
var ErrModelNotFound = errors.New("model not found")

// Hyperparameters records how a model was trained.
type Hyperparameters struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Shuffle      bool    `json:"shuffle"`
	Seed         int64   `json:"seed"`
}

// Manifest describes a saved model.
type Manifest struct {
	RunID           string               `json:"run_id"`
	Created         time.Time            `json:"created"`
	Variant         classifier.Variant   `json:"variant"`
	Hyperparameters Hyperparameters      `json:"hyperparameters"`
	Statistics      *features.Statistics `json:"statistics"`
	History         train.History        `json:"history,omitempty"`
}

// Artifact is a loaded model with its manifest.
type Artifact struct {
	Dir      string
	Manifest Manifest
	Model    classifier.Trainable
}

// Meta is the caller-provided part of the manifest.
type Meta struct {
	Hyperparameters Hyperparameters
	History         train.History
}

// Save writes m and stats to dir, creating it if needed, and returns the
// manifest it wrote.
func Save(dir string, m classifier.Trainable, stats *features.Statistics, meta Meta) (Manifest, error) {
	if err := stats.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("artifact: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("artifact: %w", err)
	}

	man := Manifest{
		RunID:           uuid.NewString(),
		Created:         time.Now().UTC(),
		Variant:         m.Variant(),
		Hyperparameters: meta.Hyperparameters,
		Statistics:      stats,
		History:         meta.History,
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("artifact: encode manifest: %w", err)
	}

	weights := classifier.ExportWeights(m.Params())
	weights.Metadata = map[string]string{"run_id": man.RunID, "variant": string(man.Variant)}
	if err := safetensors.WriteFile(filepath.Join(dir, WeightsFile), weights); err != nil {
		return Manifest{}, fmt.Errorf("artifact: %w", err)
	}
	// The manifest goes last so a directory with a manifest is always complete.
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("artifact: %w", err)
	}
	return man, nil
}

// ReadManifest reads the manifest of the artifact in dir.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, fmt.Errorf("artifact: %w: %s", ErrModelNotFound, dir)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("artifact: %w", err)
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return Manifest{}, fmt.Errorf("artifact: decode manifest: %w", err)
	}
	if man.Statistics == nil {
		return Manifest{}, fmt.Errorf("artifact: manifest in %s has no statistics", dir)
	}
	return man, nil
}

// Load rebuilds the model saved in dir. opts supplies the sentence encoder
// for variants that need one.
func Load(dir string, opts classifier.Options) (*Artifact, error) {
	man, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = man.Hyperparameters.LearningRate
	}
	m, err := classifier.New(man.Variant, man.Statistics, opts)
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	weights, err := safetensors.ReadFile(filepath.Join(dir, WeightsFile))
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if err := classifier.ImportWeights(m.Params(), weights); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	return &Artifact{Dir: dir, Manifest: man, Model: m}, nil
}

// NewRunDir returns the directory name for a run started at now, as
// root/model_<day>-<month>-<hour>-<minute>.
func NewRunDir(root string, now time.Time) string {
	return filepath.Join(root, fmt.Sprintf("%s%d-%d-%d-%d", runPrefix, now.Day(), int(now.Month()), now.Hour(), now.Minute()))
}

// Latest returns the most recently modified run directory under root that
// holds a manifest.
func Latest(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("artifact: %w: %s does not exist", ErrModelNotFound, root)
	}
	if err != nil {
		return "", fmt.Errorf("artifact: %w", err)
	}

	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), runPrefix) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = dir, info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("artifact: %w: no runs under %s", ErrModelNotFound, root)
	}
	return best, nil
}

// Resolve returns dir when set, otherwise the latest run under root.
func Resolve(dir, root string) (string, error) {
	if dir != "" {
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
			return "", fmt.Errorf("artifact: %w: %s", ErrModelNotFound, dir)
		}
		return dir, nil
	}
	return Latest(root)
}
