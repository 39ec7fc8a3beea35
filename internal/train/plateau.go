package train

import (
	"context"
	"log/slog"
	"math"

	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/logging"
)

// PlateauConfig tunes ReduceLROnPlateau.
type PlateauConfig struct {
	Monitor  string  // metric name; loss-like metrics are minimized, accuracy maximized
	Factor   float64 // multiplier applied to the learning rate
	Patience int     // epochs without improvement before reducing
	MinDelta float64 // smallest change that counts as improvement
	Cooldown int     // epochs to wait after a reduction
	MinLR    float64
}

// DefaultPlateau monitors training loss with factor 0.1, patience 3,
// min_delta 1e-4, no cooldown and a floor of 1e-5.
func DefaultPlateau() PlateauConfig {
	return PlateauConfig{
		Monitor:  MetricLoss,
		Factor:   0.1,
		Patience: 3,
		MinDelta: 1e-4,
		MinLR:    1e-5,
	}
}

// ReduceLROnPlateau lowers the learning rate when the monitored metric stops
// improving.
type ReduceLROnPlateau struct {
	cfg      PlateauConfig
	maximize bool
	best     float64
	wait     int
	cooldown int
}

// NewReduceLROnPlateau creates the callback.
func NewReduceLROnPlateau(cfg PlateauConfig) *ReduceLROnPlateau {
	r := &ReduceLROnPlateau{
		cfg:      cfg,
		maximize: cfg.Monitor == MetricAccuracy || cfg.Monitor == MetricValAccuracy,
	}
	r.best = math.Inf(1)
	if r.maximize {
		r.best = math.Inf(-1)
	}
	return r
}

func (r *ReduceLROnPlateau) improved(v float64) bool {
	if r.maximize {
		return v > r.best+r.cfg.MinDelta
	}
	return v < r.best-r.cfg.MinDelta
}

// OnEpochEnd implements Callback.
func (r *ReduceLROnPlateau) OnEpochEnd(_ context.Context, m classifier.Trainable, e Epoch) error {
	v, err := e.Metric(r.cfg.Monitor)
	if err != nil {
		return err
	}

	if r.cooldown > 0 {
		r.cooldown--
		r.wait = 0
	}
	if r.improved(v) {
		r.best = v
		r.wait = 0
		return nil
	}
	if r.cooldown > 0 {
		return nil
	}

	r.wait++
	if r.wait < r.cfg.Patience {
		return nil
	}
	old := m.LearningRate()
	if old > r.cfg.MinLR {
		lr := math.Max(old*r.cfg.Factor, r.cfg.MinLR)
		m.SetLearningRate(lr)
		slog.Info("reducing learning rate",
			logging.KeyEpoch, e.Epoch,
			logging.KeyLR, lr,
			"monitor", r.cfg.Monitor,
		)
		r.cooldown = r.cfg.Cooldown
		r.wait = 0
	}
	return nil
}
