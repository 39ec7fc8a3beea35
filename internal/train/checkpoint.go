package train

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.etcd.io/bbolt"

	"github.com/crimson-sun/skimmer/internal/engine/classifier"
	"github.com/crimson-sun/skimmer/internal/logging"
	"github.com/crimson-sun/skimmer/internal/safetensors"
)

var (
	weightsBucket = []byte("BestWeights")
	epochsBucket  = []byte("Epochs")
	bestKey       = []byte("best")
)

// ErrNoCheckpoint is returned by Best before any checkpoint was written.
var ErrNoCheckpoint = errors.New("no checkpoint saved")

// Checkpointer keeps the best weights seen so far in a bbolt database. Only
// an improvement of the monitored metric overwrites the stored weights.
type Checkpointer struct {
	db      *bbolt.DB
	monitor string
	best    float64
}

// OpenCheckpointer opens (or creates) the checkpoint database at path. The
// monitored metric is maximized.
func OpenCheckpointer(path, monitor string) (*Checkpointer, error) {
	if _, err := (Epoch{}).Metric(monitor); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(weightsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(epochsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &Checkpointer{db: db, monitor: monitor, best: math.Inf(-1)}, nil
}

// Close closes the underlying database.
func (c *Checkpointer) Close() error {
	return c.db.Close()
}

// OnEpochEnd implements Callback.
func (c *Checkpointer) OnEpochEnd(_ context.Context, m classifier.Trainable, e Epoch) error {
	v, err := e.Metric(c.monitor)
	if err != nil {
		return err
	}
	if v <= c.best {
		return nil
	}

	var buf bytes.Buffer
	if err := safetensors.Write(&buf, classifier.ExportWeights(m.Params())); err != nil {
		return err
	}
	meta, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal epoch: %w", err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(weightsBucket).Put(bestKey, buf.Bytes()); err != nil {
			return err
		}
		return tx.Bucket(epochsBucket).Put(bestKey, meta)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("checkpoint saved",
		logging.KeyEpoch, e.Epoch,
		"monitor", c.monitor,
		"previous", c.best,
		"current", v,
	)
	c.best = v
	return nil
}

// Best returns the stored epoch and its weights.
func (c *Checkpointer) Best() (Epoch, *safetensors.File, error) {
	var (
		e    Epoch
		data []byte
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		w := tx.Bucket(weightsBucket).Get(bestKey)
		meta := tx.Bucket(epochsBucket).Get(bestKey)
		if w == nil || meta == nil {
			return ErrNoCheckpoint
		}
		data = bytes.Clone(w)
		return json.Unmarshal(meta, &e)
	})
	if err != nil {
		return Epoch{}, nil, err
	}
	f, err := safetensors.Parse(data)
	if err != nil {
		return Epoch{}, nil, err
	}
	return e, f, nil
}

// Restore loads the best stored weights into m.
func (c *Checkpointer) Restore(m classifier.Trainable) (Epoch, error) {
	e, f, err := c.Best()
	if err != nil {
		return Epoch{}, err
	}
	return e, classifier.ImportWeights(m.Params(), f)
}
