// Package dedup drops abstracts that were already classified in the same
// run. PubMed ID lists and concatenated exports routinely repeat records.
package dedup

import (
	"strings"
	"sync"

	"github.com/crimson-sun/skimmer/internal/model"
)

// Deduplicator remembers the abstracts it has seen. Two abstracts are
// duplicates when their texts match after case folding and whitespace
// collapsing; IDs are not compared because file sources number abstracts by
// position.
type Deduplicator struct {
	mu      sync.Mutex
	seen    map[string]string // key -> ID of first occurrence
	dropped int
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{seen: make(map[string]string)}
}

// Key is the normalized text two duplicates share.
func Key(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Seen records a and reports whether an equal abstract came before it,
// returning the ID of that first occurrence.
func (d *Deduplicator) Seen(a model.Abstract) (firstID string, dup bool) {
	k := Key(a.Text)
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.seen[k]; ok {
		d.dropped++
		return id, true
	}
	d.seen[k] = a.ID
	return "", false
}

// DeduplicateBatch returns the abstracts not seen before, in input order.
func (d *Deduplicator) DeduplicateBatch(abstracts []model.Abstract) []model.Abstract {
	if len(abstracts) == 0 {
		return nil
	}
	out := make([]model.Abstract, 0, len(abstracts))
	for _, a := range abstracts {
		if _, dup := d.Seen(a); !dup {
			out = append(out, a)
		}
	}
	return out
}

// Dropped returns how many duplicates were rejected so far.
func (d *Deduplicator) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
