package features

import (
	"fmt"

	"github.com/crimson-sun/skimmer/internal/model"
)

// Bundle holds the parallel feature streams of a set of records. Index i of
// every slice belongs to the same record.
type Bundle struct {
	LineNumbers [][]float32 // one-hot, width LineNumberDepth
	TotalLines  [][]float32 // one-hot, width TotalLinesDepth
	Tokens      []string    // lowercased sentence text
	Chars       []string    // character-split text
	Labels      [][]float32 // one-hot targets; nil for unlabeled records
}

// Len returns the number of records in the bundle.
func (b Bundle) Len() int {
	return len(b.Tokens)
}

// Aligned reports whether every stream has the same length. Labels may be
// absent.
func (b Bundle) Aligned() bool {
	n := len(b.Tokens)
	if len(b.Chars) != n || len(b.LineNumbers) != n || len(b.TotalLines) != n {
		return false
	}
	return b.Labels == nil || len(b.Labels) == n
}

// Slice returns the records in [lo, hi) as a bundle sharing storage.
func (b Bundle) Slice(lo, hi int) Bundle {
	out := Bundle{
		LineNumbers: b.LineNumbers[lo:hi],
		TotalLines:  b.TotalLines[lo:hi],
		Tokens:      b.Tokens[lo:hi],
		Chars:       b.Chars[lo:hi],
	}
	if b.Labels != nil {
		out.Labels = b.Labels[lo:hi]
	}
	return out
}

// Gather returns the records at idx, in idx order.
func (b Bundle) Gather(idx []int) Bundle {
	out := Bundle{
		LineNumbers: make([][]float32, len(idx)),
		TotalLines:  make([][]float32, len(idx)),
		Tokens:      make([]string, len(idx)),
		Chars:       make([]string, len(idx)),
	}
	if b.Labels != nil {
		out.Labels = make([][]float32, len(idx))
	}
	for j, i := range idx {
		out.LineNumbers[j] = b.LineNumbers[i]
		out.TotalLines[j] = b.TotalLines[i]
		out.Tokens[j] = b.Tokens[i]
		out.Chars[j] = b.Chars[i]
		if b.Labels != nil {
			out.Labels[j] = b.Labels[i]
		}
	}
	return out
}

// Encoder derives feature bundles from records using frozen statistics. It
// holds no mutable state and is safe for concurrent use.
type Encoder struct {
	stats *Statistics
}

// NewEncoder creates an Encoder over stats.
func NewEncoder(stats *Statistics) *Encoder {
	return &Encoder{stats: stats}
}

// Statistics returns the frozen statistics the encoder uses.
func (e *Encoder) Statistics() *Statistics {
	return e.stats
}

// Encode derives the feature streams of records. Labels are encoded only when
// every record carries a target.
func (e *Encoder) Encode(records []model.LineRecord) (Bundle, error) {
	n := len(records)
	b := Bundle{
		LineNumbers: make([][]float32, n),
		TotalLines:  make([][]float32, n),
		Tokens:      make([]string, n),
		Chars:       make([]string, n),
	}

	labeled := n > 0
	for _, r := range records {
		if !r.Labeled() {
			labeled = false
			break
		}
	}
	if labeled {
		b.Labels = make([][]float32, n)
	}

	for i, r := range records {
		var err error
		b.LineNumbers[i], err = OneHot("line_number", r.LineNumber, e.stats.LineNumberDepth, e.stats.PositionPolicy)
		if err != nil {
			return Bundle{}, fmt.Errorf("record %d: %w", i, err)
		}
		b.TotalLines[i], err = OneHot("total_lines", r.TotalLines, e.stats.TotalLinesDepth, e.stats.PositionPolicy)
		if err != nil {
			return Bundle{}, fmt.Errorf("record %d: %w", i, err)
		}
		b.Tokens[i] = r.Text
		b.Chars[i] = SplitChars(r.Text)
		if labeled {
			b.Labels[i], err = e.stats.Labels.Encode(r.Target)
			if err != nil {
				return Bundle{}, fmt.Errorf("record %d: %w", i, err)
			}
		}
	}
	return b, nil
}
