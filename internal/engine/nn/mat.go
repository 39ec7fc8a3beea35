// Package nn implements the float32 layers the classifiers are built from:
// dense, embedding, LSTM (with backpropagation through time), bidirectional
// wrapper, dropout, softmax cross-entropy and Adam.
//
// Layers cache what they need from the last Forward call, so a layer value
// must not run Forward concurrently. Sequences are a slice of per-timestep
// matrices, each [batch x features].
package nn

import (
	"runtime"
	"sync"
)

// Mat is a row-major [Rows x Cols] matrix.
type Mat struct {
	Rows, Cols int
	Data       []float32
}

// NewMat allocates a zeroed matrix.
func NewMat(rows, cols int) *Mat {
	return &Mat{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// FromRows copies equal-length rows into a matrix.
func FromRows(rows [][]float32) *Mat {
	if len(rows) == 0 {
		return NewMat(0, 0)
	}
	m := NewMat(len(rows), len(rows[0]))
	for i, r := range rows {
		copy(m.Row(i), r)
	}
	return m
}

// Row returns row i sharing storage.
func (m *Mat) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// At returns element (i, j).
func (m *Mat) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

// Clone returns a deep copy.
func (m *Mat) Clone() *Mat {
	c := NewMat(m.Rows, m.Cols)
	copy(c.Data, m.Data)
	return c
}

// ConcatCols joins matrices with the same row count side by side.
func ConcatCols(ms ...*Mat) *Mat {
	cols := 0
	for _, m := range ms {
		cols += m.Cols
	}
	out := NewMat(ms[0].Rows, cols)
	for r := range out.Rows {
		dst := out.Row(r)
		off := 0
		for _, m := range ms {
			copy(dst[off:off+m.Cols], m.Row(r))
			off += m.Cols
		}
	}
	return out
}

// SplitCols is the inverse of ConcatCols.
func SplitCols(m *Mat, widths ...int) []*Mat {
	out := make([]*Mat, len(widths))
	for i, w := range widths {
		out[i] = NewMat(m.Rows, w)
	}
	for r := range m.Rows {
		src := m.Row(r)
		off := 0
		for i, w := range widths {
			copy(out[i].Row(r), src[off:off+w])
			off += w
		}
	}
	return out
}

// minParallelWork is the multiply-add count above which kernels fan out.
const minParallelWork = 1 << 16

// parallelFor runs fn over [0, n) in contiguous chunks, concurrently when
// work is large enough to amortize the goroutines.
func parallelFor(n, work int, fn func(lo, hi int)) {
	workers := runtime.GOMAXPROCS(0)
	if work < minParallelWork || workers < 2 || n < 2 {
		fn(0, n)
		return
	}
	workers = min(workers, n)
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(lo, hi)
		}()
	}
	wg.Wait()
}

// mulAdd computes dst += x * w, with x [rows x in] and w [in x out].
func mulAdd(dst, x, w []float32, rows, in, out int) {
	parallelFor(rows, rows*in*out, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			xr := x[r*in : (r+1)*in]
			dr := dst[r*out : (r+1)*out]
			for i, xv := range xr {
				if xv == 0 {
					continue
				}
				wr := w[i*out : (i+1)*out]
				for o, wv := range wr {
					dr[o] += xv * wv
				}
			}
		}
	})
}

// mulAddTransB computes dx += dy * w^T, with dy [rows x out] and w [in x out].
func mulAddTransB(dx, dy, w []float32, rows, in, out int) {
	parallelFor(rows, rows*in*out, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			dyr := dy[r*out : (r+1)*out]
			dxr := dx[r*in : (r+1)*in]
			for i := range in {
				wr := w[i*out : (i+1)*out]
				var s float32
				for o, g := range dyr {
					s += g * wr[o]
				}
				dxr[i] += s
			}
		}
	})
}

// mulAddTransA computes gw += x^T * dy, with x [rows x in] and dy [rows x out].
func mulAddTransA(gw, x, dy []float32, rows, in, out int) {
	parallelFor(in, rows*in*out, func(lo, hi int) {
		for r := range rows {
			xr := x[r*in : (r+1)*in]
			dyr := dy[r*out : (r+1)*out]
			for i := lo; i < hi; i++ {
				xv := xr[i]
				if xv == 0 {
					continue
				}
				gr := gw[i*out : (i+1)*out]
				for o, g := range dyr {
					gr[o] += xv * g
				}
			}
		}
	})
}

// addBias adds b to every row of m.
func addBias(m *Mat, b []float32) {
	for r := range m.Rows {
		row := m.Row(r)
		for j, v := range b {
			row[j] += v
		}
	}
}

// sumRows accumulates the column sums of m into g.
func sumRows(g []float32, m *Mat) {
	for r := range m.Rows {
		for j, v := range m.Row(r) {
			g[j] += v
		}
	}
}
