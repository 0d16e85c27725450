package features

import (
	"math"
	"time"
)

// Frame is a column-major table aligned to the input timestamps.
// It is immutable once returned by the engine.
type Frame struct {
	dates       []time.Time
	names       []string
	index       map[string]int
	cols        [][]float64
	unavailable map[string]bool
	engineered  bool
}

func newFrame(dates []time.Time) *Frame {
	return &Frame{
		dates:       dates,
		index:       make(map[string]int),
		unavailable: make(map[string]bool),
	}
}

func (f *Frame) add(name string, vals []float64) {
	if i, ok := f.index[name]; ok {
		f.cols[i] = vals
		return
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.cols = append(f.cols, vals)
}

// Len is the number of rows.
func (f *Frame) Len() int { return len(f.dates) }

// Dates returns the row timestamps.
func (f *Frame) Dates() []time.Time { return f.dates }

// Columns returns the column names in frame order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Column returns the backing slice for name. Callers must not modify it.
func (f *Frame) Column(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Has reports whether the frame carries name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Value returns cell (name, row), NaN when the column is absent or unavailable.
func (f *Frame) Value(name string, row int) float64 {
	i, ok := f.index[name]
	if !ok || f.unavailable[name] || row < 0 || row >= len(f.dates) {
		return math.NaN()
	}
	return f.cols[i][row]
}

// Row gathers the given columns for one row using Value semantics.
func (f *Frame) Row(row int, names []string) []float64 {
	out := make([]float64, len(names))
	for j, n := range names {
		out[j] = f.Value(n, row)
	}
	return out
}

// Engineered is false when the input was too short and only OHLCV columns are present.
func (f *Frame) Engineered() bool { return f.engineered }

// Unavailable lists columns with no defined value anywhere in the series, in frame order.
// Their cells are zero-filled and must be treated as undefined.
func (f *Frame) Unavailable() []string {
	var out []string
	for _, n := range f.names {
		if f.unavailable[n] {
			out = append(out, n)
		}
	}
	return out
}

// IsUnavailable reports whether name is listed by Unavailable.
func (f *Frame) IsUnavailable(name string) bool { return f.unavailable[name] }
