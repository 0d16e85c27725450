package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
)

var dateLayouts = []string{time.DateOnly, "2006/01/02", "01/02/2006", time.RFC3339}

// ReadCandlesCSV parses a header-led CSV of daily bars. Columns are matched by
// name (date, open, high, low, close, volume, optional symbol). Malformed
// numeric cells become NaN; a malformed date fails with ErrUpstreamData.
func ReadCandlesCSV(r io.Reader, symbol string) ([]models.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", models.ErrUpstreamData, err)
	}
	idx := make(map[string]int, len(head))
	for i, h := range head {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", models.ErrUpstreamData, c)
		}
	}

	var out []models.Candle
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrUpstreamData, line, err)
		}
		cell := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		d, err := parseDate(cell("date"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrUpstreamData, line, err)
		}
		sym := symbol
		if s := cell("symbol"); s != "" {
			sym = s
		}
		out = append(out, models.Candle{
			Date:   d,
			Symbol: sym,
			Open:   parseNumber(cell("open")),
			High:   parseNumber(cell("high")),
			Low:    parseNumber(cell("low")),
			Close:  parseNumber(cell("close")),
			Volume: parseNumber(cell("volume")),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// WriteCandlesCSV writes candles in the layout ReadCandlesCSV accepts.
func WriteCandlesCSV(w io.Writer, candles []models.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "symbol", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, c := range candles {
		rec := []string{c.Date.Format(time.DateOnly), c.Symbol, f(c.Open), f(c.High), f(c.Low), f(c.Close), f(c.Volume)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVCandleStore serves candles from <dir>/<SYMBOL>.csv files for offline runs.
type CSVCandleStore struct {
	dir string
}

var _ domrepo.CandleStore = (*CSVCandleStore)(nil)

func NewCSVCandleStore(dir string) *CSVCandleStore { return &CSVCandleStore{dir: dir} }

func (s *CSVCandleStore) path(symbol string) string {
	return filepath.Join(s.dir, sanitize(symbol)+".csv")
}

func (s *CSVCandleStore) load(symbol string) ([]models.Candle, error) {
	f, err := os.Open(s.path(symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no data for %s", models.ErrInsufficientData, symbol)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCandlesCSV(f, symbol)
}

func (s *CSVCandleStore) LatestCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.load(symbol)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (s *CSVCandleStore) Candles(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.load(symbol)
	if err != nil {
		return nil, err
	}
	var out []models.Candle
	for _, c := range all {
		if (!from.IsZero() && c.Date.Before(from)) || (!to.IsZero() && c.Date.After(to)) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SaveCandles merges candles into each symbol's file; a row for an existing
// date replaces the stored one.
func (s *CSVCandleStore) SaveCandles(ctx context.Context, candles []models.Candle) error {
	bySymbol := make(map[string][]models.Candle)
	for _, c := range candles {
		bySymbol[c.Symbol] = append(bySymbol[c.Symbol], c)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	for sym, cs := range bySymbol {
		if err := ctx.Err(); err != nil {
			return err
		}
		existing, err := s.load(sym)
		if err != nil && !errors.Is(err, models.ErrInsufficientData) {
			return err
		}
		cs = mergeCandles(existing, cs)
		var b strings.Builder
		if err := WriteCandlesCSV(&b, cs); err != nil {
			return fmt.Errorf("encode %s: %w", sym, err)
		}
		if err := writeAtomic(s.path(sym), []byte(b.String())); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVCandleStore) Symbols(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(out)
	return out, nil
}

func mergeCandles(old, fresh []models.Candle) []models.Candle {
	byDay := make(map[string]models.Candle, len(old)+len(fresh))
	for _, c := range old {
		byDay[c.Date.Format(time.DateOnly)] = c
	}
	for _, c := range fresh {
		byDay[c.Date.Format(time.DateOnly)] = c
	}
	out := make([]models.Candle, 0, len(byDay))
	for _, c := range byDay {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
