package repository

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPred/internal/domain/models"
)

func TestReadCandlesCSV(t *testing.T) {
	in := `Date,Open,High,Low,Close,Adj Close,Volume
2025-01-03,10,11,9,10.5,10.5,1000
2025-01-02,9.5,10.2,9.1,n/a,9.9,"1,200"
`
	cs, err := ReadCandlesCSV(strings.NewReader(in), "AAA")
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), cs[0].Date, "sorted ascending")
	assert.True(t, math.IsNaN(cs[0].Close))
	assert.Equal(t, 1200.0, cs[0].Volume)
	assert.Equal(t, "AAA", cs[1].Symbol)
	assert.Equal(t, 10.5, cs[1].Close)
}

func TestReadCandlesCSVBadInput(t *testing.T) {
	_, err := ReadCandlesCSV(strings.NewReader("date,open,high,low,close,volume\nyesterday,1,1,1,1,1\n"), "AAA")
	assert.ErrorIs(t, err, models.ErrUpstreamData)

	_, err = ReadCandlesCSV(strings.NewReader("date,open,close\n2025-01-02,1,1\n"), "AAA")
	assert.ErrorIs(t, err, models.ErrUpstreamData)

	_, err = ReadCandlesCSV(strings.NewReader(""), "AAA")
	assert.ErrorIs(t, err, models.ErrUpstreamData)
}

func TestCSVCandleStoreRoundTrip(t *testing.T) {
	s := NewCSVCandleStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	var cs []models.Candle
	for i := 0; i < 5; i++ {
		cs = append(cs, models.Candle{Date: day.AddDate(0, 0, i), Symbol: "ZZZ", Open: 1, High: 2, Low: 0.5, Close: float64(i), Volume: 10})
	}
	require.NoError(t, s.SaveCandles(ctx, cs))

	syms, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZZ"}, syms)

	last, err := s.LatestCandles(ctx, "ZZZ", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, 4.0, last[1].Close)

	mid, err := s.Candles(ctx, "ZZZ", day.AddDate(0, 0, 1), day.AddDate(0, 0, 3), 0)
	require.NoError(t, err)
	assert.Len(t, mid, 3)

	_, err = s.LatestCandles(ctx, "NOPE", 10)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestCSVCandleStoreMergesByDate(t *testing.T) {
	s := NewCSVCandleStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	first := []models.Candle{
		{Date: day, Symbol: "ZZZ", Open: 1, High: 2, Low: 0.5, Close: 1, Volume: 10},
		{Date: day.AddDate(0, 0, 1), Symbol: "ZZZ", Open: 1, High: 2, Low: 0.5, Close: 2, Volume: 10},
	}
	require.NoError(t, s.SaveCandles(ctx, first))

	second := []models.Candle{
		{Date: day.AddDate(0, 0, 2), Symbol: "ZZZ", Open: 1, High: 2, Low: 0.5, Close: 3, Volume: 10},
		{Date: day.AddDate(0, 0, 1), Symbol: "ZZZ", Open: 1, High: 2, Low: 0.5, Close: 2.5, Volume: 10},
	}
	require.NoError(t, s.SaveCandles(ctx, second))

	all, err := s.LatestCandles(ctx, "ZZZ", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []float64{1, 2.5, 3}, []float64{all[0].Close, all[1].Close, all[2].Close})
}
