package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"fxlab/internal/backtest"
	"fxlab/internal/market"
	"fxlab/internal/montecarlo"
	"fxlab/internal/strategy"
	"fxlab/internal/walkforward"
)

func sampleResult() ([]market.Bar, backtest.Result) {
	closes := []float64{1.00, 0.99, 0.98, 0.97, 0.98, 0.99}
	bars := market.FromCloses(closes, 1700000000000, time.Minute.Milliseconds())
	var equity []strategy.EquityPoint
	for i, c := range closes[3:] {
		equity = append(equity, strategy.EquityPoint{
			Time:   bars[i+3].Time(),
			Index:  i + 3,
			Equity: 1000 + float64(i),
			Price:  c,
		})
	}
	return bars, backtest.Result{
		StartingCapital: 1000,
		FinalCapital:    1001.03,
		Trades:          []strategy.Trade{{PnL: 1.03, Reason: strategy.ExitRSI}},
		Equity:          equity,
	}
}

func TestWriteBacktest(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir, false, 2)
	bars, result := sampleResult()

	arts, err := r.WriteBacktest(context.Background(), "eurusd", bars, result, result.Summarize())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "eurusd_backtest.html"), arts.HTML)
	assert.Empty(t, arts.PNG)

	html, err := os.ReadFile(arts.HTML)
	require.NoError(t, err)
	assert.Contains(t, string(html), "echarts")

	raw, err := os.ReadFile(arts.Summary)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "backtest", doc["kind"])
	assert.Equal(t, "eurusd", doc["name"])
}

func TestWriteBacktestEmptyEquity(t *testing.T) {
	r := NewReporter(t.TempDir(), false, 20)
	_, err := r.WriteBacktest(context.Background(), "x", nil, backtest.Result{}, backtest.Summary{})
	assert.Error(t, err)
}

func TestWriteWalkForward(t *testing.T) {
	r := NewReporter(t.TempDir(), false, 20)
	rep := walkforward.Report{
		Windows: []walkforward.WindowResult{
			{Index: 0, Oversold: 30, Overbought: 70, TrainReturnPct: 2.0, TestReturnPct: 1.1},
			{Index: 1, Skipped: true, SkipReason: "训练段无盈利参数"},
		},
		Evaluated:    1,
		Consistency:  100,
		MeanTrainPct: 2.0,
		MeanTestPct:  1.1,
	}
	arts, err := r.WriteWalkForward(context.Background(), "eurusd", rep)
	require.NoError(t, err)
	assert.FileExists(t, arts.HTML)
	assert.FileExists(t, arts.Summary)
}

func TestWriteMonteCarloStripsTrialDetail(t *testing.T) {
	r := NewReporter(t.TempDir(), false, 20)
	rep := montecarlo.Report{
		Trials:          3,
		FinalCapitals:   []float64{900, 1000, 1100},
		MedianReturnPct: 0,
	}
	arts, err := r.WriteMonteCarlo(context.Background(), "eurusd", rep)
	require.NoError(t, err)

	raw, err := os.ReadFile(arts.Summary)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "900")
}

func TestHistogram(t *testing.T) {
	labels, counts := histogram([]float64{1, 1, 2, 3, 10}, 3)
	require.Len(t, counts, 3)
	assert.Len(t, labels, 3)
	assert.Equal(t, 4, counts[0])
	assert.Equal(t, 0, counts[1])
	assert.Equal(t, 1, counts[2])

	labels, counts = histogram([]float64{5, 5, 5}, 4)
	assert.Equal(t, []int{3}, counts)
	assert.Equal(t, []string{"5.00"}, labels)
}
