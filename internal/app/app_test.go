package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxlab/internal/backtest"
	"fxlab/internal/config"
	"fxlab/internal/feed"
	"fxlab/internal/market"
)

// cycleSource 回放固定的下跌-回升循环，策略在每个循环里完成一次往返。
type cycleSource struct{ bars []market.Bar }

func (c *cycleSource) Name() string { return "cycle" }

func (c *cycleSource) FetchBars(_ context.Context, req feed.Request) ([]market.Bar, error) {
	bars := c.bars
	if req.Limit > 0 && len(bars) > req.Limit {
		bars = bars[len(bars)-req.Limit:]
	}
	return bars, nil
}

func (c *cycleSource) LatestPrice(context.Context, string) (float64, error) {
	return c.bars[len(c.bars)-1].Close, nil
}

func cycleBars(cycles int) []market.Bar {
	pattern := []float64{1.00, 0.99, 0.98, 0.97, 0.98, 0.99}
	var closes []float64
	for i := 0; i < cycles; i++ {
		closes = append(closes, pattern...)
	}
	return market.FromCloses(closes, 1700000000000, 60_000)
}

func testApp(t *testing.T, bars []market.Bar) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.App.DataDir = dir
	cfg.Paper.SessionDB = filepath.Join(dir, "paper.db")
	cfg.Report.OutDir = filepath.Join(dir, "reports")
	cfg.Report.RenderPNG = false
	cfg.WalkForward.GridPath = ""
	cfg.Strategy.RSIPeriod = 2
	cfg.Feed.Symbol = "EUR/USD"
	cfg.Feed.Timeframe = "1m"
	cfg.Feed.Bars = len(bars)
	cfg.MonteCarlo.Trials = 50

	a, err := NewBuilder(cfg, WithSource(func(config.FeedConfig) (feed.Source, error) {
		return &cycleSource{bars: bars}, nil
	})).Build()
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestRunBacktestEndToEnd(t *testing.T) {
	a := testApp(t, cycleBars(4))
	ctx := context.Background()

	run, err := a.RunBacktest(ctx, BacktestRequest{})
	require.NoError(t, err)
	assert.Equal(t, backtest.RunStatusDone, run.Status)
	assert.Equal(t, "EUR/USD", run.Symbol)
	assert.NotZero(t, run.Summary.Trades)
	assert.Greater(t, run.FinalCapital, 0.0)

	stored, err := a.RunStore.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, backtest.RunStatusDone, stored.Status)
	assert.Equal(t, run.Summary.Trades, stored.Summary.Trades)

	trades, err := a.RunStore.ListTrades(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, trades, run.Summary.Trades)

	equity, err := a.RunStore.ListEquity(ctx, run.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, equity)

	assert.FileExists(t, filepath.Join(a.Cfg.Report.OutDir, shortID(run.ID)+"_backtest.html"))
}

func TestRunBacktestRejectsBadParams(t *testing.T) {
	a := testApp(t, cycleBars(4))
	bad := a.Cfg.Strategy.Params()
	bad.RSIOversold = 80 // >= overbought
	_, err := a.RunBacktest(context.Background(), BacktestRequest{Params: &bad})
	assert.Error(t, err)
}

func TestRunWalkForwardEndToEnd(t *testing.T) {
	a := testApp(t, cycleBars(8))
	a.Cfg.WalkForward.Windows = 2

	rep, err := a.RunWalkForward(context.Background(), WalkForwardRequest{})
	require.NoError(t, err)
	assert.Len(t, rep.Windows, 2)
	assert.NotZero(t, rep.Evaluated)
}

func TestRunMonteCarloFromRun(t *testing.T) {
	a := testApp(t, cycleBars(4))
	ctx := context.Background()

	run, err := a.RunBacktest(ctx, BacktestRequest{})
	require.NoError(t, err)
	require.NotZero(t, run.Summary.Trades)

	rep, err := a.RunMonteCarlo(ctx, MonteCarloRequest{RunID: run.ID})
	require.NoError(t, err)
	assert.Equal(t, 50, rep.Trials)
	assert.Len(t, rep.FinalCapitals, 50)
}

func TestRunMonteCarloRequiresInput(t *testing.T) {
	a := testApp(t, cycleBars(4))
	_, err := a.RunMonteCarlo(context.Background(), MonteCarloRequest{})
	assert.Error(t, err)
}

func TestBuildRejectsUnknownSource(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	cfg.App.DataDir = dir
	cfg.Paper.SessionDB = filepath.Join(dir, "paper.db")
	cfg.Feed.Source = "bloomberg"
	_, err := NewBuilder(cfg).Build()
	assert.Error(t, err)
}
