package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxlab/internal/market"
	"fxlab/internal/strategy"
)

// 测试统一用 period=2 方便手工演算：RSI 只看最近 3 个收盘价。
func testParams() strategy.Params {
	p := strategy.DefaultParams()
	p.RSIPeriod = 2
	return p
}

func newTestSimulator(t *testing.T, p strategy.Params) *Simulator {
	t.Helper()
	sim, err := NewSimulator(p)
	require.NoError(t, err)
	return sim
}

func barsFrom(closes ...float64) []market.Bar {
	return market.FromCloses(closes, 1700000000000, 60_000)
}

func TestNewSimulatorRejectsInvalidParams(t *testing.T) {
	p := strategy.DefaultParams()
	p.RSIOversold = 80
	_, err := NewSimulator(p)
	assert.Error(t, err)
}

func TestSimulatorEmptyAndShortSeries(t *testing.T) {
	sim := newTestSimulator(t, testParams())

	res := sim.Run(nil)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.Equity)
	assert.Equal(t, 1000.0, res.FinalCapital)

	// period+1 根仍不够：首个决策位在 period+1
	res = sim.Run(barsFrom(1.0, 0.99, 0.98))
	assert.Empty(t, res.Trades)
	assert.Equal(t, 1000.0, res.FinalCapital)
}

func TestSimulatorRSIExitRoundTrip(t *testing.T) {
	sim := newTestSimulator(t, testParams())
	// i=3 连跌 → RSI=0 开仓 @0.97；i=4 震荡持有；i=5 连涨 → RSI=100 平仓 @0.99
	res := sim.Run(barsFrom(1.00, 0.99, 0.98, 0.97, 0.98, 0.99))

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, strategy.ExitRSI, trade.Reason)
	assert.Equal(t, 3, trade.EntryIndex)
	assert.Equal(t, 5, trade.ExitIndex)
	assert.Equal(t, 0.97, trade.EntryPrice)
	assert.Equal(t, 0.99, trade.ExitPrice)

	// 名义头寸 1000*0.05=50，units=50/0.97，pnl=units*0.02
	units := 50.0 / 0.97
	assert.InDelta(t, units, trade.Units, 1e-9)
	assert.InDelta(t, units*0.02, trade.PnL, 1e-9)
	assert.InDelta(t, 1000+units*0.02, res.FinalCapital, 1e-9)

	// 决策位 i=3..5 共 3 个权益点，i=4 含浮盈
	require.Len(t, res.Equity, 3)
	assert.InDelta(t, 1000.0, res.Equity[0].Equity, 1e-9)
	assert.InDelta(t, 1000+units*0.01, res.Equity[1].Equity, 1e-9)
}

func TestSimulatorProfitTargetBeatsRSIExit(t *testing.T) {
	sim := newTestSimulator(t, testParams())
	// i=4 涨到 1.07：涨幅 10.3% 同时 RSI 也超买，原因必须记止盈
	res := sim.Run(barsFrom(1.00, 0.99, 0.98, 0.97, 1.07))

	require.Len(t, res.Trades, 1)
	assert.Equal(t, strategy.ExitProfitTarget, res.Trades[0].Reason)
	assert.Equal(t, 1.07, res.Trades[0].ExitPrice)
}

func TestSimulatorStopLossAndNoSameBarReentry(t *testing.T) {
	sim := newTestSimulator(t, testParams())
	// i=3 开仓 @0.97；i=4 跌到 0.94 触发止损，该 bar RSI=0 但不允许当根再入场；
	// i=5 仍超卖 → 新仓位在第 5 根建立
	res := sim.Run(barsFrom(1.00, 0.99, 0.98, 0.97, 0.94, 0.93))

	require.Len(t, res.Trades, 2)
	first := res.Trades[0]
	assert.Equal(t, strategy.ExitStopLoss, first.Reason)
	assert.Equal(t, 4, first.ExitIndex)
	assert.Less(t, first.PnL, 0.0)

	second := res.Trades[1]
	assert.Equal(t, 5, second.EntryIndex)
	assert.Equal(t, strategy.ExitEndOfData, second.Reason)
	// 止损后的资金才参与第二笔开仓
	capitalAfterFirst := 1000.0 + first.PnL
	assert.InDelta(t, capitalAfterFirst*0.05/0.93, second.Units, 1e-9)
}

func TestSimulatorForcedCloseAtEndOfData(t *testing.T) {
	sim := newTestSimulator(t, testParams())
	// 开仓后数据结束前价格小幅回升但未触发任何离场条件
	res := sim.Run(barsFrom(1.00, 0.99, 0.98, 0.97, 0.975))

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, strategy.ExitEndOfData, trade.Reason)
	assert.Equal(t, 0.975, trade.ExitPrice)
	assert.Equal(t, 4, trade.ExitIndex)
}

func TestSimulatorNoSignalsNoTrades(t *testing.T) {
	sim := newTestSimulator(t, testParams())
	// 温和震荡，RSI 始终在 30~70 之间
	res := sim.Run(barsFrom(1.00, 1.001, 1.000, 1.001, 1.000, 1.001))
	assert.Empty(t, res.Trades)
	assert.Equal(t, 1000.0, res.FinalCapital)
	assert.NotEmpty(t, res.Equity)
}

func TestSummarize(t *testing.T) {
	res := Result{
		StartingCapital: 1000,
		FinalCapital:    1010,
		Trades: []strategy.Trade{
			{PnL: 15, PnLPct: 0.05, Reason: strategy.ExitProfitTarget},
			{PnL: -5, PnLPct: -0.02, Reason: strategy.ExitStopLoss},
		},
		Equity: []strategy.EquityPoint{
			{Equity: 1000}, {Equity: 1020}, {Equity: 969}, {Equity: 1010},
		},
	}
	s := res.Summarize()
	assert.Equal(t, 2, s.Trades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	assert.InDelta(t, 10.0, s.TotalProfit, 1e-9)
	assert.InDelta(t, 5.0, s.AvgProfit, 1e-9)
	assert.InDelta(t, 1.0, s.ReturnPct, 1e-9)
	assert.Equal(t, 15.0, s.BestTrade)
	assert.Equal(t, -5.0, s.WorstTrade)
	// 回撤基于滚动峰值 1020 → 969
	assert.InDelta(t, 5.0, s.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 1020.0, s.EquityPeak)
	assert.Equal(t, 969.0, s.EquityValley)
	assert.Equal(t, 1, s.ExitReasons[strategy.ExitProfitTarget])
}

func TestSummarizeEmptyResult(t *testing.T) {
	s := Result{StartingCapital: 1000, FinalCapital: 1000}.Summarize()
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.ReturnPct)
	assert.Zero(t, s.MaxDrawdownPct)
}
