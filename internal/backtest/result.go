package backtest

import (
	"time"

	"fxlab/internal/strategy"
)

// Result 是一次模拟的原始产出：成交明细 + 权益曲线 + 期末资金。
type Result struct {
	StartingCapital float64                `json:"starting_capital"`
	FinalCapital    float64                `json:"final_capital"`
	Trades          []strategy.Trade       `json:"trades"`
	Equity          []strategy.EquityPoint `json:"equity"`
}

// Summary 汇总收益与风控指标，供展示和持久化。
type Summary struct {
	Trades            int                         `json:"trades"`
	Wins              int                         `json:"wins"`
	Losses            int                         `json:"losses"`
	WinRate           float64                     `json:"win_rate"`
	TotalProfit       float64                     `json:"total_profit"`
	AvgProfit         float64                     `json:"avg_profit"`
	ReturnPct         float64                     `json:"return_pct"`
	BestTrade         float64                     `json:"best_trade"`
	WorstTrade        float64                     `json:"worst_trade"`
	MaxDrawdownPct    float64                     `json:"max_drawdown_pct"`
	EquityPeak        float64                     `json:"equity_peak"`
	EquityValley      float64                     `json:"equity_valley"`
	AvgHoldingMinutes float64                     `json:"avg_holding_minutes"`
	ExitReasons       map[strategy.ExitReason]int `json:"exit_reasons"`
	FinalCapital      float64                     `json:"final_capital"`
}

// Summarize 从原始结果计算汇总指标。无成交时各项为零值，win_rate 为 0。
func (r Result) Summarize() Summary {
	s := Summary{
		FinalCapital: r.FinalCapital,
		ExitReasons:  make(map[strategy.ExitReason]int),
	}
	if r.StartingCapital > 0 {
		s.ReturnPct = (r.FinalCapital - r.StartingCapital) / r.StartingCapital * 100
	}

	var holding time.Duration
	for i, t := range r.Trades {
		s.Trades++
		s.TotalProfit += t.PnL
		holding += t.Holding()
		s.ExitReasons[t.Reason]++
		if t.PnL > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
		if i == 0 || t.PnL > s.BestTrade {
			s.BestTrade = t.PnL
		}
		if i == 0 || t.PnL < s.WorstTrade {
			s.WorstTrade = t.PnL
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
		s.AvgProfit = s.TotalProfit / float64(s.Trades)
		s.AvgHoldingMinutes = holding.Minutes() / float64(s.Trades)
	}

	peak, valley, maxDD := equityDrawdown(r.Equity)
	s.EquityPeak = peak
	s.EquityValley = valley
	s.MaxDrawdownPct = maxDD
	return s
}

// equityDrawdown 扫描权益曲线，返回峰值、谷值与最大回撤百分比。
func equityDrawdown(points []strategy.EquityPoint) (peak, valley, maxDD float64) {
	if len(points) == 0 {
		return 0, 0, 0
	}
	peak = points[0].Equity
	valley = points[0].Equity
	runningPeak := points[0].Equity
	for _, pt := range points {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if pt.Equity < valley {
			valley = pt.Equity
		}
		if pt.Equity > runningPeak {
			runningPeak = pt.Equity
		}
		if runningPeak > 0 {
			dd := (runningPeak - pt.Equity) / runningPeak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return peak, valley, maxDD
}
