package strategy

import "time"

// ExitReason 标记一笔交易平仓的触发原因。
type ExitReason string

const (
	ExitProfitTarget ExitReason = "PROFIT_TARGET"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitRSI          ExitReason = "RSI_EXIT"
	ExitEndOfData    ExitReason = "END_OF_DATA"
	ExitUserStop     ExitReason = "USER_STOP"
)

// Position 表示当前持仓状态，零值即空仓。
// 只支持多头：外汇对的"买入基础货币"方向。
type Position struct {
	Open       bool      `json:"open"`
	EntryPrice float64   `json:"entry_price"`
	Units      float64   `json:"units"`
	EntryRSI   float64   `json:"entry_rsi"`
	EntryTime  time.Time `json:"entry_time"`
	EntryIndex int       `json:"entry_index"`
}

// Trade 是一笔已平仓交易的完整记录。
type Trade struct {
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	EntryIndex int        `json:"entry_index"`
	ExitIndex  int        `json:"exit_index"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Units      float64    `json:"units"`
	EntryRSI   float64    `json:"entry_rsi"`
	ExitRSI    float64    `json:"exit_rsi"`
	PnL        float64    `json:"pnl"`
	PnLPct     float64    `json:"pnl_pct"`
	Reason     ExitReason `json:"reason"`
}

// Holding 返回持仓时长。
func (t Trade) Holding() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// EquityPoint 是某根 K 线收盘时的账户权益（含浮动盈亏）。
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Index  int       `json:"index"`
	Equity float64   `json:"equity"`
	Price  float64   `json:"price"`
	RSI    float64   `json:"rsi"`
}
