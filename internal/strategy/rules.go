package strategy

import "time"

// ShouldEnter 判断是否满足开仓条件：空仓且 RSI 跌到超卖线及以下。
func (p Params) ShouldEnter(pos Position, rsi float64) bool {
	return !pos.Open && rsi <= p.RSIOversold
}

// ShouldExit 按固定优先级判断是否平仓：止盈 > 止损 > RSI 回归。
// 同一根 K 线同时满足多个条件时只记录优先级最高的原因。
func (p Params) ShouldExit(pos Position, price, rsi float64) (ExitReason, bool) {
	if !pos.Open || pos.EntryPrice <= 0 {
		return "", false
	}
	change := (price - pos.EntryPrice) / pos.EntryPrice
	switch {
	case change >= p.ProfitTarget:
		return ExitProfitTarget, true
	case change <= -p.StopLoss:
		return ExitStopLoss, true
	case rsi >= p.RSIOverbought:
		return ExitRSI, true
	}
	return "", false
}

// OpenPosition 按当前资金与单笔风险比例开仓。
// 名义头寸 = capital * risk_per_trade，单位数 = 名义头寸 / 入场价。
// 资金不在开仓时扣减，持仓市值变化通过 Equity 体现。
func (p Params) OpenPosition(capital, price, rsi float64, ts time.Time, index int) Position {
	notional := capital * p.RiskPerTrade
	return Position{
		Open:       true,
		EntryPrice: price,
		Units:      notional / price,
		EntryRSI:   rsi,
		EntryTime:  ts,
		EntryIndex: index,
	}
}

// ClosePosition 结算一笔持仓，返回交易记录与结算后的资金。
func ClosePosition(pos Position, capital, price, rsi float64, ts time.Time, index int, reason ExitReason) (Trade, float64) {
	pnl := pos.Units * (price - pos.EntryPrice)
	trade := Trade{
		EntryTime:  pos.EntryTime,
		ExitTime:   ts,
		EntryIndex: pos.EntryIndex,
		ExitIndex:  index,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Units:      pos.Units,
		EntryRSI:   pos.EntryRSI,
		ExitRSI:    rsi,
		PnL:        pnl,
		PnLPct:     (price - pos.EntryPrice) / pos.EntryPrice,
		Reason:     reason,
	}
	return trade, capital + pnl
}

// Equity 返回当前权益：资金 + 持仓浮动盈亏。空仓时即资金本身。
func Equity(pos Position, capital, price float64) float64 {
	if !pos.Open {
		return capital
	}
	return capital + pos.Units*(price-pos.EntryPrice)
}
