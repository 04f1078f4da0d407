// Package backtest 实现 RSI 策略的历史回放模拟器与结果持久化。
package backtest

import (
	"fxlab/internal/indicator"
	"fxlab/internal/market"
	"fxlab/internal/strategy"
)

// Simulator 在一段历史 K 线上逐根回放策略。
// 纯内存计算，不做任何 IO；同一输入必然产出同一结果。
type Simulator struct {
	params strategy.Params
}

func NewSimulator(params strategy.Params) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{params: params}, nil
}

func (s *Simulator) Params() strategy.Params { return s.params }

// Run 对整段 K 线执行模拟。
// 前 period+1 根用于 RSI 预热，之后每根先记录权益（含浮盈），
// 再按持仓状态做平仓/开仓判断。平仓与开仓不会发生在同一根 K 线上，
// 释放的资金从下一根开始参与开仓。数据不足时返回空结果而不是错误。
func (s *Simulator) Run(bars []market.Bar) Result {
	p := s.params
	capital := p.StartingCapital
	result := Result{
		StartingCapital: capital,
		FinalCapital:    capital,
	}
	if len(bars) < p.RSIPeriod+2 {
		return result
	}

	closes := market.Closes(bars)
	var pos strategy.Position

	for i := p.RSIPeriod + 1; i < len(bars); i++ {
		rsi, ok := indicator.RSI(closes[:i+1], p.RSIPeriod)
		if !ok {
			continue
		}
		bar := bars[i]
		result.Equity = append(result.Equity, strategy.EquityPoint{
			Time:   bar.Time(),
			Index:  i,
			Equity: strategy.Equity(pos, capital, bar.Close),
			Price:  bar.Close,
			RSI:    rsi,
		})
		if pos.Open {
			if reason, hit := p.ShouldExit(pos, bar.Close, rsi); hit {
				var trade strategy.Trade
				trade, capital = strategy.ClosePosition(pos, capital, bar.Close, rsi, bar.Time(), i, reason)
				result.Trades = append(result.Trades, trade)
				pos = strategy.Position{}
			}
			continue
		}
		if p.ShouldEnter(pos, rsi) {
			pos = p.OpenPosition(capital, bar.Close, rsi, bar.Time(), i)
		}
	}

	// 数据走完仍持仓则按最后收盘价强制平仓
	if pos.Open {
		last := bars[len(bars)-1]
		lastRSI, _ := indicator.RSI(closes, p.RSIPeriod)
		var trade strategy.Trade
		trade, capital = strategy.ClosePosition(pos, capital, last.Close, lastRSI, last.Time(), len(bars)-1, strategy.ExitEndOfData)
		result.Trades = append(result.Trades, trade)
	}

	result.FinalCapital = capital
	return result
}
