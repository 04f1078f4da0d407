// Package strategy 实现 RSI 均值回归策略的参数、仓位与进出场规则。
package strategy

import "fmt"

// Params 是一次模拟/实盘会话的完整策略参数快照。
type Params struct {
	RSIPeriod       int     `json:"rsi_period" mapstructure:"rsi_period"`
	RSIOversold     float64 `json:"rsi_oversold" mapstructure:"rsi_oversold"`
	RSIOverbought   float64 `json:"rsi_overbought" mapstructure:"rsi_overbought"`
	StartingCapital float64 `json:"starting_capital" mapstructure:"starting_capital"`
	RiskPerTrade    float64 `json:"risk_per_trade" mapstructure:"risk_per_trade"`
	ProfitTarget    float64 `json:"profit_target" mapstructure:"profit_target"`
	StopLoss        float64 `json:"stop_loss" mapstructure:"stop_loss"`
}

// DefaultParams 返回默认参数组合。
func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		RSIOversold:     30,
		RSIOverbought:   70,
		StartingCapital: 1000.0,
		RiskPerTrade:    0.05,
		ProfitTarget:    0.10,
		StopLoss:        0.03,
	}
}

// Validate 检查参数的静态合法性，非法组合直接拒绝而不是带病运行。
func (p Params) Validate() error {
	if p.RSIPeriod < 1 {
		return fmt.Errorf("rsi_period 必须 >= 1, got %d", p.RSIPeriod)
	}
	if p.RSIOversold < 0 || p.RSIOversold > 100 {
		return fmt.Errorf("rsi_oversold 必须在 [0,100], got %.2f", p.RSIOversold)
	}
	if p.RSIOverbought < 0 || p.RSIOverbought > 100 {
		return fmt.Errorf("rsi_overbought 必须在 [0,100], got %.2f", p.RSIOverbought)
	}
	if p.RSIOversold >= p.RSIOverbought {
		return fmt.Errorf("rsi_oversold(%.2f) 必须小于 rsi_overbought(%.2f)", p.RSIOversold, p.RSIOverbought)
	}
	if p.StartingCapital <= 0 {
		return fmt.Errorf("starting_capital 必须为正, got %.4f", p.StartingCapital)
	}
	if p.RiskPerTrade <= 0 || p.RiskPerTrade > 1 {
		return fmt.Errorf("risk_per_trade 必须在 (0,1], got %.4f", p.RiskPerTrade)
	}
	if p.ProfitTarget <= 0 {
		return fmt.Errorf("profit_target 必须为正, got %.4f", p.ProfitTarget)
	}
	if p.StopLoss <= 0 || p.StopLoss >= 1 {
		return fmt.Errorf("stop_loss 必须在 (0,1), got %.4f", p.StopLoss)
	}
	return nil
}

// WithThresholds 返回替换了进出场阈值的参数副本，网格寻优用。
func (p Params) WithThresholds(oversold, overbought float64) Params {
	p.RSIOversold = oversold
	p.RSIOverbought = overbought
	return p
}
