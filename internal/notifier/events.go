package notifier

import (
	"fmt"
	"time"

	"fxlab/internal/backtest"
	"fxlab/internal/pkg/money"
	"fxlab/internal/strategy"
)

// TradeOpened 构建开仓推送。
func TradeOpened(symbol string, pos strategy.Position) StructuredMessage {
	return StructuredMessage{
		Icon:  "📈",
		Title: fmt.Sprintf("开仓 %s", symbol),
		Sections: []MessageSection{{
			Title: "仓位",
			Lines: []string{
				"入场价: " + money.Price(pos.EntryPrice),
				"数量: " + money.Units(pos.Units),
				fmt.Sprintf("入场 RSI: %.1f", pos.EntryRSI),
			},
		}},
		Timestamp: pos.EntryTime,
	}
}

// TradeClosed 构建平仓推送。
func TradeClosed(symbol string, trade strategy.Trade, capital float64) StructuredMessage {
	icon := "✅"
	if trade.PnL < 0 {
		icon = "🔻"
	}
	return StructuredMessage{
		Icon:  icon,
		Title: fmt.Sprintf("平仓 %s (%s)", symbol, trade.Reason),
		Sections: []MessageSection{
			{
				Title: "成交",
				Lines: []string{
					"入场价: " + money.Price(trade.EntryPrice),
					"出场价: " + money.Price(trade.ExitPrice),
					"数量: " + money.Units(trade.Units),
					fmt.Sprintf("持仓: %s", trade.Holding().Round(time.Second)),
				},
			},
			{
				Title: "盈亏",
				Lines: []string{
					"本笔: " + money.SignedAmount(trade.PnL) + " (" + money.SignedPercent(trade.PnLPct*100) + ")",
					"账户: " + money.Amount(capital),
				},
			},
		},
		Timestamp: trade.ExitTime,
	}
}

// SessionSummary 构建会话总结推送（模拟盘结束或批量回测完成时）。
func SessionSummary(title, symbol string, sum backtest.Summary) StructuredMessage {
	lines := []string{
		fmt.Sprintf("成交: %d 笔 (胜 %d / 负 %d)", sum.Trades, sum.Wins, sum.Losses),
		"胜率: " + money.Percent(sum.WinRate),
		"总盈亏: " + money.SignedAmount(sum.TotalProfit),
		"收益率: " + money.SignedPercent(sum.ReturnPct),
		"最大回撤: " + money.Percent(sum.MaxDrawdownPct),
		"期末资金: " + money.Amount(sum.FinalCapital),
	}
	reasons := make([]string, 0, len(sum.ExitReasons))
	for _, reason := range []strategy.ExitReason{
		strategy.ExitProfitTarget,
		strategy.ExitStopLoss,
		strategy.ExitRSI,
		strategy.ExitEndOfData,
		strategy.ExitUserStop,
	} {
		if n := sum.ExitReasons[reason]; n > 0 {
			reasons = append(reasons, fmt.Sprintf("%s: %d", reason, n))
		}
	}
	return StructuredMessage{
		Icon:  "📊",
		Title: fmt.Sprintf("%s %s", title, symbol),
		Sections: []MessageSection{
			{Title: "绩效", Lines: lines},
			{Title: "离场原因", Lines: reasons},
		},
		Timestamp: time.Now(),
	}
}

// Notify 渲染并推送，通知失败只记录不中断主流程由调用方决定。
func Notify(n TextNotifier, msg StructuredMessage) error {
	if n == nil {
		return nil
	}
	return n.SendText(msg.RenderMarkdown())
}
