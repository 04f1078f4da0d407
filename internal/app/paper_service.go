package app

import (
	"context"
	"time"

	"fxlab/internal/backtest"
	"fxlab/internal/papertrade"
)

// RunPaper 按配置启动一轮模拟盘会话，阻塞到时长耗尽或 ctx 取消。
func (a *App) RunPaper(ctx context.Context) (papertrade.Session, backtest.Result, error) {
	params := a.Cfg.Strategy.Params()
	trader, err := papertrade.NewTrader(a.Source, a.Sessions, a.Notifier, params, papertrade.Options{
		Symbol:      a.Cfg.Feed.Symbol,
		Interval:    time.Duration(a.Cfg.Paper.IntervalSeconds) * time.Second,
		Duration:    time.Duration(a.Cfg.Paper.DurationMinutes) * time.Minute,
		HistorySize: a.Cfg.Paper.HistorySize,
	})
	if err != nil {
		return papertrade.Session{}, backtest.Result{}, err
	}
	return trader.Run(ctx)
}
