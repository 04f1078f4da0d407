package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fxlab/internal/backtest"
	"fxlab/internal/feed"
	"fxlab/internal/logger"
	"fxlab/internal/market"
	"fxlab/internal/notifier"
	"fxlab/internal/strategy"
)

// BacktestRequest 描述一次批量回测。Params 为 nil 时取配置里的策略参数。
type BacktestRequest struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Bars      int              `json:"bars"`
	StartTS   int64            `json:"start_ts"`
	EndTS     int64            `json:"end_ts"`
	Params    *strategy.Params `json:"params,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

func (a *App) resolveRequest(req *BacktestRequest) (strategy.Params, market.Timeframe, error) {
	if req.Symbol == "" {
		req.Symbol = a.Cfg.Feed.Symbol
	}
	if req.Timeframe == "" {
		req.Timeframe = a.Cfg.Feed.Timeframe
	}
	if req.Bars <= 0 {
		req.Bars = a.Cfg.Feed.Bars
	}
	params := a.Cfg.Strategy.Params()
	if req.Params != nil {
		params = *req.Params
	}
	if err := params.Validate(); err != nil {
		return strategy.Params{}, market.Timeframe{}, err
	}
	tf, err := market.ParseTimeframe(req.Timeframe)
	if err != nil {
		return strategy.Params{}, market.Timeframe{}, err
	}
	return params, tf, nil
}

func (a *App) fetchBars(ctx context.Context, req BacktestRequest, tf market.Timeframe) ([]market.Bar, error) {
	bars, err := a.Source.FetchBars(ctx, feed.Request{
		Symbol:    req.Symbol,
		Timeframe: tf,
		Start:     req.StartTS,
		End:       req.EndTS,
		Limit:     req.Bars,
	})
	if err != nil {
		return nil, fmt.Errorf("拉取 %s@%s K 线失败: %w", req.Symbol, tf.Key, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s@%s 没有可用数据", req.Symbol, tf.Key)
	}
	return bars, nil
}

// RunBacktest 取数、模拟、落库、出报告，一条龙跑完后返回登记的 Run。
func (a *App) RunBacktest(ctx context.Context, req BacktestRequest) (backtest.Run, error) {
	params, tf, err := a.resolveRequest(&req)
	if err != nil {
		return backtest.Run{}, err
	}
	sim, err := backtest.NewSimulator(params)
	if err != nil {
		return backtest.Run{}, err
	}
	bars, err := a.fetchBars(ctx, req, tf)
	if err != nil {
		return backtest.Run{}, err
	}

	run := backtest.Run{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Timeframe: tf.Key,
		Status:    backtest.RunStatusRunning,
		StartTS:   bars[0].OpenTime,
		EndTS:     bars[len(bars)-1].OpenTime,
		Capital:   params.StartingCapital,
		Config: backtest.RunConfig{
			Symbol:    req.Symbol,
			Timeframe: tf.Key,
			Source:    a.Source.Name(),
			StartTS:   bars[0].OpenTime,
			EndTS:     bars[len(bars)-1].OpenTime,
			Bars:      len(bars),
			Params:    params,
			Notes:     req.Notes,
		},
		CreatedAt: time.Now(),
	}
	if err := a.RunStore.InsertRun(ctx, run); err != nil {
		return backtest.Run{}, fmt.Errorf("登记回测失败: %w", err)
	}

	logger.Infof("回测 %s 开始: %s@%s %d 根", run.ID, req.Symbol, tf.Key, len(bars))
	result := sim.Run(bars)
	sum := result.Summarize()

	if err := a.RunStore.InsertTrades(ctx, run.ID, result.Trades); err != nil {
		logger.Errorf("写入成交失败: %v", err)
	}
	if err := a.RunStore.InsertEquity(ctx, run.ID, result.Equity); err != nil {
		logger.Errorf("写入权益失败: %v", err)
	}
	if err := a.RunStore.CompleteRun(ctx, run.ID, backtest.RunStatusDone, sum, ""); err != nil {
		logger.Errorf("更新回测状态失败: %v", err)
	}
	run.Status = backtest.RunStatusDone
	run.Summary = sum
	run.FinalCapital = sum.FinalCapital

	if a.Reporter != nil && len(result.Equity) > 0 {
		if arts, err := a.Reporter.WriteBacktest(ctx, shortID(run.ID), bars, result, sum); err != nil {
			logger.Warnf("生成回测报告失败: %v", err)
		} else {
			logger.Infof("回测报告: %s", arts.HTML)
		}
	}
	if err := notifier.Notify(a.Notifier, notifier.SessionSummary("回测完成", req.Symbol, sum)); err != nil {
		logger.Warnf("推送回测结论失败: %v", err)
	}
	logger.Infof("回测 %s 完成: %d 笔成交, 收益率 %.2f%%", run.ID, sum.Trades, sum.ReturnPct)
	return run, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
