package app

import (
	"context"
	"fmt"

	"fxlab/internal/logger"
	"fxlab/internal/walkforward"
)

// WalkForwardRequest 描述一次滚动窗口寻优。Grid 为空时用默认网格。
type WalkForwardRequest struct {
	Backtest BacktestRequest `json:"backtest"`
	Grid     string          `json:"grid,omitempty"`
	Windows  int             `json:"windows,omitempty"`
}

// RunWalkForward 对请求区间执行 walk-forward 分析并输出报告。
func (a *App) RunWalkForward(ctx context.Context, req WalkForwardRequest) (walkforward.Report, error) {
	params, tf, err := a.resolveRequest(&req.Backtest)
	if err != nil {
		return walkforward.Report{}, err
	}
	cfg := walkforward.Config{
		Windows:       a.Cfg.WalkForward.Windows,
		TrainFraction: a.Cfg.WalkForward.TrainFraction,
		TestFraction:  a.Cfg.WalkForward.TestFraction,
		Parallelism:   a.Cfg.WalkForward.Parallelism,
		Candidates:    a.gridCandidates(req.Grid),
	}
	if req.Windows > 0 {
		cfg.Windows = req.Windows
	}
	opt, err := walkforward.NewOptimizer(params, cfg)
	if err != nil {
		return walkforward.Report{}, err
	}
	bars, err := a.fetchBars(ctx, req.Backtest, tf)
	if err != nil {
		return walkforward.Report{}, err
	}

	logger.Infof("walk-forward 开始: %s@%s %d 根 %d 窗口 %d 候选",
		req.Backtest.Symbol, tf.Key, len(bars), cfg.Windows, len(cfg.Candidates))
	rep, err := opt.Run(ctx, bars)
	if err != nil {
		return walkforward.Report{}, fmt.Errorf("walk-forward 执行失败: %w", err)
	}

	if a.Reporter != nil && len(rep.Windows) > 0 {
		if arts, err := a.Reporter.WriteWalkForward(ctx, req.Backtest.Symbol, rep); err != nil {
			logger.Warnf("生成 walk-forward 报告失败: %v", err)
		} else {
			logger.Infof("walk-forward 报告: %s", arts.HTML)
		}
	}
	logger.Infof("walk-forward 完成: 有效窗口 %d, 一致性 %.0f%%, 常胜阈值 %.0f/%.0f",
		rep.Evaluated, rep.Consistency, rep.ModeOversold, rep.ModeOverbought)
	return rep, nil
}

// gridCandidates 依次尝试：网格文件里的命名网格 → 文件默认网格 → 内置候选。
func (a *App) gridCandidates(name string) []float64 {
	if a.Grids != nil {
		return a.Grids.Snapshot().Candidates(name)
	}
	return append([]float64(nil), walkforward.DefaultCandidates...)
}
