package app

import (
	"context"
	"fmt"

	"fxlab/internal/logger"
	"fxlab/internal/montecarlo"
)

// MonteCarloRequest 指定收益序列来源：RunID 与 ReturnsPath 二选一。
type MonteCarloRequest struct {
	RunID       string `json:"run_id,omitempty"`
	ReturnsPath string `json:"returns_path,omitempty"`
	Trials      int    `json:"trials,omitempty"`
	Seed        int64  `json:"seed,omitempty"`
}

// RunMonteCarlo 重排逐笔收益做压力测试并输出报告。
func (a *App) RunMonteCarlo(ctx context.Context, req MonteCarloRequest) (montecarlo.Report, error) {
	returns, label, err := a.loadReturns(ctx, req)
	if err != nil {
		return montecarlo.Report{}, err
	}
	cfg := montecarlo.Config{
		Trials:         a.Cfg.MonteCarlo.Trials,
		Seed:           a.Cfg.MonteCarlo.Seed,
		InitialCapital: a.Cfg.Strategy.Params().StartingCapital,
		RuinThreshold:  a.Cfg.MonteCarlo.RuinThreshold,
		Parallelism:    a.Cfg.MonteCarlo.Parallelism,
	}
	if req.Trials > 0 {
		cfg.Trials = req.Trials
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	resampler, err := montecarlo.NewResampler(cfg, returns)
	if err != nil {
		return montecarlo.Report{}, err
	}

	logger.Infof("蒙特卡洛开始: %d 笔收益 × %d 次试验 (seed=%d)", len(returns), cfg.Trials, cfg.Seed)
	rep, err := resampler.Run(ctx)
	if err != nil {
		return montecarlo.Report{}, fmt.Errorf("蒙特卡洛执行失败: %w", err)
	}

	if a.Reporter != nil && len(rep.FinalCapitals) > 0 {
		if arts, err := a.Reporter.WriteMonteCarlo(ctx, label, rep); err != nil {
			logger.Warnf("生成蒙特卡洛报告失败: %v", err)
		} else {
			logger.Infof("蒙特卡洛报告: %s", arts.HTML)
		}
	}
	logger.Infof("蒙特卡洛完成: 收益中位 %.2f%%, 破产概率 %.2f%%", rep.MedianReturnPct, rep.RiskOfRuinPct)
	return rep, nil
}

// loadReturns 取逐笔收益（小数口径）。来自回测库时用每笔 pnl_pct 换算。
func (a *App) loadReturns(ctx context.Context, req MonteCarloRequest) ([]float64, string, error) {
	switch {
	case req.RunID != "":
		trades, err := a.RunStore.ListTrades(ctx, req.RunID)
		if err != nil {
			return nil, "", fmt.Errorf("读取回测 %s 成交失败: %w", req.RunID, err)
		}
		if len(trades) == 0 {
			return nil, "", fmt.Errorf("回测 %s 没有成交记录", req.RunID)
		}
		// trade.PnLPct 本就是小数口径，和蒙特卡洛的收益单位一致
		returns := make([]float64, len(trades))
		for i, t := range trades {
			returns[i] = t.PnLPct
		}
		return returns, shortID(req.RunID), nil
	case req.ReturnsPath != "":
		file, err := montecarlo.LoadReturnsFile(req.ReturnsPath)
		if err != nil {
			return nil, "", err
		}
		label := file.Symbol
		if label == "" {
			label = "external"
		}
		return file.Returns, label, nil
	default:
		return nil, "", fmt.Errorf("run_id 与 returns_path 至少提供一个")
	}
}
