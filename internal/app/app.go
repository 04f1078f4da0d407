// Package app 按配置组装数据源、存储、通知与报告等部件，
// 并提供回测/寻优/蒙特卡洛/模拟盘四类服务入口。
package app

import (
	"errors"
	"fmt"
	"os"

	"fxlab/internal/backtest"
	"fxlab/internal/config"
	cfgloader "fxlab/internal/config/loader"
	"fxlab/internal/feed"
	"fxlab/internal/logger"
	"fxlab/internal/market"
	"fxlab/internal/notifier"
	"fxlab/internal/papertrade"
	"fxlab/internal/report"
)

// App 持有全部已装配的部件。
type App struct {
	Cfg         *config.Config
	Source      feed.Source
	MarketStore *market.Store
	RunStore    *backtest.RunStore
	Sessions    *papertrade.SessionStore
	Grids       *cfgloader.GridLoader
	Notifier    notifier.TextNotifier
	Reporter    *report.Reporter
}

// BacktestChartPath 返回某次回测图表 HTML 的落盘位置。
// 报告未生成或未启用时返回错误。
func (a *App) BacktestChartPath(runID string) (string, error) {
	if a.Reporter == nil {
		return "", errors.New("未启用报告输出")
	}
	path := a.Reporter.BacktestHTMLPath(shortID(runID))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("回测 %s 的图表尚未生成", runID)
	}
	return path, nil
}

// Close 释放全部持久化资源。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.MarketStore != nil {
		if err := a.MarketStore.Close(); err != nil {
			logger.Warnf("关闭行情缓存失败: %v", err)
		}
	}
	if a.RunStore != nil {
		if err := a.RunStore.Close(); err != nil {
			logger.Warnf("关闭回测库失败: %v", err)
		}
	}
	if a.Sessions != nil {
		if err := a.Sessions.Close(); err != nil {
			logger.Warnf("关闭会话库失败: %v", err)
		}
	}
}
