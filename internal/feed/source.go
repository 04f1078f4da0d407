// Package feed 定义行情数据源能力接口及其各实现：
// 随机游走模拟、Yahoo、Alpha Vantage、Binance，外加重试与本地缓存装饰器。
package feed

import (
	"context"

	"fxlab/internal/market"
)

// Request 描述一次历史 K 线拉取。
type Request struct {
	Symbol    string
	Timeframe market.Timeframe
	Start     int64
	End       int64
	Limit     int
}

// Source 是行情数据源的能力接口。
// 实现可能失败、可能返回空或不完整数据，调用方自行决定重试与缓存。
type Source interface {
	FetchBars(ctx context.Context, req Request) ([]market.Bar, error)
	LatestPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// tailBars 保留末尾 limit 根。
func tailBars(bars []market.Bar, limit int) []market.Bar {
	if limit > 0 && len(bars) > limit {
		return bars[len(bars)-limit:]
	}
	return bars
}
