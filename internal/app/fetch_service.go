package app

import (
	"context"

	"fxlab/internal/logger"
	"fxlab/internal/market"
)

// FetchData 拉取一段历史并落入本地缓存，返回缓存清单。
func (a *App) FetchData(ctx context.Context, req BacktestRequest) (market.Manifest, int, error) {
	_, tf, err := a.resolveRequest(&req)
	if err != nil {
		return market.Manifest{}, 0, err
	}
	bars, err := a.fetchBars(ctx, req, tf)
	if err != nil {
		return market.Manifest{}, 0, err
	}
	manifest, err := a.MarketStore.Manifest(ctx, req.Symbol, tf.Key)
	if err != nil {
		return market.Manifest{}, 0, err
	}
	logger.Infof("拉取 %s@%s %d 根完成, 缓存共 %d 根", req.Symbol, tf.Key, len(bars), manifest.Rows)
	return manifest, len(bars), nil
}
