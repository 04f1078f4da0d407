package feed

import (
	"context"

	"fxlab/internal/logger"
	"fxlab/internal/market"
)

// CachedSource 把取到的 K 线落到本地 sqlite 缓存；缓存只增不改，
// 上游失败时回退到已有缓存。
type CachedSource struct {
	inner Source
	store *market.Store
}

func WithCache(inner Source, store *market.Store) *CachedSource {
	return &CachedSource{inner: inner, store: store}
}

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) FetchBars(ctx context.Context, req Request) ([]market.Bar, error) {
	bars, err := c.inner.FetchBars(ctx, req)
	if err != nil {
		cached, cacheErr := c.cachedBars(ctx, req)
		if cacheErr != nil || len(cached) == 0 {
			return nil, err
		}
		logger.Warnf("%s 拉取 %s 失败，使用缓存的 %d 根 K 线: %v",
			c.inner.Name(), req.Symbol, len(cached), err)
		return cached, nil
	}
	if len(bars) > 0 {
		if n, err := c.store.InsertBars(ctx, req.Symbol, req.Timeframe.Key, bars); err != nil {
			logger.Warnf("缓存 %s K 线失败: %v", req.Symbol, err)
		} else if n > 0 {
			logger.Debugf("缓存 %s@%s 新增 %d 根 K 线", req.Symbol, req.Timeframe.Key, n)
		}
	}
	return bars, nil
}

func (c *CachedSource) cachedBars(ctx context.Context, req Request) ([]market.Bar, error) {
	var (
		bars []market.Bar
		err  error
	)
	if req.Start > 0 || req.End > 0 {
		end := req.End
		if end == 0 {
			end = int64(1) << 62
		}
		bars, err = c.store.RangeBars(ctx, req.Symbol, req.Timeframe.Key, req.Start, end)
	} else {
		bars, err = c.store.ListAllBars(ctx, req.Symbol, req.Timeframe.Key)
	}
	if err != nil {
		return nil, err
	}
	return tailBars(bars, req.Limit), nil
}

func (c *CachedSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return c.inner.LatestPrice(ctx, symbol)
}
