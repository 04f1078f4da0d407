package feed

import (
	"context"
	"fmt"
	"time"

	"fxlab/internal/market"
	"fxlab/internal/pkg/circuit"
)

// BreakerSource 在上游连续失败后熔断一段时间，避免反复打已经挂掉的数据源。
// 熔断期间的请求直接报错，由外层缓存决定是否兜底。
type BreakerSource struct {
	inner Source
	cb    *circuit.Breaker
}

func WithBreaker(inner Source, threshold int, cooldown time.Duration) *BreakerSource {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &BreakerSource{
		inner: inner,
		cb:    circuit.NewBreaker(inner.Name(), threshold, cooldown),
	}
}

func (b *BreakerSource) Name() string { return b.inner.Name() }

func (b *BreakerSource) FetchBars(ctx context.Context, req Request) ([]market.Bar, error) {
	if !b.cb.Allow() {
		return nil, fmt.Errorf("数据源 %s 熔断中，跳过请求", b.inner.Name())
	}
	bars, err := b.inner.FetchBars(ctx, req)
	b.record(err)
	return bars, err
}

func (b *BreakerSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if !b.cb.Allow() {
		return 0, fmt.Errorf("数据源 %s 熔断中，跳过请求", b.inner.Name())
	}
	price, err := b.inner.LatestPrice(ctx, symbol)
	b.record(err)
	return price, err
}

func (b *BreakerSource) record(err error) {
	if err != nil {
		b.cb.RecordFailure()
		return
	}
	b.cb.RecordSuccess()
}
