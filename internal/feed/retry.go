package feed

import (
	"context"
	"fmt"
	"time"

	"fxlab/internal/logger"
	"fxlab/internal/market"
)

// RetryPolicy 固定间隔的有界重试。
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 2 * time.Second
	}
	return p
}

// RetrySource 给任意 Source 套上重试，整体失败才向上报错。
type RetrySource struct {
	inner  Source
	policy RetryPolicy
}

func WithRetry(inner Source, policy RetryPolicy) *RetrySource {
	return &RetrySource{inner: inner, policy: policy.withDefaults()}
}

func (r *RetrySource) Name() string { return r.inner.Name() }

func (r *RetrySource) FetchBars(ctx context.Context, req Request) ([]market.Bar, error) {
	var bars []market.Bar
	err := r.do(ctx, fmt.Sprintf("拉取 %s K 线", req.Symbol), func() error {
		var err error
		bars, err = r.inner.FetchBars(ctx, req)
		return err
	})
	return bars, err
}

func (r *RetrySource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := r.do(ctx, fmt.Sprintf("查询 %s 最新价", symbol), func() error {
		var err error
		price, err = r.inner.LatestPrice(ctx, symbol)
		return err
	})
	return price, err
}

func (r *RetrySource) do(ctx context.Context, what string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt < r.policy.Attempts {
			logger.Warnf("%s 失败(第 %d/%d 次): %v，%s 后重试",
				what, attempt, r.policy.Attempts, lastErr, r.policy.Backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.policy.Backoff):
			}
		}
	}
	return fmt.Errorf("%s 重试 %d 次后仍失败: %w", what, r.policy.Attempts, lastErr)
}
