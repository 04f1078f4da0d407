package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"fxlab/internal/market"
)

// Simulated 是可复现的随机游走数据源，离线调试与测试专用。
// 价格按高斯步进游走，并以 10% 概率放大 3 倍制造尖峰，
// 让 RSI 有机会走到两端极值。
type Simulated struct {
	mu    sync.Mutex
	rng   *rand.Rand
	price float64
	vol   float64
}

func NewSimulated(seed int64, startPrice, volatility float64) *Simulated {
	if startPrice <= 0 {
		startPrice = 1.10
	}
	if volatility <= 0 {
		volatility = 0.002
	}
	return &Simulated{
		rng:   rand.New(rand.NewSource(seed)),
		price: startPrice,
		vol:   volatility,
	}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) step() float64 {
	delta := s.rng.NormFloat64() * s.vol * s.price
	if s.rng.Float64() < 0.10 {
		delta *= 3
	}
	s.price += delta
	if s.price <= 0 {
		s.price = s.vol
	}
	return s.price
}

// FetchBars 生成一段倒推到现在的游走序列。
func (s *Simulated) FetchBars(_ context.Context, req Request) ([]market.Bar, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 500
	}
	step := req.Timeframe.DurationMillis()
	if step <= 0 {
		step = time.Minute.Milliseconds()
	}
	start := time.Now().UnixMilli() - int64(limit)*step

	s.mu.Lock()
	defer s.mu.Unlock()
	bars := make([]market.Bar, 0, limit)
	for i := 0; i < limit; i++ {
		open := s.price
		close := s.step()
		high, low := open, close
		if close > open {
			high = close
			low = open
		}
		bars = append(bars, market.Bar{
			OpenTime: market.AlignDown(start+int64(i)*step, step),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
		})
	}
	return bars, nil
}

// LatestPrice 向前游走一步并返回新价格。
func (s *Simulated) LatestPrice(_ context.Context, _ string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(), nil
}
