package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"

	"fxlab/internal/market"
	fxsymbol "fxlab/internal/pkg/symbol"
)

const maxKlineLimit = 1000

// Binance 基于 go-binance SDK 的现货行情源。外汇对映射到对应的
// 稳定币交易对（EUR/USD -> EURUSDT）。
type Binance struct {
	client *binance.Client
}

func NewBinance(apiKey, apiSecret string) *Binance {
	return &Binance{client: binance.NewClient(apiKey, apiSecret)}
}

func (b *Binance) Name() string { return "binance" }

// binanceSymbol 转换为交易所符号：去掉斜杠，USD 记价映射为 USDT。
func binanceSymbol(symbol string) (string, error) {
	pair, err := fxsymbol.Parse(symbol)
	if err != nil {
		clean := strings.ToUpper(strings.TrimSpace(symbol))
		if clean == "" {
			return "", err
		}
		return clean, nil
	}
	return pair.Binance(), nil
}

func (b *Binance) FetchBars(ctx context.Context, req Request) ([]market.Bar, error) {
	symbol, err := binanceSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 500
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	svc := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(req.Timeframe.SourceInterval).
		Limit(limit)
	if req.Start > 0 {
		svc = svc.StartTime(req.Start)
	}
	if req.End > 0 {
		svc = svc.EndTime(req.End)
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance K 线请求失败: %w", err)
	}
	out := make([]market.Bar, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Bar{
			OpenTime: kl.OpenTime,
			Open:     parseFloat(kl.Open),
			High:     parseFloat(kl.High),
			Low:      parseFloat(kl.Low),
			Close:    parseFloat(kl.Close),
		})
	}
	return tailBars(out, req.Limit), nil
}

func (b *Binance) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	clean, err := binanceSymbol(symbol)
	if err != nil {
		return 0, err
	}
	prices, err := b.client.NewListPricesService().Symbol(clean).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance 最新价请求失败: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance 未返回 %s 的价格", symbol)
	}
	p := parseFloat(prices[0].Price)
	if p <= 0 {
		return 0, fmt.Errorf("binance 返回的 %s 价格无效: %s", symbol, prices[0].Price)
	}
	return p, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
