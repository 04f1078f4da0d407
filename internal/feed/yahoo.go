package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"fxlab/internal/market"
	fxsymbol "fxlab/internal/pkg/symbol"
)

// Yahoo 基于 Yahoo Finance v8 chart API。外汇对映射为 "EURUSD=X" 形式的 ticker。
type Yahoo struct {
	baseURL string
	client  *http.Client
}

func NewYahoo(base string) *Yahoo {
	if base == "" {
		base = "https://query1.finance.yahoo.com"
	}
	return &Yahoo{
		baseURL: base,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

// yahooTicker 把 "EUR/USD" 映射为 "EURUSD=X"；已是 ticker 形式的原样返回。
func yahooTicker(symbol string) string {
	pair, err := fxsymbol.Parse(symbol)
	if err != nil {
		return strings.TrimSpace(symbol)
	}
	return pair.Yahoo()
}

// 周期 → (interval, range) 参数。range 给得比需要的宽，末端本地截断。
func yahooRange(tf market.Timeframe) (string, string) {
	switch tf.Key {
	case "1m":
		return "1m", "7d"
	case "5m", "15m", "30m":
		return tf.SourceInterval, "1mo"
	case "1h":
		return "60m", "3mo"
	case "1w":
		return "1wk", "10y"
	default:
		return "1d", "2y"
	}
}

func (y *Yahoo) FetchBars(ctx context.Context, req Request) ([]market.Bar, error) {
	interval, rng := yahooRange(req.Timeframe)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		y.baseURL, url.PathEscape(yahooTicker(req.Symbol)), interval, rng)
	body, err := y.get(ctx, u)
	if err != nil {
		return nil, err
	}

	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return nil, fmt.Errorf("yahoo 接口报错: %s", desc.String())
	}
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("yahoo 无数据返回 (%s)", req.Symbol)
	}
	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()

	bars := make([]market.Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) {
			break
		}
		// Yahoo 会在缺口位置放 null，跳过
		if closes[i].Type == gjson.Null || closes[i].Float() <= 0 {
			continue
		}
		bar := market.Bar{
			OpenTime: ts.Int() * 1000,
			Close:    closes[i].Float(),
		}
		if i < len(opens) && opens[i].Type != gjson.Null {
			bar.Open = opens[i].Float()
		} else {
			bar.Open = bar.Close
		}
		if i < len(highs) && highs[i].Type != gjson.Null {
			bar.High = highs[i].Float()
		} else {
			bar.High = bar.Close
		}
		if i < len(lows) && lows[i].Type != gjson.Null {
			bar.Low = lows[i].Float()
		} else {
			bar.Low = bar.Close
		}
		bars = append(bars, bar)
	}
	bars = clipRange(bars, req.Start, req.End)
	return tailBars(bars, req.Limit), nil
}

// LatestPrice 读取 chart meta 里的实时报价。
func (y *Yahoo) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d",
		y.baseURL, url.PathEscape(yahooTicker(symbol)))
	body, err := y.get(ctx, u)
	if err != nil {
		return 0, err
	}
	price := gjson.GetBytes(body, "chart.result.0.meta.regularMarketPrice")
	if !price.Exists() || price.Float() <= 0 {
		return 0, fmt.Errorf("yahoo 未返回 %s 的实时报价", symbol)
	}
	return price.Float(), nil
}

func (y *Yahoo) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo 请求失败: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo 读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo 返回状态码 %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func clipRange(bars []market.Bar, start, end int64) []market.Bar {
	if start <= 0 && end <= 0 {
		return bars
	}
	out := bars[:0:0]
	for _, b := range bars {
		if start > 0 && b.OpenTime < start {
			continue
		}
		if end > 0 && b.OpenTime > end {
			continue
		}
		out = append(out, b)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
