package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"fxlab/internal/market"
	fxsymbol "fxlab/internal/pkg/symbol"
)

// AlphaVantage 基于 Alpha Vantage FX 接口（免费档有频率限制）。
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAlphaVantage(baseURL, apiKey string) *AlphaVantage {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co/query"
	}
	return &AlphaVantage{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

func avInterval(tf market.Timeframe) (function, interval string) {
	switch tf.Key {
	case "1m":
		return "FX_INTRADAY", "1min"
	case "5m":
		return "FX_INTRADAY", "5min"
	case "15m":
		return "FX_INTRADAY", "15min"
	case "30m":
		return "FX_INTRADAY", "30min"
	case "1h", "4h":
		return "FX_INTRADAY", "60min"
	case "1w":
		return "FX_WEEKLY", ""
	default:
		return "FX_DAILY", ""
	}
}

func (a *AlphaVantage) FetchBars(ctx context.Context, req Request) ([]market.Bar, error) {
	pair, err := fxsymbol.Parse(req.Symbol)
	if err != nil {
		return nil, err
	}
	function, interval := avInterval(req.Timeframe)
	q := url.Values{}
	q.Set("function", function)
	q.Set("from_symbol", pair.Base)
	q.Set("to_symbol", pair.Quote)
	q.Set("outputsize", "full")
	q.Set("apikey", a.apiKey)
	if interval != "" {
		q.Set("interval", interval)
	}
	body, err := a.get(ctx, a.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if err := avError(body); err != nil {
		return nil, err
	}

	series := findTimeSeries(body)
	if !series.Exists() {
		return nil, fmt.Errorf("alphavantage 响应中没有时间序列 (%s)", req.Symbol)
	}
	var bars []market.Bar
	series.ForEach(func(key, value gjson.Result) bool {
		ts, err := parseAVTime(key.String())
		if err != nil {
			return true
		}
		bars = append(bars, market.Bar{
			OpenTime: ts,
			Open:     value.Get(`1\. open`).Float(),
			High:     value.Get(`2\. high`).Float(),
			Low:      value.Get(`3\. low`).Float(),
			Close:    value.Get(`4\. close`).Float(),
		})
		return true
	})
	// Alpha Vantage 按时间倒序返回，统一转为升序
	sort.Slice(bars, func(i, j int) bool { return bars[i].OpenTime < bars[j].OpenTime })
	bars = clipRange(bars, req.Start, req.End)
	return tailBars(bars, req.Limit), nil
}

// LatestPrice 走实时汇率接口。
func (a *AlphaVantage) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	pair, err := fxsymbol.Parse(symbol)
	if err != nil {
		return 0, err
	}
	q := url.Values{}
	q.Set("function", "CURRENCY_EXCHANGE_RATE")
	q.Set("from_currency", pair.Base)
	q.Set("to_currency", pair.Quote)
	q.Set("apikey", a.apiKey)
	body, err := a.get(ctx, a.baseURL+"?"+q.Encode())
	if err != nil {
		return 0, err
	}
	if err := avError(body); err != nil {
		return 0, err
	}
	rate := gjson.GetBytes(body, `Realtime Currency Exchange Rate.5\. Exchange Rate`)
	if !rate.Exists() || rate.Float() <= 0 {
		return 0, fmt.Errorf("alphavantage 未返回 %s 的汇率", symbol)
	}
	return rate.Float(), nil
}

func (a *AlphaVantage) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage 请求失败: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage 读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage 返回状态码 %d", resp.StatusCode)
	}
	return body, nil
}

// avError 识别接口语义错误：限频提示放在 Note 字段，参数错误放在 Error Message。
func avError(body []byte) error {
	if note := gjson.GetBytes(body, "Note"); note.Exists() && note.String() != "" {
		return fmt.Errorf("alphavantage 触发频率限制: %s", truncate(note.String(), 120))
	}
	if msg := gjson.GetBytes(body, "Error Message"); msg.Exists() && msg.String() != "" {
		return fmt.Errorf("alphavantage 报错: %s", truncate(msg.String(), 200))
	}
	return nil
}

// findTimeSeries 定位时间序列字段，键名随 function 变化
// （如 "Time Series FX (Daily)" / "Time Series FX (5min)"）。
func findTimeSeries(body []byte) gjson.Result {
	var found gjson.Result
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() && len(key.String()) > 0 && key.String() != "Meta Data" {
			found = value
			return false
		}
		return true
	})
	return found
}

func parseAVTime(s string) (int64, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("无法解析时间: %s", s)
}
