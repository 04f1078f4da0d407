package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxlab/internal/market"
)

func mustTimeframe(t *testing.T, key string) market.Timeframe {
	t.Helper()
	tf, err := market.ParseTimeframe(key)
	require.NoError(t, err)
	return tf
}

func TestYahooTicker(t *testing.T) {
	assert.Equal(t, "EURUSD=X", yahooTicker("EUR/USD"))
	assert.Equal(t, "GBPJPY=X", yahooTicker("gbp/jpy"))
	assert.Equal(t, "EURUSD=X", yahooTicker("EURUSD=X"))
}

func TestBinanceSymbol(t *testing.T) {
	sym, err := binanceSymbol("EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, "EURUSDT", sym)

	sym, err = binanceSymbol("EUR/GBP")
	require.NoError(t, err)
	assert.Equal(t, "EURGBP", sym)

	sym, err = binanceSymbol("ethusdt")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", sym)

	_, err = binanceSymbol("  ")
	assert.Error(t, err)
}

func TestSimulatedDeterministic(t *testing.T) {
	req := Request{Symbol: "EUR/USD", Timeframe: mustTimeframe(t, "1m"), Limit: 50}

	a, err := NewSimulated(7, 1.10, 0.002).FetchBars(context.Background(), req)
	require.NoError(t, err)
	b, err := NewSimulated(7, 1.10, 0.002).FetchBars(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, a, 50)
	for i := range a {
		assert.Equal(t, a[i].Open, b[i].Open, "bar %d", i)
		assert.Equal(t, a[i].Close, b[i].Close, "bar %d", i)
		assert.Positive(t, a[i].Close)
		assert.GreaterOrEqual(t, a[i].High, a[i].Low)
	}

	c, err := NewSimulated(8, 1.10, 0.002).FetchBars(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a[49].Close, c[49].Close)
}

func TestYahooFetchBarsSkipsNullGaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{
			"meta":{"regularMarketPrice":1.0935},
			"timestamp":[1700000000,1700000060,1700000120],
			"indicators":{"quote":[{
				"open":[1.10,null,1.12],
				"high":[1.105,null,1.125],
				"low":[1.095,null,1.115],
				"close":[1.10,null,1.12]
			}]}
		}],"error":null}}`)
	}))
	defer srv.Close()

	y := NewYahoo(srv.URL)
	bars, err := y.FetchBars(context.Background(), Request{
		Symbol: "EUR/USD", Timeframe: mustTimeframe(t, "1m"),
	})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1700000000000), bars[0].OpenTime)
	assert.Equal(t, 1.10, bars[0].Close)
	assert.Equal(t, int64(1700000120000), bars[1].OpenTime)
	assert.Equal(t, 1.12, bars[1].Close)

	price, err := y.LatestPrice(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0935, price)
}

func TestYahooFetchBarsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	_, err := NewYahoo(srv.URL).FetchBars(context.Background(), Request{
		Symbol: "XXX/YYY", Timeframe: mustTimeframe(t, "1d"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestAlphaVantageFetchBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "FX_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "EUR", r.URL.Query().Get("from_symbol"))
		assert.Equal(t, "USD", r.URL.Query().Get("to_symbol"))
		fmt.Fprint(w, `{
			"Meta Data": {"1. Information": "Forex Daily Prices"},
			"Time Series FX (Daily)": {
				"2024-01-03": {"1. open":"1.0940","2. high":"1.0960","3. low":"1.0910","4. close":"1.0925"},
				"2024-01-02": {"1. open":"1.1040","2. high":"1.1045","3. low":"1.0920","4. close":"1.0940"}
			}
		}`)
	}))
	defer srv.Close()

	av := NewAlphaVantage(srv.URL, "demo")
	bars, err := av.FetchBars(context.Background(), Request{
		Symbol: "EUR/USD", Timeframe: mustTimeframe(t, "1d"),
	})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	// 升序排列
	assert.Less(t, bars[0].OpenTime, bars[1].OpenTime)
	assert.Equal(t, 1.0940, bars[0].Close)
	assert.Equal(t, 1.0925, bars[1].Close)
	assert.Equal(t, 1.0960, bars[1].High)
}

func TestAlphaVantageRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	}))
	defer srv.Close()

	_, err := NewAlphaVantage(srv.URL, "demo").FetchBars(context.Background(), Request{
		Symbol: "EUR/USD", Timeframe: mustTimeframe(t, "1d"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "频率限制")
}

func TestAlphaVantageLatestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CURRENCY_EXCHANGE_RATE", r.URL.Query().Get("function"))
		fmt.Fprint(w, `{"Realtime Currency Exchange Rate": {
			"1. From_Currency Code": "EUR",
			"3. To_Currency Code": "USD",
			"5. Exchange Rate": "1.09350000"
		}}`)
	}))
	defer srv.Close()

	price, err := NewAlphaVantage(srv.URL, "demo").LatestPrice(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.InDelta(t, 1.0935, price, 1e-9)
}

// stubSource 前 failures 次调用失败，之后成功，记录调用次数。
type stubSource struct {
	failures int
	calls    int
	bars     []market.Bar
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) FetchBars(_ context.Context, _ Request) ([]market.Bar, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("临时故障")
	}
	return s.bars, nil
}

func (s *stubSource) LatestPrice(_ context.Context, _ string) (float64, error) {
	s.calls++
	if s.calls <= s.failures {
		return 0, errors.New("临时故障")
	}
	return 1.10, nil
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	stub := &stubSource{failures: 2, bars: market.FromCloses([]float64{1.1, 1.2}, 0, 0)}
	src := WithRetry(stub, RetryPolicy{Attempts: 3, Backoff: time.Millisecond})

	bars, err := src.FetchBars(context.Background(), Request{Symbol: "EUR/USD"})
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, 3, stub.calls)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	stub := &stubSource{failures: 100}
	src := WithRetry(stub, RetryPolicy{Attempts: 3, Backoff: time.Millisecond})

	_, err := src.FetchBars(context.Background(), Request{Symbol: "EUR/USD"})
	require.Error(t, err)
	assert.Equal(t, 3, stub.calls)
	assert.Contains(t, err.Error(), "重试 3 次后仍失败")
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &stubSource{failures: 100}
	src := WithRetry(stub, RetryPolicy{Attempts: 5, Backoff: time.Second})

	_, err := src.FetchBars(ctx, Request{Symbol: "EUR/USD"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stub.calls)
}

func TestCachedSourceFallsBackToCache(t *testing.T) {
	store, err := market.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf := mustTimeframe(t, "1m")
	bars := market.FromCloses([]float64{1.10, 1.11, 1.12}, 1700000000000, time.Minute.Milliseconds())

	good := &stubSource{bars: bars}
	cached := WithCache(good, store)
	got, err := cached.FetchBars(context.Background(), Request{Symbol: "EUR/USD", Timeframe: tf})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// 上游故障时回退到缓存
	bad := &stubSource{failures: 100}
	cached = WithCache(bad, store)
	got, err = cached.FetchBars(context.Background(), Request{Symbol: "EUR/USD", Timeframe: tf})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1.12, got[2].Close)

	// 缓存也为空则报上游错误
	empty := WithCache(&stubSource{failures: 100}, store)
	_, err = empty.FetchBars(context.Background(), Request{Symbol: "GBP/JPY", Timeframe: tf})
	require.Error(t, err)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	stub := &stubSource{failures: 100}
	src := WithBreaker(stub, 2, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := src.FetchBars(context.Background(), Request{Symbol: "EUR/USD"})
		require.Error(t, err)
	}
	assert.Equal(t, 2, stub.calls)

	// 熔断打开后不再触达上游
	_, err := src.FetchBars(context.Background(), Request{Symbol: "EUR/USD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "熔断中")
	assert.Equal(t, 2, stub.calls)
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	stub := &stubSource{failures: 2}
	src := WithBreaker(stub, 2, 20*time.Millisecond)

	_, err := src.LatestPrice(context.Background(), "EUR/USD")
	require.Error(t, err)
	_, err = src.LatestPrice(context.Background(), "EUR/USD")
	require.Error(t, err)

	time.Sleep(30 * time.Millisecond)

	// 半开态放行探测，成功后恢复
	price, err := src.LatestPrice(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, 1.10, price)
}
