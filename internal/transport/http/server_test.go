package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxlab/internal/app"
	"fxlab/internal/config"
	"fxlab/internal/feed"
	"fxlab/internal/market"
)

type cycleSource struct{ bars []market.Bar }

func (c *cycleSource) Name() string { return "cycle" }

func (c *cycleSource) FetchBars(_ context.Context, req feed.Request) ([]market.Bar, error) {
	return c.bars, nil
}

func (c *cycleSource) LatestPrice(context.Context, string) (float64, error) {
	return c.bars[len(c.bars)-1].Close, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	pattern := []float64{1.00, 0.99, 0.98, 0.97, 0.98, 0.99}
	var closes []float64
	for i := 0; i < 4; i++ {
		closes = append(closes, pattern...)
	}
	bars := market.FromCloses(closes, 1700000000000, 60_000)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.App.DataDir = dir
	cfg.Paper.SessionDB = filepath.Join(dir, "paper.db")
	cfg.Report.OutDir = filepath.Join(dir, "reports")
	cfg.WalkForward.GridPath = ""
	cfg.Strategy.RSIPeriod = 2
	cfg.Feed.Symbol = "EUR/USD"
	cfg.Feed.Timeframe = "1m"
	cfg.Feed.Bars = len(bars)
	cfg.MonteCarlo.Trials = 20

	a, err := app.NewBuilder(cfg, app.WithSource(func(config.FeedConfig) (feed.Source, error) {
		return &cycleSource{bars: bars}, nil
	})).Build()
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv, err := NewServer(":0", a)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	var doc map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	}
	return w, doc
}

func TestIndexAndTimeframes(t *testing.T) {
	srv := testServer(t)

	w, doc := do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fxlab", doc["service"])

	w, doc = do(t, srv, http.MethodGet, "/api/timeframes", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, doc["timeframes"])
}

func TestBacktestRunLifecycle(t *testing.T) {
	srv := testServer(t)

	w, doc := do(t, srv, http.MethodPost, "/api/backtest/runs", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := doc["run"].(map[string]any)
	id := run["id"].(string)
	assert.Equal(t, "done", run["status"])

	w, doc = do(t, srv, http.MethodGet, "/api/backtest/runs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, doc["runs"], 1)

	w, doc = do(t, srv, http.MethodGet, "/api/backtest/runs/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, doc = do(t, srv, http.MethodGet, "/api/backtest/runs/"+id+"/trades", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, doc["trades"])

	w, doc = do(t, srv, http.MethodGet, "/api/backtest/runs/"+id+"/equity", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, doc["equity"])

	// 缓存已经被取数路径填充
	w, doc = do(t, srv, http.MethodGet, "/api/data?symbol=EUR/USD&timeframe=1m", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 图表 HTML 直接回传文件
	req := httptest.NewRequest(http.MethodGet, "/charts/runs/"+id, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html")

	w, _ = do(t, srv, http.MethodGet, "/api/backtest/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/charts/runs/missing", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonteCarloEndpoint(t *testing.T) {
	srv := testServer(t)

	_, doc := do(t, srv, http.MethodPost, "/api/backtest/runs", `{}`)
	id := doc["run"].(map[string]any)["id"].(string)

	w, doc := do(t, srv, http.MethodPost, "/api/montecarlo", `{"run_id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := doc["report"].(map[string]any)
	assert.Equal(t, float64(20), rep["trials"])
	assert.Nil(t, rep["final_capitals"])

	w, _ = do(t, srv, http.MethodPost, "/api/montecarlo", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWalkForwardEndpoint(t *testing.T) {
	srv := testServer(t)
	srv.app.Cfg.WalkForward.Windows = 2

	w, doc := do(t, srv, http.MethodPost, "/api/walkforward", `{"backtest":{}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := doc["report"].(map[string]any)
	assert.NotEmpty(t, rep["windows"])
}

func TestPaperSessionsEmpty(t *testing.T) {
	srv := testServer(t)
	w, doc := do(t, srv, http.MethodGet, "/api/paper/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, doc["sessions"])
}
