// Package httpapi 提供研究工作台的 HTTP API：
// 提交回测/寻优/蒙特卡洛、查询历史结果与缓存行情、浏览模拟盘会话。
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fxlab/internal/app"
	"fxlab/internal/logger"
	"fxlab/internal/market"
)

// Server 把 app 服务层包装成 REST 接口。
type Server struct {
	addr   string
	app    *app.App
	router *gin.Engine
}

func NewServer(addr string, a *app.App) (*Server, error) {
	if a == nil {
		return nil, errors.New("app 不能为空")
	}
	if addr == "" {
		addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s := &Server{addr: addr, app: a, router: router}
	s.registerRoutes()
	return s, nil
}

// Handler 暴露底层路由，测试用。
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleIndex)
	api := s.router.Group("/api")
	api.GET("/timeframes", s.handleTimeframes)
	api.GET("/data", s.handleManifest)
	api.GET("/candles", s.handleCandles)

	bt := api.Group("/backtest")
	bt.POST("/runs", s.handleRunStart)
	bt.GET("/runs", s.handleRunList)
	bt.GET("/runs/:id", s.handleRunDetail)
	bt.GET("/runs/:id/trades", s.handleRunTrades)
	bt.GET("/runs/:id/equity", s.handleRunEquity)

	s.router.GET("/charts/runs/:id", s.handleRunChart)

	api.POST("/walkforward", s.handleWalkForward)
	api.POST("/montecarlo", s.handleMonteCarlo)

	paper := api.Group("/paper")
	paper.GET("/sessions", s.handleSessionList)
	paper.GET("/sessions/:id", s.handleSessionDetail)
	paper.GET("/sessions/:id/trades", s.handleSessionTrades)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "fxlab",
		"source":  s.app.Source.Name(),
		"symbol":  s.app.Cfg.Feed.Symbol,
	})
}

func (s *Server) handleTimeframes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timeframes": market.SupportedTimeframes()})
}

func (s *Server) handleManifest(c *gin.Context) {
	symbol := c.Query("symbol")
	tf := c.Query("timeframe")
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/timeframe 必填"})
		return
	}
	info, err := s.app.MarketStore.Manifest(c.Request.Context(), symbol, tf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifest": info})
}

func (s *Server) handleCandles(c *gin.Context) {
	symbol := c.Query("symbol")
	tf := c.Query("timeframe")
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/timeframe 必填"})
		return
	}
	start, _ := strconv.ParseInt(c.Query("start_ts"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end_ts"), 10, 64)
	if end == 0 {
		end = int64(1) << 62
	}
	bars, err := s.app.MarketStore.RangeBars(c.Request.Context(), symbol, tf, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candles": bars})
}

func (s *Server) handleRunStart(c *gin.Context) {
	var req app.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := s.app.RunBacktest(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.app.RunStore.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, err := s.app.RunStore.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunChart(c *gin.Context) {
	run, err := s.app.RunStore.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	path, err := s.app.BacktestChartPath(run.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.File(path)
}

func (s *Server) handleRunTrades(c *gin.Context) {
	trades, err := s.app.RunStore.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleRunEquity(c *gin.Context) {
	points, err := s.app.RunStore.ListEquity(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity": points})
}

func (s *Server) handleWalkForward(c *gin.Context) {
	var req app.WalkForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, err := s.app.RunWalkForward(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rep})
}

func (s *Server) handleMonteCarlo(c *gin.Context) {
	var req app.MonteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, err := s.app.RunMonteCarlo(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// 响应不带逐次明细，免得一次 1000 试验把 payload 撑大
	rep.FinalCapitals = nil
	c.JSON(http.StatusOK, gin.H{"report": rep})
}

func (s *Server) handleSessionList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	sessions, err := s.app.Sessions.ListSessions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleSessionDetail(c *gin.Context) {
	sess, err := s.app.Sessions.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (s *Server) handleSessionTrades(c *gin.Context) {
	trades, err := s.app.Sessions.ListTrades(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP 服务监听 %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
