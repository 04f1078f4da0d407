package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fxlab/internal/app"
	httpapi "fxlab/internal/transport/http"
)

var (
	cfgPath string

	flagSymbol    string
	flagTimeframe string
	flagBars      int
	flagStartTS   int64
	flagEndTS     int64
	flagNotes     string

	flagWindows int
	flagGrid    string

	flagRunID   string
	flagReturns string
	flagTrials  int
	flagSeed    int64

	flagAddr string

	rootCmd = &cobra.Command{
		Use:   "fxlab",
		Short: "RSI 均值回归策略研究工具",
		Long: `fxlab 围绕单一 RSI 均值回归策略提供一套研究流水线：
历史回测、walk-forward 阈值寻优、蒙特卡洛压力测试与纸面模拟盘。`,
	}

	backtestCmd = &cobra.Command{
		Use:   "backtest",
		Short: "对一段历史执行批量回测",
		Run:   runBacktest,
	}

	walkforwardCmd = &cobra.Command{
		Use:     "walkforward",
		Aliases: []string{"wf"},
		Short:   "滚动窗口阈值寻优与样本外验证",
		Run:     runWalkForward,
	}

	montecarloCmd = &cobra.Command{
		Use:     "montecarlo",
		Aliases: []string{"mc"},
		Short:   "重排逐笔收益做蒙特卡洛压力测试",
		Run:     runMonteCarlo,
	}

	paperCmd = &cobra.Command{
		Use:   "paper",
		Short: "以实时报价驱动策略做纸面交易",
		Run:   runPaper,
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "拉取历史 K 线并落入本地缓存",
		Run:   runFetch,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API 服务",
		Run:   runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "配置文件路径 (默认 configs/config.yaml)")

	for _, cmd := range []*cobra.Command{backtestCmd, walkforwardCmd, fetchCmd} {
		cmd.Flags().StringVar(&flagSymbol, "symbol", "", "货币对，如 EUR/USD")
		cmd.Flags().StringVar(&flagTimeframe, "timeframe", "", "K 线周期，如 1d")
		cmd.Flags().IntVar(&flagBars, "bars", 0, "最多取多少根 K 线")
		cmd.Flags().Int64Var(&flagStartTS, "start", 0, "起始毫秒时间戳")
		cmd.Flags().Int64Var(&flagEndTS, "end", 0, "结束毫秒时间戳")
	}
	backtestCmd.Flags().StringVar(&flagNotes, "notes", "", "备注，随结果入库")

	walkforwardCmd.Flags().IntVar(&flagWindows, "windows", 0, "窗口数 (默认取配置)")
	walkforwardCmd.Flags().StringVar(&flagGrid, "grid", "", "阈值网格名")

	montecarloCmd.Flags().StringVar(&flagRunID, "run", "", "复用历史回测的成交收益")
	montecarloCmd.Flags().StringVar(&flagReturns, "returns", "", "外部收益 JSON 文件")
	montecarloCmd.Flags().IntVar(&flagTrials, "trials", 0, "试验次数 (默认取配置)")
	montecarloCmd.Flags().Int64Var(&flagSeed, "seed", 0, "随机种子 (默认取配置)")

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "监听地址 (默认取配置)")

	rootCmd.AddCommand(backtestCmd, walkforwardCmd, montecarloCmd, paperCmd, fetchCmd, serveCmd)
}

// buildApp 装配并返回 App，出错直接退出。
func buildApp() *app.App {
	cfg := loadConfig()
	a, err := app.NewBuilder(cfg).Build()
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	return a
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("输出结果失败: %v", err)
	}
}

func backtestRequest() app.BacktestRequest {
	return app.BacktestRequest{
		Symbol:    flagSymbol,
		Timeframe: flagTimeframe,
		Bars:      flagBars,
		StartTS:   flagStartTS,
		EndTS:     flagEndTS,
		Notes:     flagNotes,
	}
}

func runBacktest(cmd *cobra.Command, args []string) {
	a := buildApp()
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	run, err := a.RunBacktest(ctx, backtestRequest())
	if err != nil {
		log.Fatalf("回测失败: %v", err)
	}
	printJSON(run)
}

func runWalkForward(cmd *cobra.Command, args []string) {
	a := buildApp()
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	rep, err := a.RunWalkForward(ctx, app.WalkForwardRequest{
		Backtest: backtestRequest(),
		Grid:     flagGrid,
		Windows:  flagWindows,
	})
	if err != nil {
		log.Fatalf("walk-forward 失败: %v", err)
	}
	printJSON(rep)
}

func runMonteCarlo(cmd *cobra.Command, args []string) {
	a := buildApp()
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	rep, err := a.RunMonteCarlo(ctx, app.MonteCarloRequest{
		RunID:       flagRunID,
		ReturnsPath: flagReturns,
		Trials:      flagTrials,
		Seed:        flagSeed,
	})
	if err != nil {
		log.Fatalf("蒙特卡洛失败: %v", err)
	}
	// 终端输出不带逐次明细
	rep.FinalCapitals = nil
	printJSON(rep)
}

func runPaper(cmd *cobra.Command, args []string) {
	a := buildApp()
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	sess, _, err := a.RunPaper(ctx)
	if err != nil {
		log.Fatalf("模拟盘失败: %v", err)
	}
	printJSON(sess)
}

func runFetch(cmd *cobra.Command, args []string) {
	a := buildApp()
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	manifest, fetched, err := a.FetchData(ctx, backtestRequest())
	if err != nil {
		log.Fatalf("拉取失败: %v", err)
	}
	fmt.Printf("本次拉取 %d 根\n", fetched)
	printJSON(manifest)
}

func runServe(cmd *cobra.Command, args []string) {
	a := buildApp()
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	addr := flagAddr
	if addr == "" {
		addr = a.Cfg.App.HTTPAddr
	}
	srv, err := httpapi.NewServer(addr, a)
	if err != nil {
		log.Fatalf("初始化 HTTP 服务失败: %v", err)
	}
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("HTTP 服务退出: %v", err)
	}
}
