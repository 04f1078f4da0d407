package config

import (
	"strings"

	"fxlab/internal/strategy"
)

// Config 是 fxlab 的主配置载体。
type Config struct {
	App         AppConfig         `toml:"app"`
	Strategy    StrategyConfig    `toml:"strategy"`
	Feed        FeedConfig        `toml:"feed"`
	WalkForward WalkForwardConfig `toml:"walkforward"`
	MonteCarlo  MonteCarloConfig  `toml:"montecarlo"`
	Paper       PaperConfig       `toml:"paper"`
	Notify      NotifyConfig      `toml:"notify"`
	Report      ReportConfig      `toml:"report"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
	DataDir  string `toml:"data_dir"`
}

// StrategyConfig 对应策略七参数，缺省值与 strategy.DefaultParams 一致。
type StrategyConfig struct {
	RSIPeriod       int     `toml:"rsi_period"`
	RSIOversold     float64 `toml:"rsi_oversold"`
	RSIOverbought   float64 `toml:"rsi_overbought"`
	StartingCapital float64 `toml:"starting_capital"`
	RiskPerTrade    float64 `toml:"risk_per_trade"`
	ProfitTarget    float64 `toml:"profit_target"`
	StopLoss        float64 `toml:"stop_loss"`
}

// Params 转换为策略参数快照。
func (s StrategyConfig) Params() strategy.Params {
	return strategy.Params{
		RSIPeriod:       s.RSIPeriod,
		RSIOversold:     s.RSIOversold,
		RSIOverbought:   s.RSIOverbought,
		StartingCapital: s.StartingCapital,
		RiskPerTrade:    s.RiskPerTrade,
		ProfitTarget:    s.ProfitTarget,
		StopLoss:        s.StopLoss,
	}
}

// FeedConfig 描述行情来源与取数参数。
type FeedConfig struct {
	Source       string             `toml:"source"` // simulated | yahoo | alphavantage | binance
	Symbol       string             `toml:"symbol"`
	Timeframe    string             `toml:"timeframe"`
	Bars         int                `toml:"bars"`
	Retry        RetryConfig        `toml:"retry"`
	Breaker      BreakerConfig      `toml:"breaker"`
	Simulated    SimulatedConfig    `toml:"simulated"`
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
	Binance      BinanceConfig      `toml:"binance"`
}

// RetryConfig 控制外部取数失败后的有界重试。
type RetryConfig struct {
	Attempts       int `toml:"attempts"`
	BackoffSeconds int `toml:"backoff_seconds"`
}

// BreakerConfig 控制数据源熔断：连续失败达到阈值后暂停请求一段时间。
type BreakerConfig struct {
	FailureThreshold int `toml:"failure_threshold"`
	CooldownSeconds  int `toml:"cooldown_seconds"`
}

// SimulatedConfig 控制随机游走数据源。
type SimulatedConfig struct {
	Seed       int64   `toml:"seed"`
	StartPrice float64 `toml:"start_price"`
	Volatility float64 `toml:"volatility"`
}

type AlphaVantageConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type BinanceConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// WalkForwardConfig 控制滚动窗口寻优。
type WalkForwardConfig struct {
	Windows       int     `toml:"windows"`
	TrainFraction float64 `toml:"train_fraction"`
	TestFraction  float64 `toml:"test_fraction"`
	GridPath      string  `toml:"grid_path"`
	Parallelism   int     `toml:"parallelism"`
}

// MonteCarloConfig 控制重排重放试验。
type MonteCarloConfig struct {
	Trials        int     `toml:"trials"`
	Seed          int64   `toml:"seed"`
	RuinThreshold float64 `toml:"ruin_threshold"`
	Parallelism   int     `toml:"parallelism"`
}

// PaperConfig 控制纸面实盘会话。
type PaperConfig struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	DurationMinutes int    `toml:"duration_minutes"`
	HistorySize     int    `toml:"history_size"`
	SessionDB       string `toml:"session_db"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	Email    EmailConfig    `toml:"email"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type EmailConfig struct {
	Enabled  bool     `toml:"enabled"`
	SMTPHost string   `toml:"smtp_host"`
	SMTPPort int      `toml:"smtp_port"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
}

// ReportConfig 控制图表与汇总产物输出。
type ReportConfig struct {
	OutDir    string `toml:"out_dir"`
	RenderPNG bool   `toml:"render_png"`
	SMAPeriod int    `toml:"sma_period"`
}

// NormalizedSource 返回小写去空格后的数据源名。
func (f FeedConfig) NormalizedSource() string {
	return strings.ToLower(strings.TrimSpace(f.Source))
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
