package config

import "strings"

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppLogPath  = "data/logs/fxlab.log"
	defaultAppHTTPAddr = ":9980"
	defaultAppDataDir  = "data"

	defaultFeedSource    = "simulated"
	defaultFeedSymbol    = "EUR/USD"
	defaultFeedTimeframe = "1d"
	defaultFeedBars      = 500

	defaultRetryAttempts = 3
	defaultRetryBackoff  = 2

	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 60

	defaultSimStartPrice = 1.10
	defaultSimVolatility = 0.002

	defaultAlphaVantageURL = "https://www.alphavantage.co/query"

	defaultWFWindows       = 4
	defaultWFTrainFraction = 0.7
	defaultWFTestFraction  = 0.3
	defaultWFGridPath      = "configs/grids.yaml"

	defaultMCTrials        = 1000
	defaultMCSeed          = 42
	defaultMCRuinThreshold = 0.5

	defaultPaperInterval  = 60
	defaultPaperDuration  = 60
	defaultPaperHistory   = 100
	defaultPaperSessionDB = "data/db/paper.db"

	defaultReportOutDir = "data/reports"
	defaultReportSMA    = 20

	defaultSMTPPort = 465
)

// applyDefaults 为所有子配置应用默认值。
// 只有配置文件里没出现的 key 才会被填默认值，显式写入的值一律尊重。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Feed.applyDefaults(keys)
	c.WalkForward.applyDefaults(keys)
	c.MonteCarlo.applyDefaults(keys)
	c.Paper.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	c.Report.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.data_dir", &a.DataDir, defaultAppDataDir),
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("strategy.rsi_period", &s.RSIPeriod, 14),
		floatFieldDefault("strategy.rsi_oversold", &s.RSIOversold, 30),
		floatFieldDefault("strategy.rsi_overbought", &s.RSIOverbought, 70),
		floatFieldDefault("strategy.starting_capital", &s.StartingCapital, 1000.0),
		floatFieldDefault("strategy.risk_per_trade", &s.RiskPerTrade, 0.05),
		floatFieldDefault("strategy.profit_target", &s.ProfitTarget, 0.10),
		floatFieldDefault("strategy.stop_loss", &s.StopLoss, 0.03),
	)
}

func (f *FeedConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("feed.source", &f.Source, defaultFeedSource),
		stringFieldDefault("feed.symbol", &f.Symbol, defaultFeedSymbol),
		stringFieldDefault("feed.timeframe", &f.Timeframe, defaultFeedTimeframe),
		intFieldDefault("feed.bars", &f.Bars, defaultFeedBars),
		intFieldDefault("feed.retry.attempts", &f.Retry.Attempts, defaultRetryAttempts),
		intFieldDefault("feed.retry.backoff_seconds", &f.Retry.BackoffSeconds, defaultRetryBackoff),
		intFieldDefault("feed.breaker.failure_threshold", &f.Breaker.FailureThreshold, defaultBreakerThreshold),
		intFieldDefault("feed.breaker.cooldown_seconds", &f.Breaker.CooldownSeconds, defaultBreakerCooldown),
		floatFieldDefault("feed.simulated.start_price", &f.Simulated.StartPrice, defaultSimStartPrice),
		floatFieldDefault("feed.simulated.volatility", &f.Simulated.Volatility, defaultSimVolatility),
		stringFieldDefault("feed.alphavantage.base_url", &f.AlphaVantage.BaseURL, defaultAlphaVantageURL),
	)
}

func (w *WalkForwardConfig) applyDefaults(keys keySet) {
	if w == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("walkforward.windows", &w.Windows, defaultWFWindows),
		floatFieldDefault("walkforward.train_fraction", &w.TrainFraction, defaultWFTrainFraction),
		floatFieldDefault("walkforward.test_fraction", &w.TestFraction, defaultWFTestFraction),
		stringFieldDefault("walkforward.grid_path", &w.GridPath, defaultWFGridPath),
	)
}

func (m *MonteCarloConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("montecarlo.trials", &m.Trials, defaultMCTrials),
		fieldDefault{
			key:   "montecarlo.seed",
			need:  func() bool { return m.Seed == 0 },
			apply: func() { m.Seed = defaultMCSeed },
		},
		floatFieldDefault("montecarlo.ruin_threshold", &m.RuinThreshold, defaultMCRuinThreshold),
	)
}

func (p *PaperConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("paper.interval_seconds", &p.IntervalSeconds, defaultPaperInterval),
		intFieldDefault("paper.duration_minutes", &p.DurationMinutes, defaultPaperDuration),
		intFieldDefault("paper.history_size", &p.HistorySize, defaultPaperHistory),
		stringFieldDefault("paper.session_db", &p.SessionDB, defaultPaperSessionDB),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("notify.email.smtp_port", &n.Email.SMTPPort, defaultSMTPPort),
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("report.out_dir", &r.OutDir, defaultReportOutDir),
		intFieldDefault("report.sma_period", &r.SMAPeriod, defaultReportSMA),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
