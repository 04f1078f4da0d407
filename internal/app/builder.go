package app

import (
	"fmt"
	"path/filepath"
	"time"

	"fxlab/internal/backtest"
	"fxlab/internal/config"
	cfgloader "fxlab/internal/config/loader"
	"fxlab/internal/feed"
	"fxlab/internal/logger"
	"fxlab/internal/market"
	"fxlab/internal/notifier"
	"fxlab/internal/papertrade"
	"fxlab/internal/report"
)

// Builder 负责按配置装配 App。各构造器可在测试里替换。
type Builder struct {
	cfg *config.Config

	sourceFn   func(config.FeedConfig) (feed.Source, error)
	notifierFn func(config.NotifyConfig) notifier.TextNotifier
}

type BuilderOption func(*Builder)

// WithSource 替换数据源构造器（测试注入脚本源用）。
func WithSource(fn func(config.FeedConfig) (feed.Source, error)) BuilderOption {
	return func(b *Builder) { b.sourceFn = fn }
}

// WithNotifier 替换通知构造器。
func WithNotifier(fn func(config.NotifyConfig) notifier.TextNotifier) BuilderOption {
	return func(b *Builder) { b.notifierFn = fn }
}

func NewBuilder(cfg *config.Config, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:        cfg,
		sourceFn:   buildSource,
		notifierFn: buildNotifier,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 装配全部部件。任一环节失败时已建资源会被回收。
func (b *Builder) Build() (*App, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	marketStore, err := market.NewStore(filepath.Join(cfg.App.DataDir, "klines"))
	if err != nil {
		return nil, fmt.Errorf("初始化行情缓存失败: %w", err)
	}
	app := &App{Cfg: cfg, MarketStore: marketStore}

	runStore, err := backtest.NewRunStore(filepath.Join(cfg.App.DataDir, "db"))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("初始化回测库失败: %w", err)
	}
	app.RunStore = runStore

	sessions, err := papertrade.NewSessionStore(cfg.Paper.SessionDB)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("初始化会话库失败: %w", err)
	}
	app.Sessions = sessions

	source, err := b.sourceFn(cfg.Feed)
	if err != nil {
		app.Close()
		return nil, err
	}
	retry := feed.RetryPolicy{
		Attempts: cfg.Feed.Retry.Attempts,
		Backoff:  time.Duration(cfg.Feed.Retry.BackoffSeconds) * time.Second,
	}
	guarded := feed.WithBreaker(feed.WithRetry(source, retry),
		cfg.Feed.Breaker.FailureThreshold,
		time.Duration(cfg.Feed.Breaker.CooldownSeconds)*time.Second)
	app.Source = feed.WithCache(guarded, marketStore)

	if cfg.WalkForward.GridPath != "" {
		grids, err := cfgloader.NewGridLoader(cfg.WalkForward.GridPath)
		if err != nil {
			logger.Warnf("阈值网格文件加载失败，使用内置候选: %v", err)
		} else {
			app.Grids = grids
		}
	}

	app.Notifier = b.notifierFn(cfg.Notify)
	app.Reporter = report.NewReporter(cfg.Report.OutDir, cfg.Report.RenderPNG, cfg.Report.SMAPeriod)
	logger.Infof("装配完成: source=%s data_dir=%s", app.Source.Name(), cfg.App.DataDir)
	return app, nil
}

func buildSource(cfg config.FeedConfig) (feed.Source, error) {
	switch cfg.Source {
	case "simulated", "":
		return feed.NewSimulated(cfg.Simulated.Seed, cfg.Simulated.StartPrice, cfg.Simulated.Volatility), nil
	case "yahoo":
		return feed.NewYahoo(""), nil
	case "alphavantage":
		return feed.NewAlphaVantage(cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.APIKey), nil
	case "binance":
		return feed.NewBinance(cfg.Binance.APIKey, cfg.Binance.APISecret), nil
	default:
		return nil, fmt.Errorf("未知的数据源: %s", cfg.Source)
	}
}

func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	var targets notifier.Multi
	if cfg.Telegram.Enabled {
		targets = append(targets, notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if cfg.Email.Enabled {
		targets = append(targets, notifier.NewEmail(
			cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.Username, cfg.Email.Password,
			cfg.Email.From, cfg.Email.To,
		))
	}
	if len(targets) == 0 {
		return notifier.Noop{}
	}
	return targets
}
