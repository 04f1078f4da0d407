package config

import (
	"fmt"
	"strings"
)

var validFeedSources = map[string]bool{
	"simulated":    true,
	"yahoo":        true,
	"alphavantage": true,
	"binance":      true,
}

// validate 对配置进行基础校验，非法的静态组合在加载期直接报错。
func validate(c *Config) error {
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Feed.validate(); err != nil {
		return err
	}
	if err := c.WalkForward.validate(); err != nil {
		return err
	}
	if err := c.MonteCarlo.validate(); err != nil {
		return err
	}
	if err := c.Paper.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if err := s.Params().Validate(); err != nil {
		return fmt.Errorf("strategy 配置非法: %w", err)
	}
	return nil
}

func (f *FeedConfig) validate() error {
	src := f.NormalizedSource()
	if !validFeedSources[src] {
		return fmt.Errorf("feed.source 不支持: %s (可选 simulated/yahoo/alphavantage/binance)", f.Source)
	}
	if strings.TrimSpace(f.Symbol) == "" {
		return fmt.Errorf("feed.symbol 不能为空")
	}
	if f.Bars < 0 {
		return fmt.Errorf("feed.bars 不能为负, got %d", f.Bars)
	}
	if f.Retry.Attempts < 1 {
		return fmt.Errorf("feed.retry.attempts 必须 >= 1, got %d", f.Retry.Attempts)
	}
	if src == "alphavantage" && strings.TrimSpace(f.AlphaVantage.APIKey) == "" {
		return fmt.Errorf("feed.alphavantage.api_key 不能为空（source=alphavantage 时必填）")
	}
	return nil
}

func (w *WalkForwardConfig) validate() error {
	if w.Windows < 1 {
		return fmt.Errorf("walkforward.windows 必须 >= 1, got %d", w.Windows)
	}
	if w.TrainFraction <= 0 || w.TrainFraction >= 1 {
		return fmt.Errorf("walkforward.train_fraction 必须在 (0,1), got %.2f", w.TrainFraction)
	}
	if w.TestFraction < 0 || w.TestFraction > 1 {
		return fmt.Errorf("walkforward.test_fraction 必须在 [0,1], got %.2f", w.TestFraction)
	}
	return nil
}

func (m *MonteCarloConfig) validate() error {
	if m.Trials < 1 {
		return fmt.Errorf("montecarlo.trials 必须 >= 1, got %d", m.Trials)
	}
	if m.RuinThreshold <= 0 || m.RuinThreshold >= 1 {
		return fmt.Errorf("montecarlo.ruin_threshold 必须在 (0,1), got %.4f", m.RuinThreshold)
	}
	return nil
}

func (p *PaperConfig) validate() error {
	if p.IntervalSeconds < 1 {
		return fmt.Errorf("paper.interval_seconds 必须 >= 1, got %d", p.IntervalSeconds)
	}
	if p.HistorySize < 1 {
		return fmt.Errorf("paper.history_size 必须 >= 1, got %d", p.HistorySize)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" {
			return fmt.Errorf("notify.telegram.bot_token 不能为空（已启用 telegram）")
		}
		if strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram.chat_id 不能为空（已启用 telegram）")
		}
	}
	if n.Email.Enabled {
		if strings.TrimSpace(n.Email.SMTPHost) == "" {
			return fmt.Errorf("notify.email.smtp_host 不能为空（已启用 email）")
		}
		if strings.TrimSpace(n.Email.From) == "" {
			return fmt.Errorf("notify.email.from 不能为空（已启用 email）")
		}
		if len(n.Email.To) == 0 {
			return fmt.Errorf("notify.email.to 至少需要一个收件人（已启用 email）")
		}
	}
	return nil
}
