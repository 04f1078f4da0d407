// Package papertrade 以实时报价驱动策略做纸面交易：不触碰真实账户，
// 成交与会话结论落库并推送通知。
package papertrade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fxlab/internal/backtest"
	"fxlab/internal/feed"
	"fxlab/internal/indicator"
	"fxlab/internal/logger"
	"fxlab/internal/notifier"
	"fxlab/internal/strategy"
)

// Options 控制一次模拟盘会话。
type Options struct {
	Symbol      string
	Interval    time.Duration
	Duration    time.Duration
	HistorySize int
}

func (o Options) withDefaults() Options {
	if o.Symbol == "" {
		o.Symbol = "EUR/USD"
	}
	if o.Interval <= 0 {
		o.Interval = time.Minute
	}
	if o.Duration <= 0 {
		o.Duration = time.Hour
	}
	if o.HistorySize <= 0 {
		o.HistorySize = 100
	}
	return o
}

type Trader struct {
	source feed.Source
	notify notifier.TextNotifier
	store  *SessionStore
	params strategy.Params
	opts   Options
}

// NewTrader 组装模拟盘。store 与 notify 允许为 nil（不落库/不推送）。
func NewTrader(source feed.Source, store *SessionStore, notify notifier.TextNotifier, params strategy.Params, opts Options) (*Trader, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Trader{
		source: source,
		notify: notify,
		store:  store,
		params: params,
		opts:   opts.withDefaults(),
	}, nil
}

// Run 轮询最新报价直至时长耗尽或 ctx 取消。
// 取消时持仓按最后报价以 USER_STOP 平掉，时长耗尽则记 END_OF_DATA。
// 与批量回测不同，平仓后同一轮询周期内允许立即再入场。
func (t *Trader) Run(ctx context.Context) (Session, backtest.Result, error) {
	id := uuid.NewString()
	if t.store != nil {
		if err := t.store.CreateSession(id, t.opts.Symbol, t.source.Name(), t.params); err != nil {
			return Session{}, backtest.Result{}, err
		}
	}
	logger.Infof("模拟盘会话 %s 启动: %s@%s 时长 %s", id, t.opts.Symbol, t.source.Name(), t.opts.Duration)

	result := backtest.Result{StartingCapital: t.params.StartingCapital}
	capital := t.params.StartingCapital
	var (
		pos       strategy.Position
		prices    []float64
		lastPrice float64
		cycle     int
	)

	status := SessionFinished
	finalReason := strategy.ExitEndOfData

	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(t.opts.Duration)
	defer deadline.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			status = SessionStopped
			finalReason = strategy.ExitUserStop
			break loop
		case <-deadline.C:
			break loop
		case <-ticker.C:
		}

		price, err := t.source.LatestPrice(ctx, t.opts.Symbol)
		if err != nil {
			if ctx.Err() != nil {
				status = SessionStopped
				finalReason = strategy.ExitUserStop
				break loop
			}
			logger.Warnf("获取 %s 报价失败: %v", t.opts.Symbol, err)
			continue
		}
		cycle++
		lastPrice = price
		prices = append(prices, price)
		if len(prices) > t.opts.HistorySize {
			prices = prices[len(prices)-t.opts.HistorySize:]
		}

		rsi, ok := indicator.RSI(prices, t.params.RSIPeriod)
		if !ok {
			logger.Debugf("历史不足 %d 个报价，等待中 (%d)", t.params.RSIPeriod+1, len(prices))
			continue
		}
		now := time.Now()

		result.Equity = append(result.Equity, strategy.EquityPoint{
			Time:   now,
			Index:  cycle,
			Equity: strategy.Equity(pos, capital, price),
			Price:  price,
			RSI:    rsi,
		})

		if pos.Open {
			if reason, hit := t.params.ShouldExit(pos, price, rsi); hit {
				pos, capital = t.closeOut(id, &result, pos, capital, price, rsi, now, cycle, reason)
			}
		}
		// 平仓后的同一轮询周期也允许再次入场
		if t.params.ShouldEnter(pos, rsi) {
			pos = t.params.OpenPosition(capital, price, rsi, now, cycle)
			logger.Infof("开仓 %s @%.5f rsi=%.1f units=%.4f", t.opts.Symbol, price, rsi, pos.Units)
			t.push(notifier.TradeOpened(t.opts.Symbol, pos))
		}
	}

	if pos.Open && lastPrice > 0 {
		rsi, _ := indicator.RSI(prices, t.params.RSIPeriod)
		pos, capital = t.closeOut(id, &result, pos, capital, lastPrice, rsi, time.Now(), cycle, finalReason)
	}
	result.FinalCapital = capital
	sum := result.Summarize()

	if t.store != nil {
		if err := t.store.FinishSession(id, status, sum); err != nil {
			logger.Errorf("更新会话 %s 终态失败: %v", id, err)
		}
	}
	t.push(notifier.SessionSummary("模拟盘总结", t.opts.Symbol, sum))
	logger.Infof("模拟盘会话 %s 结束: %d 笔成交, 期末资金 %.2f", id, sum.Trades, sum.FinalCapital)

	sess := Session{
		ID:      id,
		Symbol:  t.opts.Symbol,
		Source:  t.source.Name(),
		Status:  status,
		Params:  t.params,
		Summary: &sum,
	}
	return sess, result, nil
}

func (t *Trader) closeOut(id string, result *backtest.Result, pos strategy.Position, capital, price, rsi float64, now time.Time, cycle int, reason strategy.ExitReason) (strategy.Position, float64) {
	trade, newCapital := strategy.ClosePosition(pos, capital, price, rsi, now, cycle, reason)
	result.Trades = append(result.Trades, trade)
	logger.Infof("平仓 %s @%.5f 原因=%s pnl=%.4f", t.opts.Symbol, price, reason, trade.PnL)
	if t.store != nil {
		if err := t.store.AppendTrade(id, len(result.Trades), trade); err != nil {
			logger.Errorf("记录成交失败: %v", err)
		}
	}
	t.push(notifier.TradeClosed(t.opts.Symbol, trade, newCapital))
	return strategy.Position{}, newCapital
}

func (t *Trader) push(msg notifier.StructuredMessage) {
	if t.notify == nil {
		return
	}
	if err := t.notify.SendText(msg.RenderMarkdown()); err != nil {
		logger.Warnf("推送通知失败: %v", err)
	}
}
