// Package notifier 把回测结论与模拟盘成交推送到外部渠道。
package notifier

// TextNotifier defines a minimal text notification interface.
// It is intentionally small so different components can depend on it without
// importing concrete implementations (e.g. Telegram).
type TextNotifier interface {
	SendText(text string) error
}

// Noop 丢弃所有消息，通知未启用时使用。
type Noop struct{}

func (Noop) SendText(string) error { return nil }

// Multi 依次推送到多个渠道，返回第一个错误。
type Multi []TextNotifier

func (m Multi) SendText(text string) error {
	var firstErr error
	for _, n := range m {
		if err := n.SendText(text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
