// Package symbol 处理货币对符号的解析，以及到各行情源记法的转换。
package symbol

import (
	"fmt"
	"strings"
)

// Pair 是一个已解析的货币对。
type Pair struct {
	Base  string
	Quote string
}

// Parse 解析 "BASE/QUOTE" 形式的货币对，大小写不敏感。
// 其他写法（紧凑形式、交易所 ticker）由各数据源自行兜底。
func Parse(s string) (Pair, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("货币对格式应为 BASE/QUOTE: %s", s)
	}
	base := strings.ToUpper(strings.TrimSpace(parts[0]))
	quote := strings.ToUpper(strings.TrimSpace(parts[1]))
	if base == "" || quote == "" {
		return Pair{}, fmt.Errorf("货币对格式应为 BASE/QUOTE: %s", s)
	}
	return Pair{Base: base, Quote: quote}, nil
}

// Slash 返回内部标准形式 "EUR/USD"。
func (p Pair) Slash() string {
	return p.Base + "/" + p.Quote
}

// Compact 返回无分隔符形式 "EURUSD"。
func (p Pair) Compact() string {
	return p.Base + p.Quote
}

// Yahoo 返回 Yahoo Finance 的外汇 ticker，如 "EURUSD=X"。
func (p Pair) Yahoo() string {
	return p.Compact() + "=X"
}

// Binance 返回 Binance 现货符号。USD 计价对在现货没有直接市场，
// 映射为 USDT 代理（EUR/USD -> EURUSDT）。
func (p Pair) Binance() string {
	quote := p.Quote
	if quote == "USD" {
		quote = "USDT"
	}
	return p.Base + quote
}
