// Package money 提供金额与汇率的格式化工具，对外展示统一走这里。
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

func dec(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

// Price 汇率报价，保留 5 位小数（外汇常规精度）。
func Price(val float64) string {
	return dec(val).StringFixed(5)
}

// Amount 账户金额，保留 2 位小数。
func Amount(val float64) string {
	return dec(val).StringFixed(2)
}

// SignedAmount 带正负号的金额，用于盈亏展示。
func SignedAmount(val float64) string {
	d := dec(val)
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// Percent 百分比数值，保留 2 位小数并带 % 后缀，输入已是百分数。
func Percent(val float64) string {
	return dec(val).StringFixed(2) + "%"
}

// SignedPercent 带正负号的百分比。
func SignedPercent(val float64) string {
	d := dec(val)
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// Units 持仓数量，保留 4 位小数并去掉尾零。
func Units(val float64) string {
	s := dec(val).Round(4)
	return s.String()
}
