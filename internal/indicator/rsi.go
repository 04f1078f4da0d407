// Package indicator 提供策略用到的技术指标计算。
package indicator

// RSI 计算简单平均版相对强弱指数。
// 取 prices 末尾 period+1 个价格形成 period 个差分，涨跌分开求简单平均：
//
//	rsi = 100 - 100/(1+avgGain/avgLoss)
//
// 平均跌幅为 0 时市场单边向上，返回 100。样本不足 period+1 时 ok 为 false。
// 注意这里不是 Wilder 平滑版本，同一序列与 talib.Rsi 的结果不可互换。
func RSI(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) < period+1 {
		return 0, false
	}
	window := prices[len(prices)-period-1:]
	var gain, loss float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss += -delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// RSISeries 对整段价格逐 bar 计算 RSI，前 period 个位置无值（ok=false 对应 NaN 语义）。
// 返回切片与 prices 等长，valid[i] 标记第 i 位是否有值。
func RSISeries(prices []float64, period int) ([]float64, []bool) {
	values := make([]float64, len(prices))
	valid := make([]bool, len(prices))
	for i := range prices {
		v, ok := RSI(prices[:i+1], period)
		values[i] = v
		valid[i] = ok
	}
	return values, valid
}
