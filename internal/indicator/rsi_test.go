package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSIInsufficientData(t *testing.T) {
	prices := []float64{1.10, 1.11, 1.12}
	_, ok := RSI(prices, 14)
	assert.False(t, ok)

	// 恰好 period+1 个价格即可计算
	prices = make([]float64, 15)
	for i := range prices {
		prices[i] = 1.10 + float64(i)*0.001
	}
	v, ok := RSI(prices, 14)
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRSIAllGainsReturns100(t *testing.T) {
	prices := []float64{1.0, 1.1, 1.2, 1.3}
	v, ok := RSI(prices, 3)
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRSIAllLossesReturnsZero(t *testing.T) {
	prices := []float64{1.3, 1.2, 1.1, 1.0}
	v, ok := RSI(prices, 3)
	assert.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-12)
}

func TestRSIBalancedMoves(t *testing.T) {
	// 两涨两跌等幅，avgGain == avgLoss → RSI = 50
	prices := []float64{1.00, 1.01, 1.00, 1.01, 1.00}
	v, ok := RSI(prices, 4)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, v, 1e-9)
}

func TestRSIUsesTrailingWindowOnly(t *testing.T) {
	// 窗口外的历史巨幅波动不应影响结果
	head := []float64{5.0, 0.1, 9.0}
	tail := []float64{1.00, 1.01, 1.00, 1.01, 1.00}
	v1, ok := RSI(tail, 4)
	assert.True(t, ok)
	v2, ok := RSI(append(head, tail...), 4)
	assert.True(t, ok)
	assert.Equal(t, v1, v2)
}

func TestRSIScaleInvariant(t *testing.T) {
	// RSI 只依赖相对变化，整体乘以正常数不改变结果
	prices := []float64{1.10, 1.11, 1.09, 1.12, 1.08, 1.13, 1.10, 1.11}
	for _, scale := range []float64{100, 0.01, 7.3} {
		scaled := make([]float64, len(prices))
		for i, p := range prices {
			scaled[i] = p * scale
		}
		v1, ok := RSI(prices, 4)
		assert.True(t, ok)
		v2, ok := RSI(scaled, 4)
		assert.True(t, ok)
		assert.InDelta(t, v1, v2, 1e-9, "scale=%v", scale)
	}
}

func TestRSIKnownValue(t *testing.T) {
	// 手工演算：涨 3 跌 1 → avgGain=0.015, avgLoss=0.005, RS=3, RSI=75
	prices := []float64{1.000, 1.020, 1.040, 1.020, 1.040}
	v, ok := RSI(prices, 4)
	assert.True(t, ok)
	assert.InDelta(t, 75.0, v, 1e-9)
}

func TestRSISeries(t *testing.T) {
	prices := []float64{1.0, 1.1, 1.2, 1.1, 1.3}
	values, valid := RSISeries(prices, 2)
	assert.Len(t, values, 5)
	assert.False(t, valid[0])
	assert.False(t, valid[1])
	for i := 2; i < 5; i++ {
		assert.True(t, valid[i])
	}
	v, _ := RSI(prices, 2)
	assert.Equal(t, v, values[4])
}
