package market

import "time"

// Bar 表示单根外汇 K 线（毫秒时间戳，报价为计价货币）。
type Bar struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
}

func (b Bar) Time() time.Time {
	return time.UnixMilli(b.OpenTime).UTC()
}

// Closes 提取收盘价序列，指标与模拟器只消费 close。
func Closes(bars []Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// FromCloses 用收盘价构造最小 Bar 序列，便于测试与导入纯价格数据。
func FromCloses(closes []float64, start int64, step int64) []Bar {
	if step <= 0 {
		step = time.Minute.Milliseconds()
	}
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			OpenTime: start + int64(i)*step,
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
		}
	}
	return bars
}
