package report

import (
	"fmt"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"

	"fxlab/internal/backtest"
	"fxlab/internal/market"
	"fxlab/internal/montecarlo"
	"fxlab/internal/walkforward"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorEquity        = "#34d399"
	colorPrice         = "#3b82f6"
	colorSMA           = "#fbbf24"
	colorTrain         = "#22d3ee"
	colorTest          = "#fb7185"
	colorHistogram     = "#a78bfa"

	chartWidthPx  = 1600
	chartHeightPx = 600
)

func baseInit() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func withAxes(line *charts.Line, title, subtitle string) {
	line.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         title,
			Subtitle:      subtitle,
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
}

// buildEquityChart 画权益曲线，并叠加归一化价格与其 SMA，方便对照行情走势。
func buildEquityChart(name string, bars []market.Bar, result backtest.Result, smaPeriod int) (*charts.Line, error) {
	if len(result.Equity) == 0 {
		return nil, fmt.Errorf("没有权益数据可画 (%s)", name)
	}
	line := charts.NewLine()
	sub := fmt.Sprintf("起始 %.2f | 期末 %.2f | 成交 %d 笔", result.StartingCapital, result.FinalCapital, len(result.Trades))
	withAxes(line, fmt.Sprintf("权益曲线 %s", name), sub)

	xAxis := make([]string, len(result.Equity))
	equity := make([]opts.LineData, len(result.Equity))
	price := make([]opts.LineData, len(result.Equity))
	// 价格换算成同起点的虚拟权益，两条线共用一个坐标轴
	scale := 0.0
	if p0 := result.Equity[0].Price; p0 > 0 {
		scale = result.StartingCapital / p0
	}
	for i, pt := range result.Equity {
		xAxis[i] = time.UnixMilli(pt.Time.UnixMilli()).UTC().Format("01-02 15:04")
		equity[i] = opts.LineData{Value: round(pt.Equity, 2)}
		price[i] = opts.LineData{Value: round(pt.Price*scale, 2)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", equity,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.AddSeries("Price", price,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorPrice, Width: 1}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	if sma := buildSMASeries(bars, smaPeriod, scale, len(result.Equity)); sma != nil {
		line.AddSeries(fmt.Sprintf("SMA%d", smaPeriod), sma,
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorSMA, Width: 1}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line, nil
}

func buildSMASeries(bars []market.Bar, period int, scale float64, length int) []opts.LineData {
	if len(bars) <= period || period < 2 {
		return nil
	}
	sma := talib.Sma(market.Closes(bars), period)
	sma = sma[len(sma)-min(length, len(sma)):]
	out := make([]opts.LineData, length)
	offset := length - len(sma)
	for i := 0; i < offset; i++ {
		out[i] = opts.LineData{Value: nil}
	}
	for i, v := range sma {
		if math.IsNaN(v) || v == 0 {
			out[offset+i] = opts.LineData{Value: nil}
			continue
		}
		out[offset+i] = opts.LineData{Value: round(v*scale, 2)}
	}
	return out
}

// buildWalkForwardChart 逐窗口对比训练段与验证段收益。
func buildWalkForwardChart(name string, rep walkforward.Report) (*charts.Bar, error) {
	if len(rep.Windows) == 0 {
		return nil, fmt.Errorf("没有窗口数据可画 (%s)", name)
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit()),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Walk-Forward %s", name),
			Subtitle: fmt.Sprintf("一致性 %.0f%% | 训练均值 %.2f%% | 验证均值 %.2f%% | 常胜阈值 %.0f/%.0f",
				rep.Consistency, rep.MeanTrainPct, rep.MeanTestPct, rep.ModeOversold, rep.ModeOverbought),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "收益 %",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	xAxis := make([]string, 0, len(rep.Windows))
	train := make([]opts.BarData, 0, len(rep.Windows))
	test := make([]opts.BarData, 0, len(rep.Windows))
	for _, w := range rep.Windows {
		label := fmt.Sprintf("W%d", w.Index+1)
		if w.Skipped {
			label += "*"
		}
		xAxis = append(xAxis, label)
		if w.Skipped {
			train = append(train, opts.BarData{Value: nil})
			test = append(test, opts.BarData{Value: nil})
			continue
		}
		train = append(train, opts.BarData{Value: round(w.TrainReturnPct, 2), ItemStyle: &opts.ItemStyle{Color: colorTrain}})
		test = append(test, opts.BarData{Value: round(w.TestReturnPct, 2), ItemStyle: &opts.ItemStyle{Color: colorTest}})
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("训练段", train)
	bar.AddSeries("验证段", test)
	return bar, nil
}

// buildMonteCarloChart 画期末收益率直方图并标注分位带。
func buildMonteCarloChart(name string, rep montecarlo.Report) (*charts.Bar, error) {
	if len(rep.FinalCapitals) == 0 {
		return nil, fmt.Errorf("没有试验数据可画 (%s)", name)
	}
	labels, counts := histogram(rep.FinalCapitals, 20)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit()),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Monte Carlo %s (%d 次)", name, rep.Trials),
			Subtitle: fmt.Sprintf("收益中位 %.2f%% | 95%% 区间 [%.2f%%, %.2f%%] | 破产概率 %.2f%%",
				rep.MedianReturnPct, rep.Band95Low, rep.Band95High, rep.RiskOfRuinPct),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "期末资金",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary, Rotate: 45},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "次数",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		data[i] = opts.BarData{Value: c, ItemStyle: &opts.ItemStyle{Color: colorHistogram, Opacity: opts.Float(0.8)}}
	}
	bar.SetXAxis(labels)
	bar.AddSeries("Trials", data)
	return bar, nil
}

// histogram 把数值等宽分桶。所有值相同时落在单桶。
func histogram(values []float64, bins int) (labels []string, counts []int) {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return []string{fmt.Sprintf("%.2f", lo)}, []int{len(values)}
	}
	width := (hi - lo) / float64(bins)
	counts = make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	labels = make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f", lo+width*(float64(i)+0.5))
	}
	return labels, counts
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
