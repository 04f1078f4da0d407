// Package walkforward 实现滚动窗口参数寻优：每个窗口内用训练段选
// RSI 阈值，再在紧随的测试段上验证，以评估参数的样本外稳定性。
package walkforward

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"fxlab/internal/backtest"
	"fxlab/internal/logger"
	"fxlab/internal/market"
	"fxlab/internal/strategy"
)

// DefaultCandidates 是默认阈值候选集，低段做超卖、高段做超买。
var DefaultCandidates = []float64{25, 30, 35, 40, 70, 75, 80}

// Config 控制窗口划分与网格搜索。
type Config struct {
	Windows       int       `json:"windows"`
	TrainFraction float64   `json:"train_fraction"`
	TestFraction  float64   `json:"test_fraction"`
	Candidates    []float64 `json:"candidates"`
	Parallelism   int       `json:"parallelism"`
}

func DefaultConfig() Config {
	return Config{
		Windows:       4,
		TrainFraction: 0.7,
		TestFraction:  0.3,
		Candidates:    append([]float64(nil), DefaultCandidates...),
	}
}

func (c Config) Validate() error {
	if c.Windows < 1 {
		return fmt.Errorf("windows 必须 >= 1, got %d", c.Windows)
	}
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return fmt.Errorf("train_fraction 必须在 (0,1), got %.2f", c.TrainFraction)
	}
	if len(c.Candidates) < 2 {
		return fmt.Errorf("阈值候选至少需要 2 个, got %d", len(c.Candidates))
	}
	return nil
}

// ThresholdPair 是一组待评估的进出场阈值。
type ThresholdPair struct {
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

// Pairs 枚举候选集中所有 oversold < overbought 的组合，顺序稳定。
func Pairs(candidates []float64) []ThresholdPair {
	sorted := append([]float64(nil), candidates...)
	sort.Float64s(sorted)
	var out []ThresholdPair
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			out = append(out, ThresholdPair{Oversold: sorted[i], Overbought: sorted[j]})
		}
	}
	return out
}

// WindowResult 是单个窗口的寻优与验证结论。
type WindowResult struct {
	Index          int     `json:"index"`
	StartIndex     int     `json:"start_index"`
	EndIndex       int     `json:"end_index"`
	Oversold       float64 `json:"oversold"`
	Overbought     float64 `json:"overbought"`
	TrainReturnPct float64 `json:"train_return_pct"`
	TestReturnPct  float64 `json:"test_return_pct"`
	TrainTrades    int     `json:"train_trades"`
	TestTrades     int     `json:"test_trades"`
	Skipped        bool    `json:"skipped"`
	SkipReason     string  `json:"skip_reason,omitempty"`
}

// Report 是全部窗口的汇总。
type Report struct {
	Windows        []WindowResult `json:"windows"`
	Evaluated      int            `json:"evaluated"`
	MeanTrainPct   float64        `json:"mean_train_pct"`
	MeanTestPct    float64        `json:"mean_test_pct"`
	StdTestPct     float64        `json:"std_test_pct"`
	Consistency    float64        `json:"consistency_pct"`
	ModeOversold   float64        `json:"mode_oversold"`
	ModeOverbought float64        `json:"mode_overbought"`
	DegradationPct float64        `json:"degradation_pct"`
}

// Optimizer 对一段历史执行 walk-forward 分析。
type Optimizer struct {
	base strategy.Params
	cfg  Config
}

func NewOptimizer(base strategy.Params, cfg Config) (*Optimizer, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{base: base, cfg: cfg}, nil
}

// Run 划分窗口并逐个寻优。窗口长度 = len(bars)/windows（整除截断，
// 尾部余数丢弃）；窗口内按 train_fraction 切训练/测试段。
// 数据不足以构成完整窗口时直接少产出窗口；训练段最优组合的
// 总收益 <= 0 时整窗保留为跳过标记，不污染汇总统计。
func (o *Optimizer) Run(ctx context.Context, bars []market.Bar) (Report, error) {
	cfg := o.cfg
	windowSize := len(bars) / cfg.Windows
	minLen := o.base.RSIPeriod + 2
	report := Report{}

	pairs := Pairs(cfg.Candidates)
	if len(pairs) == 0 {
		return report, fmt.Errorf("候选集中不存在 oversold < overbought 的组合")
	}

	for w := 0; w < cfg.Windows; w++ {
		start := w * windowSize
		end := start + windowSize
		wr := WindowResult{Index: w, StartIndex: start, EndIndex: end}

		split := int(float64(windowSize) * cfg.TrainFraction)
		if windowSize < 2*minLen || split < minLen || windowSize-split < minLen {
			// 数据撑不起一个窗口时不产出条目，报告里窗口数少于配置值
			logger.Warnf("walkforward 窗口 %d 数据不足(size=%d)，不纳入报告", w, windowSize)
			continue
		}
		train := bars[start : start+split]
		test := bars[start+split : end]

		best, bestSummary, err := o.searchGrid(ctx, train, pairs)
		if err != nil {
			return report, err
		}
		if bestSummary.ReturnPct <= 0 {
			wr.Skipped = true
			wr.SkipReason = "训练段无盈利参数"
			logger.Warnf("walkforward 窗口 %d 训练段最优收益 %.2f%% <= 0，跳过", w, bestSummary.ReturnPct)
			report.Windows = append(report.Windows, wr)
			continue
		}

		sim, err := backtest.NewSimulator(o.base.WithThresholds(best.Oversold, best.Overbought))
		if err != nil {
			return report, err
		}
		testSummary := sim.Run(test).Summarize()

		wr.Oversold = best.Oversold
		wr.Overbought = best.Overbought
		wr.TrainReturnPct = bestSummary.ReturnPct
		wr.TrainTrades = bestSummary.Trades
		wr.TestReturnPct = testSummary.ReturnPct
		wr.TestTrades = testSummary.Trades
		report.Windows = append(report.Windows, wr)
		logger.Infof("walkforward 窗口 %d: 阈值 (%.0f,%.0f) 训练 %.2f%% 测试 %.2f%%",
			w, best.Oversold, best.Overbought, wr.TrainReturnPct, wr.TestReturnPct)
	}

	aggregate(&report)
	return report, nil
}

// searchGrid 并行评估全部阈值组合，返回训练段总收益最高的一组。
// 结果写入按组合序号预分配的槽位，收益相同取枚举序靠前者，保证
// 并行与串行产出完全一致。
func (o *Optimizer) searchGrid(ctx context.Context, train []market.Bar, pairs []ThresholdPair) (ThresholdPair, backtest.Summary, error) {
	summaries := make([]backtest.Summary, len(pairs))
	parallelism := o.cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sim, err := backtest.NewSimulator(o.base.WithThresholds(pair.Oversold, pair.Overbought))
			if err != nil {
				return err
			}
			summaries[i] = sim.Run(train).Summarize()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ThresholdPair{}, backtest.Summary{}, err
	}

	bestIdx := 0
	for i := 1; i < len(pairs); i++ {
		if summaries[i].ReturnPct > summaries[bestIdx].ReturnPct {
			bestIdx = i
		}
	}
	return pairs[bestIdx], summaries[bestIdx], nil
}

func aggregate(report *Report) {
	var trainSum, testSum float64
	var testReturns []float64
	var oversolds, overboughts []float64
	positive := 0
	for _, w := range report.Windows {
		if w.Skipped {
			continue
		}
		report.Evaluated++
		trainSum += w.TrainReturnPct
		testSum += w.TestReturnPct
		testReturns = append(testReturns, w.TestReturnPct)
		oversolds = append(oversolds, w.Oversold)
		overboughts = append(overboughts, w.Overbought)
		if w.TestReturnPct > 0 {
			positive++
		}
	}
	if report.Evaluated == 0 {
		return
	}
	n := float64(report.Evaluated)
	report.MeanTrainPct = trainSum / n
	report.MeanTestPct = testSum / n
	report.StdTestPct = sampleStd(testReturns)
	report.Consistency = float64(positive) / n * 100
	report.ModeOversold = mode(oversolds)
	report.ModeOverbought = mode(overboughts)
	report.DegradationPct = report.MeanTrainPct - report.MeanTestPct
}

// sampleStd 是样本标准差（n-1），单窗口时返回 0。
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// mode 返回出现次数最多的值，并列时取最小值。
func mode(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	bestCount := counts[best]
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best = v
			bestCount = c
		}
	}
	return best
}
