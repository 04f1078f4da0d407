// Package montecarlo 对一次回测的逐笔收益做重排重放，
// 用复利口径评估换序之后的收益分布、回撤分布与破产概率。
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Config 控制试验次数与破产判定。
type Config struct {
	Trials         int     `json:"trials"`
	Seed           int64   `json:"seed"`
	InitialCapital float64 `json:"initial_capital"`
	RuinThreshold  float64 `json:"ruin_threshold"`
	Parallelism    int     `json:"parallelism"`
}

func DefaultConfig() Config {
	return Config{
		Trials:         1000,
		Seed:           42,
		InitialCapital: 1000.0,
		RuinThreshold:  0.5,
	}
}

func (c Config) Validate() error {
	if c.Trials < 1 {
		return fmt.Errorf("trials 必须 >= 1, got %d", c.Trials)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital 必须为正, got %.4f", c.InitialCapital)
	}
	if c.RuinThreshold <= 0 || c.RuinThreshold >= 1 {
		return fmt.Errorf("ruin_threshold 必须在 (0,1), got %.4f", c.RuinThreshold)
	}
	return nil
}

// Trial 是单次重排重放的结果。
type Trial struct {
	FinalCapital   float64 `json:"final_capital"`
	ReturnPct      float64 `json:"return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Ruined         bool    `json:"ruined"`
}

// Report 汇总全部试验的分布统计。收益以百分比表示。
type Report struct {
	Trials            int       `json:"trials"`
	TradeCount        int       `json:"trade_count"`
	FinalCapitals     []float64 `json:"final_capitals"`
	MeanReturnPct     float64   `json:"mean_return_pct"`
	MedianReturnPct   float64   `json:"median_return_pct"`
	StdReturnPct      float64   `json:"std_return_pct"`
	Band95Low         float64   `json:"band95_low"`
	Band95High        float64   `json:"band95_high"`
	Band68Low         float64   `json:"band68_low"`
	Band68High        float64   `json:"band68_high"`
	ProbProfitPct     float64   `json:"prob_profit_pct"`
	MeanDrawdownPct   float64   `json:"mean_drawdown_pct"`
	MedianDrawdownPct float64   `json:"median_drawdown_pct"`
	WorstDrawdownPct  float64   `json:"worst_drawdown_pct"`
	RiskOfRuinPct     float64   `json:"risk_of_ruin_pct"`
}

// Resampler 持有一份逐笔收益（小数口径，-1 表示全亏）并执行试验。
type Resampler struct {
	cfg     Config
	returns []float64
}

func NewResampler(cfg Config, returns []float64) (*Resampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Resampler{cfg: cfg, returns: append([]float64(nil), returns...)}, nil
}

// Run 执行全部试验。
// 排列先由单一种子生成器按序产出，之后的重放可以并行进行且各写各的
// 槽位，因此同样输入同样种子下结果逐位一致，与并行度无关。
// 收益序列为空时返回零值 Report，不报错。
func (r *Resampler) Run(ctx context.Context) (Report, error) {
	if len(r.returns) == 0 {
		return Report{}, nil
	}
	cfg := r.cfg
	rng := rand.New(rand.NewSource(cfg.Seed))
	perms := make([][]int, cfg.Trials)
	for i := range perms {
		perms[i] = rng.Perm(len(r.returns))
	}

	trials := make([]Trial, cfg.Trials)
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := range perms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trials[i] = r.replay(perms[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return summarize(trials, len(r.returns)), nil
}

// replay 按给定顺序复利重放。资金一旦触及破产线立即终止本次试验，
// 破产判定先于峰值更新，回撤按 100% 记。
func (r *Resampler) replay(perm []int) Trial {
	initial := r.cfg.InitialCapital
	ruinLine := initial * r.cfg.RuinThreshold
	capital := initial
	peak := initial
	var maxDD float64
	ruined := false

	for _, idx := range perm {
		capital *= 1 + r.returns[idx]
		if capital <= ruinLine {
			ruined = true
			maxDD = 100
			break
		}
		if capital > peak {
			peak = capital
		}
		if dd := (peak - capital) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return Trial{
		FinalCapital:   capital,
		ReturnPct:      (capital - initial) / initial * 100,
		MaxDrawdownPct: maxDD,
		Ruined:         ruined,
	}
}

func summarize(trials []Trial, tradeCount int) Report {
	report := Report{
		Trials:        len(trials),
		TradeCount:    tradeCount,
		FinalCapitals: make([]float64, len(trials)),
	}
	returns := make([]float64, len(trials))
	drawdowns := make([]float64, len(trials))
	profitable := 0
	ruined := 0
	for i, t := range trials {
		report.FinalCapitals[i] = t.FinalCapital
		returns[i] = t.ReturnPct
		drawdowns[i] = t.MaxDrawdownPct
		if t.ReturnPct > 0 {
			profitable++
		}
		if t.Ruined {
			ruined++
		}
	}
	n := float64(len(trials))
	report.MeanReturnPct = mean(returns)
	report.StdReturnPct = populationStd(returns)
	sort.Float64s(returns)
	report.MedianReturnPct = percentile(returns, 50)
	report.Band95Low = percentile(returns, 2.5)
	report.Band95High = percentile(returns, 97.5)
	report.Band68Low = percentile(returns, 16)
	report.Band68High = percentile(returns, 84)
	report.ProbProfitPct = float64(profitable) / n * 100
	report.MeanDrawdownPct = mean(drawdowns)
	sort.Float64s(drawdowns)
	report.MedianDrawdownPct = percentile(drawdowns, 50)
	report.WorstDrawdownPct = drawdowns[len(drawdowns)-1]
	report.RiskOfRuinPct = float64(ruined) / n * 100
	return report
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStd 是总体标准差（n），与均值一起描述整个试验分布。
func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// percentile 要求入参已升序，使用线性插值。
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lower := int(math.Floor(rank))
	if lower >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[lower+1]-sorted[lower])*frac
}
