package montecarlo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Trials = 200
	return cfg
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Trials = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.InitialCapital = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RuinThreshold = 1
	assert.Error(t, cfg.Validate())
}

func TestRunEmptyReturns(t *testing.T) {
	rs, err := NewResampler(testConfig(), nil)
	require.NoError(t, err)
	report, err := rs.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Trials)
	assert.Empty(t, report.FinalCapitals)
}

func TestRunDeterministicAcrossParallelism(t *testing.T) {
	returns := []float64{0.04, -0.02, 0.05, -0.03, 0.01, 0.06, -0.04, 0.02}

	cfg := testConfig()
	cfg.Parallelism = 1
	rs1, err := NewResampler(cfg, returns)
	require.NoError(t, err)
	r1, err := rs1.Run(context.Background())
	require.NoError(t, err)

	cfg.Parallelism = 8
	rs8, err := NewResampler(cfg, returns)
	require.NoError(t, err)
	r8, err := rs8.Run(context.Background())
	require.NoError(t, err)

	// 同种子同输入必须逐位一致，与并行度无关
	assert.Equal(t, r1.FinalCapitals, r8.FinalCapitals)
	assert.Equal(t, r1, r8)
}

func TestRunDifferentSeedsDiffer(t *testing.T) {
	returns := []float64{0.04, -0.02, 0.05, -0.03, 0.01, 0.06, -0.04, 0.02}
	cfg := testConfig()
	rs1, _ := NewResampler(cfg, returns)
	r1, err := rs1.Run(context.Background())
	require.NoError(t, err)

	cfg.Seed = 7
	rs2, _ := NewResampler(cfg, returns)
	r2, err := rs2.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, r1.FinalCapitals, r2.FinalCapitals)
}

func TestSingleTotalLossAlwaysRuins(t *testing.T) {
	// 单笔 -100% 收益：任何排列第一步即触及破产线
	rs, err := NewResampler(testConfig(), []float64{-1.0})
	require.NoError(t, err)
	report, err := rs.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.RiskOfRuinPct)
	assert.Equal(t, 100.0, report.WorstDrawdownPct)
	for _, fc := range report.FinalCapitals {
		assert.Zero(t, fc)
	}
}

func TestSingleTrialNoRuin(t *testing.T) {
	cfg := testConfig()
	cfg.Trials = 1
	rs, err := NewResampler(cfg, []float64{0.02, -0.01, 0.03})
	require.NoError(t, err)
	report, err := rs.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.RiskOfRuinPct)
	require.Len(t, report.FinalCapitals, 1)
	// 排列不改变复利乘积，单试验终值可直接验算
	expected := 1000.0 * 1.02 * 0.99 * 1.03
	assert.InDelta(t, expected, report.FinalCapitals[0], 1e-9)
	assert.InDelta(t, (expected-1000)/1000*100, report.MeanReturnPct, 1e-9)
	assert.Equal(t, 100.0, report.ProbProfitPct)
}

func TestRuinCheckedBeforePeakUpdate(t *testing.T) {
	// 首笔 -60% 直接跌破 0.5 线：必须判破产且回撤记 100
	cfg := testConfig()
	cfg.Trials = 1
	rs, err := NewResampler(cfg, []float64{-0.6})
	require.NoError(t, err)
	report, err := rs.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.RiskOfRuinPct)
	assert.Equal(t, 100.0, report.MeanDrawdownPct)
	assert.InDelta(t, 400.0, report.FinalCapitals[0], 1e-9)
}

func TestPercentileLinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, percentile(sorted, 50), 1e-12)
	assert.InDelta(t, 1.0, percentile(sorted, 0), 1e-12)
	assert.InDelta(t, 4.0, percentile(sorted, 100), 1e-12)
	// rank = 0.25*3 = 0.75 → 1 + 0.75
	assert.InDelta(t, 1.75, percentile(sorted, 25), 1e-12)
	assert.Equal(t, 9.0, percentile([]float64{9}, 97.5))
	assert.Zero(t, percentile(nil, 50))
}

func TestPopulationStd(t *testing.T) {
	// {2,4,4,4,5,5,7,9} 总体方差 = 4 → 标准差 2
	assert.InDelta(t, 2.0, populationStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Zero(t, populationStd(nil))
}

func TestLoadReturnsFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"symbol":"EUR/USD","returns":[0.02,-0.01,0.05]}`), 0o644))
	rf, err := LoadReturnsFile(good)
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", rf.Symbol)
	assert.Len(t, rf.Returns, 3)

	cases := map[string]string{
		"missing.json": `{"symbol":"EUR/USD"}`,
		"empty.json":   `{"returns":[]}`,
		"type.json":    `{"returns":[0.1,"x"]}`,
		"below.json":   `{"returns":[-1.5]}`,
		"broken.json":  `{"returns":[0.1`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := LoadReturnsFile(path)
		assert.Error(t, err, name)
	}

	_, err = LoadReturnsFile(filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
