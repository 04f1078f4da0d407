// Package report 把回测、walk-forward 与蒙特卡洛的结果落盘成
// HTML 图表（可选 PNG 截图）和 YAML 摘要。
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"fxlab/internal/backtest"
	"fxlab/internal/logger"
	"fxlab/internal/market"
	"fxlab/internal/montecarlo"
	"fxlab/internal/walkforward"
)

type Reporter struct {
	outDir    string
	renderPNG bool
	smaPeriod int
}

func NewReporter(outDir string, renderPNG bool, smaPeriod int) *Reporter {
	if outDir == "" {
		outDir = "data/reports"
	}
	if smaPeriod <= 0 {
		smaPeriod = 20
	}
	return &Reporter{outDir: outDir, renderPNG: renderPNG, smaPeriod: smaPeriod}
}

// Artifacts 是一次落盘产出的文件路径。
type Artifacts struct {
	HTML    string `json:"html,omitempty"`
	PNG     string `json:"png,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// WriteBacktest 输出权益曲线图与 YAML 摘要。
func (r *Reporter) WriteBacktest(ctx context.Context, name string, bars []market.Bar, result backtest.Result, sum backtest.Summary) (Artifacts, error) {
	chart, err := buildEquityChart(name, bars, result, r.smaPeriod)
	if err != nil {
		return Artifacts{}, err
	}
	return r.write(ctx, name+"_backtest", chart, map[string]any{
		"kind":    "backtest",
		"name":    name,
		"summary": sum,
	})
}

// BacktestHTMLPath 返回某次回测图表的 HTML 落盘路径，不保证文件已存在。
func (r *Reporter) BacktestHTMLPath(name string) string {
	return filepath.Join(r.outDir, name+"_backtest.html")
}

// WriteWalkForward 输出逐窗口训练/验证对比图与 YAML 摘要。
func (r *Reporter) WriteWalkForward(ctx context.Context, name string, rep walkforward.Report) (Artifacts, error) {
	chart, err := buildWalkForwardChart(name, rep)
	if err != nil {
		return Artifacts{}, err
	}
	return r.write(ctx, name+"_walkforward", chart, map[string]any{
		"kind":   "walkforward",
		"name":   name,
		"report": rep,
	})
}

// WriteMonteCarlo 输出期末收益分布直方图与 YAML 摘要。
func (r *Reporter) WriteMonteCarlo(ctx context.Context, name string, rep montecarlo.Report) (Artifacts, error) {
	chart, err := buildMonteCarloChart(name, rep)
	if err != nil {
		return Artifacts{}, err
	}
	summary := rep
	summary.FinalCapitals = nil // 摘要不带逐次明细
	return r.write(ctx, name+"_montecarlo", chart, map[string]any{
		"kind":   "montecarlo",
		"name":   name,
		"report": summary,
	})
}

type renderable interface {
	Render(w io.Writer) error
}

func (r *Reporter) write(ctx context.Context, stem string, chart renderable, summary map[string]any) (Artifacts, error) {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("创建报告目录失败: %w", err)
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return Artifacts{}, fmt.Errorf("渲染图表失败: %w", err)
	}
	arts := Artifacts{
		HTML:    filepath.Join(r.outDir, stem+".html"),
		Summary: filepath.Join(r.outDir, stem+".yaml"),
	}
	if err := os.WriteFile(arts.HTML, buf.Bytes(), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("写入 HTML 失败: %w", err)
	}
	data, err := yaml.Marshal(summary)
	if err != nil {
		return Artifacts{}, fmt.Errorf("序列化摘要失败: %w", err)
	}
	if err := os.WriteFile(arts.Summary, data, 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("写入摘要失败: %w", err)
	}
	if r.renderPNG {
		pngPath := filepath.Join(r.outDir, stem+".png")
		png, err := renderHTMLToPNG(ctx, buf.Bytes(), chartWidthPx, chartHeightPx)
		if err != nil {
			// 无浏览器环境时 HTML 与 YAML 仍然可用
			logger.Warnf("PNG 截图失败，保留 HTML: %v", err)
		} else if err := os.WriteFile(pngPath, png, 0o644); err != nil {
			logger.Warnf("写入 PNG 失败: %v", err)
		} else {
			arts.PNG = pngPath
		}
	}
	logger.Infof("报告已写入 %s", arts.HTML)
	return arts, nil
}
