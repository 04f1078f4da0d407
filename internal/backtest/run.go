package backtest

import (
	"encoding/json"
	"time"

	"fxlab/internal/strategy"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunConfig 记录本次模拟的参数快照，便于重放。
type RunConfig struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Source    string          `json:"source"`
	StartTS   int64           `json:"start_ts"`
	EndTS     int64           `json:"end_ts"`
	Bars      int             `json:"bars"`
	Params    strategy.Params `json:"params"`
	Notes     string          `json:"notes,omitempty"`
}

// Run 表示一次已登记的模拟任务。
type Run struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Timeframe    string    `json:"timeframe"`
	Status       string    `json:"status"`
	StartTS      int64     `json:"start_ts"`
	EndTS        int64     `json:"end_ts"`
	Capital      float64   `json:"capital"`
	FinalCapital float64   `json:"final_capital"`
	Message      string    `json:"message"`
	Config       RunConfig `json:"config"`
	Summary      Summary   `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// MarshalSummary 返回 summary JSON。
func (r Run) MarshalSummary() ([]byte, error) {
	return json.Marshal(r.Summary)
}

// MarshalConfig 返回 config JSON。
func (r Run) MarshalConfig() ([]byte, error) {
	return json.Marshal(r.Config)
}
