package papertrade

import "gorm.io/datatypes"

type SessionStatus string

const (
	SessionRunning  SessionStatus = "RUNNING"
	SessionFinished SessionStatus = "FINISHED"
	SessionStopped  SessionStatus = "STOPPED"
	SessionFailed   SessionStatus = "FAILED"
)

type sessionModel struct {
	ID           string         `gorm:"column:id;primaryKey"`
	Symbol       string         `gorm:"column:symbol;index"`
	Source       string         `gorm:"column:source"`
	Status       SessionStatus  `gorm:"column:status"`
	ParamsJSON   datatypes.JSON `gorm:"column:params_json;type:TEXT"`
	SummaryJSON  datatypes.JSON `gorm:"column:summary_json;type:TEXT"`
	StartedUnix  int64          `gorm:"column:started_at"`
	FinishedUnix int64          `gorm:"column:finished_at"`
}

func (sessionModel) TableName() string { return "paper_sessions" }

type tradeModel struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID   string         `gorm:"column:session_id;index"`
	Seq         int            `gorm:"column:seq"`
	EntryUnix   int64          `gorm:"column:entry_at"`
	ExitUnix    int64          `gorm:"column:exit_at"`
	EntryPrice  float64        `gorm:"column:entry_price"`
	ExitPrice   float64        `gorm:"column:exit_price"`
	Units       float64        `gorm:"column:units"`
	PnL         float64        `gorm:"column:pnl"`
	PnLPct      float64        `gorm:"column:pnl_pct"`
	Reason      string         `gorm:"column:reason"`
	DetailJSON  datatypes.JSON `gorm:"column:detail_json;type:TEXT"`
	CreatedUnix int64          `gorm:"column:created_at"`
}

func (tradeModel) TableName() string { return "paper_trades" }
