package papertrade

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fxlab/internal/backtest"
	"fxlab/internal/strategy"
)

// Session 是一次模拟盘会话的对外视图。
type Session struct {
	ID         string            `json:"id"`
	Symbol     string            `json:"symbol"`
	Source     string            `json:"source"`
	Status     SessionStatus     `json:"status"`
	Params     strategy.Params   `json:"params"`
	Summary    *backtest.Summary `json:"summary,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`
}

// SessionStore 用 Gorm + SQLite 持久化模拟盘会话与成交。
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(path string) (*SessionStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("会话库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建会话库目录失败: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&sessionModel{}, &tradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSession 落一条 RUNNING 状态的会话记录。
func (s *SessionStore) CreateSession(id, symbol, source string, params strategy.Params) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("序列化参数失败: %w", err)
	}
	m := sessionModel{
		ID:          id,
		Symbol:      symbol,
		Source:      source,
		Status:      SessionRunning,
		ParamsJSON:  datatypes.JSON(paramsJSON),
		StartedUnix: time.Now().Unix(),
	}
	return s.db.Create(&m).Error
}

// FinishSession 更新终态与汇总。
func (s *SessionStore) FinishSession(id string, status SessionStatus, sum backtest.Summary) error {
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("序列化汇总失败: %w", err)
	}
	return s.db.Model(&sessionModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":       status,
		"summary_json": datatypes.JSON(summaryJSON),
		"finished_at":  time.Now().Unix(),
	}).Error
}

// AppendTrade 追加一笔已平仓成交。
func (s *SessionStore) AppendTrade(sessionID string, seq int, trade strategy.Trade) error {
	detail, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("序列化成交失败: %w", err)
	}
	m := tradeModel{
		SessionID:   sessionID,
		Seq:         seq,
		EntryUnix:   trade.EntryTime.Unix(),
		ExitUnix:    trade.ExitTime.Unix(),
		EntryPrice:  trade.EntryPrice,
		ExitPrice:   trade.ExitPrice,
		Units:       trade.Units,
		PnL:         trade.PnL,
		PnLPct:      trade.PnLPct,
		Reason:      string(trade.Reason),
		DetailJSON:  datatypes.JSON(detail),
		CreatedUnix: time.Now().Unix(),
	}
	return s.db.Create(&m).Error
}

// ListSessions 按开始时间倒序返回会话。
func (s *SessionStore) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []sessionModel
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(models))
	for _, m := range models {
		sess, err := toSession(m)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// GetSession 查询单个会话。
func (s *SessionStore) GetSession(id string) (Session, error) {
	var m sessionModel
	if err := s.db.Where("id = ?", id).First(&m).Error; err != nil {
		return Session{}, err
	}
	return toSession(m)
}

// ListTrades 按序返回会话成交。
func (s *SessionStore) ListTrades(sessionID string) ([]strategy.Trade, error) {
	var models []tradeModel
	if err := s.db.Where("session_id = ?", sessionID).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]strategy.Trade, 0, len(models))
	for _, m := range models {
		var trade strategy.Trade
		if err := json.Unmarshal(m.DetailJSON, &trade); err != nil {
			return nil, fmt.Errorf("解析成交明细失败: %w", err)
		}
		out = append(out, trade)
	}
	return out, nil
}

func toSession(m sessionModel) (Session, error) {
	sess := Session{
		ID:        m.ID,
		Symbol:    m.Symbol,
		Source:    m.Source,
		Status:    m.Status,
		StartedAt: time.Unix(m.StartedUnix, 0),
	}
	if m.FinishedUnix > 0 {
		sess.FinishedAt = time.Unix(m.FinishedUnix, 0)
	}
	if len(m.ParamsJSON) > 0 {
		if err := json.Unmarshal(m.ParamsJSON, &sess.Params); err != nil {
			return Session{}, fmt.Errorf("解析会话参数失败: %w", err)
		}
	}
	if len(m.SummaryJSON) > 0 {
		var sum backtest.Summary
		if err := json.Unmarshal(m.SummaryJSON, &sum); err != nil {
			return Session{}, fmt.Errorf("解析会话汇总失败: %w", err)
		}
		sess.Summary = &sum
	}
	return sess, nil
}
