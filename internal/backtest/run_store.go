package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fxlab/internal/strategy"

	_ "modernc.org/sqlite"
)

// RunStore 管理 backtest_runs/trades/equity 表。
type RunStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewRunStore(root string) (*RunStore, error) {
	if root == "" {
		return nil, fmt.Errorf("run store root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureRunSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &RunStore{db: db, path: path}, nil
}

func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureRunSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			status TEXT NOT NULL,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			capital REAL NOT NULL,
			final_capital REAL NOT NULL DEFAULT 0,
			config_json TEXT NOT NULL,
			summary_json TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			entry_ts INTEGER NOT NULL,
			exit_ts INTEGER NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			units REAL NOT NULL,
			entry_rsi REAL,
			exit_rsi REAL,
			pnl REAL NOT NULL,
			pnl_pct REAL NOT NULL,
			reason TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_equity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			equity REAL NOT NULL,
			price REAL NOT NULL,
			rsi REAL NOT NULL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON backtest_trades(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_equity_run ON backtest_equity(run_id, ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 登记一条新 run（通常 status=pending/running）。
func (s *RunStore) InsertRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := run.MarshalConfig()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(id, symbol, timeframe, status, start_ts, end_ts, capital, final_capital, config_json, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Timeframe, run.Status, run.StartTS, run.EndTS,
		run.Capital, run.FinalCapital, string(cfg), run.Message, now, now)
	return err
}

// CompleteRun 写入结果汇总并把 run 标记为终态。
func (s *RunStore) CompleteRun(ctx context.Context, id, status string, summary Summary, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status=?, final_capital=?, summary_json=?, message=?, updated_at=?, completed_at=?
		WHERE id=?`,
		status, summary.FinalCapital, string(data), message, now, now, id)
	return err
}

// UpdateRunStatus 只改状态与消息（失败路径用）。
func (s *RunStore) UpdateRunStatus(ctx context.Context, id, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs SET status=?, message=?, updated_at=? WHERE id=?`,
		status, message, time.Now().UnixMilli(), id)
	return err
}

// InsertTrades 批量写入成交明细。
func (s *RunStore) InsertTrades(ctx context.Context, runID string, trades []strategy.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades
		(run_id, entry_ts, exit_ts, entry_price, exit_price, units, entry_rsi, exit_rsi, pnl, pnl_pct, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			runID, t.EntryTime.UnixMilli(), t.ExitTime.UnixMilli(),
			t.EntryPrice, t.ExitPrice, t.Units, t.EntryRSI, t.ExitRSI,
			t.PnL, t.PnLPct, string(t.Reason)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertEquity 批量写入权益曲线。
func (s *RunStore) InsertEquity(ctx context.Context, runID string, points []strategy.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_equity (run_id, ts, equity, price, rsi)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, runID, p.Time.UnixMilli(), p.Equity, p.Price, p.RSI); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListRuns 按创建时间倒序返回 run 列表。
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, timeframe, status, start_ts, end_ts, capital, final_capital,
		       config_json, summary_json, message, created_at, updated_at, completed_at
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun 按 ID 读取 run。
func (s *RunStore) GetRun(ctx context.Context, id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, timeframe, status, start_ts, end_ts, capital, final_capital,
		       config_json, summary_json, message, created_at, updated_at, completed_at
		FROM backtest_runs WHERE id=?`, id)
	return scanRun(row)
}

// ListTrades 返回某 run 的成交明细（按入场时间升序）。
func (s *RunStore) ListTrades(ctx context.Context, runID string) ([]strategy.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_ts, exit_ts, entry_price, exit_price, units, entry_rsi, exit_rsi, pnl, pnl_pct, reason
		FROM backtest_trades WHERE run_id=? ORDER BY entry_ts ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var trades []strategy.Trade
	for rows.Next() {
		var t strategy.Trade
		var entryTS, exitTS int64
		var reason string
		if err := rows.Scan(&entryTS, &exitTS, &t.EntryPrice, &t.ExitPrice, &t.Units,
			&t.EntryRSI, &t.ExitRSI, &t.PnL, &t.PnLPct, &reason); err != nil {
			return nil, err
		}
		t.EntryTime = timeFromMillis(entryTS)
		t.ExitTime = timeFromMillis(exitTS)
		t.Reason = strategy.ExitReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListEquity 返回某 run 的权益曲线（按时间升序）。
func (s *RunStore) ListEquity(ctx context.Context, runID string) ([]strategy.EquityPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, equity, price, rsi FROM backtest_equity WHERE run_id=? ORDER BY ts ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var points []strategy.EquityPoint
	for rows.Next() {
		var p strategy.EquityPoint
		var ts int64
		if err := rows.Scan(&ts, &p.Equity, &p.Price, &p.RSI); err != nil {
			return nil, err
		}
		p.Time = timeFromMillis(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var cfgJSON string
	var summaryJSON, message sql.NullString
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64
	if err := row.Scan(&run.ID, &run.Symbol, &run.Timeframe, &run.Status,
		&run.StartTS, &run.EndTS, &run.Capital, &run.FinalCapital,
		&cfgJSON, &summaryJSON, &message, &createdAt, &updatedAt, &completedAt); err != nil {
		return Run{}, err
	}
	if cfgJSON != "" {
		if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
			return Run{}, fmt.Errorf("解析 run config 失败: %w", err)
		}
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		if err := json.Unmarshal([]byte(summaryJSON.String), &run.Summary); err != nil {
			return Run{}, fmt.Errorf("解析 run summary 失败: %w", err)
		}
	}
	run.Message = message.String
	run.CreatedAt = timeFromMillis(createdAt)
	run.UpdatedAt = timeFromMillis(updatedAt)
	if completedAt.Valid {
		run.CompletedAt = timeFromMillis(completedAt.Int64)
	}
	return run, nil
}

func timeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
