// Package journal は実行履歴とパートごとの結果を SQLite に記録します。
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// パートの記録状態
const (
	PartDone   = "done"
	PartFailed = "failed"
)

// Run は1回のパイプライン実行です。
type Run struct {
	ID         string
	Input      string
	Mode       string // split または reuse
	State      string
	Parts      int
	FinalWAV   string
	FinalMP3   string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // 実行中はゼロ値
}

// Outcome は実行終了時に記録する内容です。
type Outcome struct {
	State    string
	Parts    int
	FinalWAV string
	FinalMP3 string
	Error    string
}

// Part はパート1つの合成結果です。
type Part struct {
	RunID     string
	Index     int
	Path      string
	Status    string
	Attempts  int
	Elapsed   time.Duration
	Error     string
	UpdatedAt time.Time
}

// Store は SQLite に保存する実行履歴です。
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open は path のデータベースを開き、スキーマを作成します。
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("実行履歴ディレクトリの作成に失敗しました: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("SQLite データベースを開けません: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLite データベースに接続できません: %w", err)
	}

	s := &Store{db: db, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    input_path TEXT NOT NULL,
    mode TEXT NOT NULL,
    state TEXT NOT NULL,
    parts INTEGER NOT NULL DEFAULT 0,
    final_wav TEXT,
    final_mp3 TEXT,
    error TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT
);
CREATE TABLE IF NOT EXISTS parts (
    run_id TEXT NOT NULL,
    part_index INTEGER NOT NULL,
    path TEXT,
    status TEXT NOT NULL,
    attempts INTEGER NOT NULL,
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (run_id, part_index),
    FOREIGN KEY(run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("実行履歴スキーマの作成に失敗しました: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じます。
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() string {
	return s.clock().UTC().Format(time.RFC3339Nano)
}

// StartRun は実行の開始を記録します。
func (s *Store) StartRun(ctx context.Context, run Run) error {
	started := s.now()
	if !run.StartedAt.IsZero() {
		started = run.StartedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, input_path, mode, state, started_at) VALUES(?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.Mode, run.State, started)
	return err
}

// UpdateState は実行中の状態 (ステージ) を更新します。
func (s *Store) UpdateState(ctx context.Context, runID, state string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET state = ? WHERE run_id = ?`, state, runID)
	return err
}

// FinishRun は実行の終了を記録します。
func (s *Store) FinishRun(ctx context.Context, runID string, o Outcome) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, parts = ?, final_wav = ?, final_mp3 = ?, error = ?, finished_at = ?
		 WHERE run_id = ?`,
		o.State, o.Parts, o.FinalWAV, o.FinalMP3, o.Error, s.now(), runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("実行 %s が見つかりません", runID)
	}
	return nil
}

// RecordPart はパートの結果を記録します。同じパートを再度記録した場合は上書きします。
func (s *Store) RecordPart(ctx context.Context, p Part) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parts(run_id, part_index, path, status, attempts, elapsed_ms, error, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, part_index) DO UPDATE SET
		   path=excluded.path, status=excluded.status, attempts=excluded.attempts,
		   elapsed_ms=excluded.elapsed_ms, error=excluded.error, updated_at=excluded.updated_at`,
		p.RunID, p.Index, p.Path, p.Status, p.Attempts, p.Elapsed.Milliseconds(), p.Error, s.now())
	return err
}

// Runs は新しい順に最大 limit 件の実行を返します。
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, input_path, mode, state, parts,
		        COALESCE(final_wav, ''), COALESCE(final_mp3, ''), COALESCE(error, ''),
		        started_at, COALESCE(finished_at, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Input, &r.Mode, &r.State, &r.Parts,
			&r.FinalWAV, &r.FinalMP3, &r.Error, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Parts は実行に含まれるパートの記録をパート番号順に返します。
func (s *Store) Parts(ctx context.Context, runID string) ([]Part, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, part_index, COALESCE(path, ''), status, attempts, elapsed_ms, COALESCE(error, ''), updated_at
		 FROM parts WHERE run_id = ? ORDER BY part_index ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var p Part
		var elapsedMS int64
		var updated string
		if err := rows.Scan(&p.RunID, &p.Index, &p.Path, &p.Status, &p.Attempts, &elapsedMS, &p.Error, &updated); err != nil {
			return nil, err
		}
		p.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		p.UpdatedAt = parseTime(updated)
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
