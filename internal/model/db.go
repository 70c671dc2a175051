package model

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS digest_runs (
	id            TEXT PRIMARY KEY,
	start_time    DATETIME NOT NULL,
	end_time      DATETIME NOT NULL,
	status        TEXT NOT NULL,
	delivered     BOOLEAN NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_digest_runs_status ON digest_runs(status);

CREATE TABLE IF NOT EXISTS channel_fetches (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL REFERENCES digest_runs(id) ON DELETE CASCADE,
	channel_id    INTEGER NOT NULL,
	channel_name  TEXT NOT NULL,
	status        TEXT NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_channel_fetches_run ON channel_fetches(run_id);
`

// Open 打开运行记录数据库并创建表结构。path 为 ":memory:" 时使用内存数据库
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_fk=1", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// SQLite 单写者，内存库也要求所有语句共用同一连接
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建数据库Schema失败: %w", err)
	}
	return db, nil
}
