package model

import (
	"context"
	"database/sql"
	"time"
)

type FetchStatus string

const (
	FetchStatusOK     FetchStatus = "ok"
	FetchStatusFailed FetchStatus = "failed"
)

// ChannelFetch 一次运行中单个频道的拉取结果
type ChannelFetch struct {
	ID           int64
	RunID        string
	ChannelID    int64
	ChannelName  string
	Status       FetchStatus
	MessageCount int
	ErrorMessage string
	CreatedAt    time.Time
}

type ChannelFetchModel struct {
	db  *sql.DB
	now func() time.Time
}

func NewChannelFetchModel(db *sql.DB) *ChannelFetchModel {
	return &ChannelFetchModel{db: db, now: time.Now}
}

// Record 写入频道拉取结果
func (m *ChannelFetchModel) Record(ctx context.Context, fetch *ChannelFetch) error {
	if fetch.CreatedAt.IsZero() {
		fetch.CreatedAt = m.now().UTC()
	}
	result, err := m.db.ExecContext(ctx,
		`INSERT INTO channel_fetches (run_id, channel_id, channel_name, status, message_count, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fetch.RunID, fetch.ChannelID, fetch.ChannelName, fetch.Status, fetch.MessageCount, fetch.ErrorMessage, fetch.CreatedAt)
	if err != nil {
		return err
	}
	fetch.ID, err = result.LastInsertId()
	return err
}

// ListByRun 按写入顺序返回某次运行的全部拉取结果
func (m *ChannelFetchModel) ListByRun(ctx context.Context, runID string) ([]*ChannelFetch, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, run_id, channel_id, channel_name, status, message_count, error_message, created_at
		 FROM channel_fetches WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fetches []*ChannelFetch
	for rows.Next() {
		var f ChannelFetch
		var status string
		if err := rows.Scan(&f.ID, &f.RunID, &f.ChannelID, &f.ChannelName, &status,
			&f.MessageCount, &f.ErrorMessage, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Status = FetchStatus(status)
		fetches = append(fetches, &f)
	}
	return fetches, rows.Err()
}
