package model

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// DigestRun 一次摘要流程的运行记录
type DigestRun struct {
	ID           string
	StartTime    time.Time
	EndTime      time.Time
	Status       RunStatus
	Delivered    bool
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DigestRunModel struct {
	db  *sql.DB
	now func() time.Time
}

func NewDigestRunModel(db *sql.DB) *DigestRunModel {
	return &DigestRunModel{db: db, now: time.Now}
}

// Create 创建运行记录，状态为 in_progress
func (m *DigestRunModel) Create(ctx context.Context, startTime, endTime time.Time) (*DigestRun, error) {
	now := m.now().UTC()
	run := &DigestRun{
		ID:        uuid.NewString(),
		StartTime: startTime.UTC(),
		EndTime:   endTime.UTC(),
		Status:    RunStatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO digest_runs (id, start_time, end_time, status, delivered, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartTime, run.EndTime, run.Status, run.Delivered, run.ErrorMessage, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Get 按 ID 查询运行记录
func (m *DigestRunModel) Get(ctx context.Context, id string) (*DigestRun, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, status, delivered, error_message, created_at, updated_at
		 FROM digest_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// GetIncompleteRuns 查询所有仍为 in_progress 的运行记录
func (m *DigestRunModel) GetIncompleteRuns(ctx context.Context) ([]*DigestRun, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, status, delivered, error_message, created_at, updated_at
		 FROM digest_runs WHERE status = ? ORDER BY created_at`, RunStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*DigestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkCompleted 标记运行完成，delivered 表示投递是否成功
func (m *DigestRunModel) MarkCompleted(ctx context.Context, id string, delivered bool) error {
	return m.update(ctx,
		`UPDATE digest_runs SET status = ?, delivered = ?, updated_at = ? WHERE id = ?`,
		RunStatusCompleted, delivered, m.now().UTC(), id)
}

// MarkFailed 标记运行失败
func (m *DigestRunModel) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	return m.update(ctx,
		`UPDATE digest_runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		RunStatusFailed, errorMsg, m.now().UTC(), id)
}

// MarkInterrupted 将上次进程退出时未结束的运行标记为失败，返回被标记的记录
func (m *DigestRunModel) MarkInterrupted(ctx context.Context) ([]*DigestRun, error) {
	runs, err := m.GetIncompleteRuns(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	marked := make([]*DigestRun, 0, len(runs))
	for _, run := range runs {
		err := m.update(ctx,
			`UPDATE digest_runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
			RunStatusFailed, "interrupted", now, run.ID, RunStatusInProgress)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return marked, err
		}
		run.Status = RunStatusFailed
		run.ErrorMessage = "interrupted"
		run.UpdatedAt = now
		marked = append(marked, run)
	}
	return marked, nil
}

func (m *DigestRunModel) update(ctx context.Context, query string, args ...any) error {
	result, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*DigestRun, error) {
	var run DigestRun
	var status string
	err := row.Scan(&run.ID, &run.StartTime, &run.EndTime, &status, &run.Delivered,
		&run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	return &run, nil
}
