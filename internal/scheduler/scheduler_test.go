package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fachebot/stream-digest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

type stubMarker struct {
	calls int
	runs  []*model.DigestRun
	err   error
}

func (s *stubMarker) MarkInterrupted(ctx context.Context) ([]*model.DigestRun, error) {
	s.calls++
	return s.runs, s.err
}

func TestScheduler_StartMarksInterrupted(t *testing.T) {
	marker := &stubMarker{runs: []*model.DigestRun{{ID: "r1"}, {ID: "r2"}}}
	s := NewScheduler(new(mockPipeline), marker, "0 9 * * 1", 7)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 1, marker.calls)
}

func TestScheduler_StartMarksStoredRunsFailed(t *testing.T) {
	_, runs, _ := newLedger(t)
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	stale, err := runs.Create(context.Background(), start, start.AddDate(0, 0, 7))
	require.NoError(t, err)

	s := NewScheduler(new(mockPipeline), runs, "@weekly", 7)
	require.NoError(t, s.Start())
	s.Stop()

	got, err := runs.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "interrupted", got.ErrorMessage)
}

func TestScheduler_StartInvalidSpec(t *testing.T) {
	s := NewScheduler(new(mockPipeline), nil, "not a cron", 7)
	assert.Error(t, s.Start())
}

func TestScheduler_StartToleratesLedgerError(t *testing.T) {
	marker := &stubMarker{err: errors.New("database is locked")}
	s := NewScheduler(new(mockPipeline), marker, "@weekly", 7)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestScheduler_RunScheduledUsesWindow(t *testing.T) {
	now := time.Date(2025, 2, 8, 9, 30, 0, 0, time.UTC)
	runner := new(mockPipeline)
	runner.On("Run", mock.Anything, now.AddDate(0, 0, -7), now).
		Return(&Result{RunID: "r1", Channels: 3, Delivered: true}, nil).Once()

	s := NewScheduler(runner, nil, "@weekly", 7)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Start())
	defer s.Stop()

	s.runScheduled()
	runner.AssertExpectations(t)
}

func TestScheduler_RunScheduledAfterStop(t *testing.T) {
	runner := new(mockPipeline)
	s := NewScheduler(runner, nil, "@weekly", 7)
	require.NoError(t, s.Start())
	s.Stop()

	s.runScheduled()
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_RunScheduledError(t *testing.T) {
	runner := new(mockPipeline)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	s := NewScheduler(runner, nil, "@weekly", 7)
	require.NoError(t, s.Start())
	defer s.Stop()

	s.runScheduled()
	runner.AssertExpectations(t)
}
