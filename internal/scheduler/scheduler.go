package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fachebot/stream-digest/internal/logger"
	"github.com/fachebot/stream-digest/internal/model"
	"github.com/fachebot/stream-digest/internal/svc"
	"github.com/robfig/cron/v3"
)

type pipeline interface {
	Run(ctx context.Context, start, end time.Time) (*Result, error)
}

type interruptMarker interface {
	MarkInterrupted(ctx context.Context) ([]*model.DigestRun, error)
}

// Scheduler 守护进程模式下按 cron 表达式周期运行摘要流程
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	rangeDays int
	runner    pipeline
	runs      interruptMarker // 可选
	now       func() time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
}

// locUTC UTC 标准时间（UTC）
var locUTC = time.UTC

func NewScheduler(runner pipeline, runs interruptMarker, spec string, rangeDays int) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(locUTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		spec:      spec,
		rangeDays: rangeDays,
		runner:    runner,
		runs:      runs,
		now:       time.Now,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	ctx := s.ctx
	s.mu.Unlock()

	// 上次进程退出时仍在运行的记录不会再完成
	if s.runs != nil {
		runs, err := s.runs.MarkInterrupted(ctx)
		if err != nil {
			logger.Errorf("[Scheduler] 标记中断的运行记录失败: %v", err)
		}
		for _, run := range runs {
			logger.Warnf("[Scheduler] 运行 %s 未完成, 已标记为失败, 区间: %s ~ %s",
				run.ID, run.StartTime.Format(time.RFC3339), run.EndTime.Format(time.RFC3339))
		}
	}

	_, err := s.cron.AddFunc(s.spec, s.runScheduled)
	if err != nil {
		return fmt.Errorf("注册摘要任务失败: %w", err)
	}

	s.cron.Start()
	logger.Infof("[Scheduler] 调度器已启动，摘要任务: %s", s.spec)
	return nil
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Infof("[Scheduler] 调度器已停止")
}

// runScheduled 执行一次摘要任务（cron 触发）
func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		logger.Infof("[Scheduler] 任务已取消，退出")
		return
	default:
	}

	start, end := Window(s.now().In(locUTC), s.rangeDays)
	result, err := s.runner.Run(ctx, start, end)
	if err != nil {
		logger.Errorf("[Scheduler] 摘要任务执行失败: %v", err)
		return
	}
	logger.Infof("[Scheduler] 摘要任务完成, %s", result)
}

// NewServiceScheduler 使用服务上下文中的配置与运行记录创建调度器
func NewServiceScheduler(svcCtx *svc.ServiceContext, runner pipeline) *Scheduler {
	c := svcCtx.Config
	s := NewScheduler(runner, nil, c.Schedule.Cron, c.Summary.RangeDays)
	if svcCtx.DigestRunModel != nil {
		s.runs = svcCtx.DigestRunModel
	}
	return s
}
