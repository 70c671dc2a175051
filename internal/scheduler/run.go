package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fachebot/stream-digest/internal/digest"
	"github.com/fachebot/stream-digest/internal/llm"
	"github.com/fachebot/stream-digest/internal/logger"
	"github.com/fachebot/stream-digest/internal/model"
	"github.com/fachebot/stream-digest/internal/render"
	"github.com/fachebot/stream-digest/internal/summarizer"
	"github.com/fachebot/stream-digest/internal/svc"
	"github.com/google/uuid"
)

type collector interface {
	Collect(ctx context.Context, start, end time.Time) (*digest.Collection, error)
}

type deliverer interface {
	Deliver(ctx context.Context, subject, html string) bool
}

type overviewer interface {
	Overview(ctx context.Context, topics []llm.TopicSummary) (string, error)
}

type runLedger interface {
	Create(ctx context.Context, startTime, endTime time.Time) (*model.DigestRun, error)
	MarkCompleted(ctx context.Context, id string, delivered bool) error
	MarkFailed(ctx context.Context, id string, errorMsg string) error
}

type fetchLedger interface {
	Record(ctx context.Context, fetch *model.ChannelFetch) error
}

// Result 一次运行的结果
type Result struct {
	RunID     string
	Title     string
	Channels  int
	Delivered bool
}

// Runner 执行一次完整的摘要流程：拉取、过滤分组、排序、摘要、渲染、投递
type Runner struct {
	site      string
	collector collector
	notifier  deliverer
	overview  overviewer  // 可选
	runs      runLedger   // 可选
	fetches   fetchLedger // 可选
}

func NewRunner(svcCtx *svc.ServiceContext) *Runner {
	c := svcCtx.Config
	r := &Runner{
		site: c.SiteName(),
		collector: digest.NewCollector(
			svcCtx.ZulipClient,
			c.Zulip.Email,
			c.Fetch.NumBefore,
			c.Fetch.Concurrency,
			c.RequestTimeout(),
		),
		notifier: svcCtx.Notifier,
	}
	if svcCtx.LLMClient != nil {
		r.overview = svcCtx.LLMClient
	}
	if svcCtx.DigestRunModel != nil && svcCtx.ChannelFetchModel != nil {
		r.runs = svcCtx.DigestRunModel
		r.fetches = svcCtx.ChannelFetchModel
	}
	return r
}

// Window 返回截至 now 的 rangeDays 天区间
func Window(now time.Time, rangeDays int) (start, end time.Time) {
	return now.AddDate(0, 0, -rangeDays), now
}

// Run 对 [start, end] 执行摘要流程。频道列表获取失败或消息格式错误时返回错误；
// 投递失败只体现在 Result.Delivered 中
func (r *Runner) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	runID, recorded := r.createRun(ctx, start, end)
	result := &Result{RunID: runID}
	logger.Infof("[Runner] 开始运行 %s, 区间: %s ~ %s",
		result.RunID, start.Format(time.RFC3339), end.Format(time.RFC3339))

	collection, err := r.collector.Collect(ctx, start, end)
	if err != nil {
		r.failRun(ctx, result.RunID, recorded, err)
		return nil, err
	}
	r.recordFetches(ctx, result.RunID, recorded, collection.Outcomes)

	channels := digest.Sort(collection.Channels)
	summaries := summarizer.Build(summarizer.Documents(channels)).SummarizeAll(channels)
	result.Channels = len(channels)

	doc, err := render.NewRenderer(summaries).Render(render.Input{
		Site:     r.site,
		Start:    start,
		End:      end,
		Channels: channels,
		Overview: r.buildOverview(ctx, channels, summaries),
	})
	if err != nil {
		r.failRun(ctx, result.RunID, recorded, err)
		return nil, err
	}
	result.Title = doc.Title

	result.Delivered = r.notifier.Deliver(ctx, doc.Title, doc.HTML)
	if !result.Delivered {
		logger.Warnf("[Runner] 运行 %s 投递失败", result.RunID)
	}

	if recorded {
		if err := r.runs.MarkCompleted(ctx, result.RunID, result.Delivered); err != nil {
			logger.Errorf("[Runner] 更新运行记录失败: %v", err)
		}
	}
	logger.Infof("[Runner] 运行 %s 完成, 频道数: %d, 已投递: %v", result.RunID, result.Channels, result.Delivered)
	return result, nil
}

// createRun 写入运行记录。没有记录库或写入失败时使用临时 ID，recorded 为 false，
// 此后不再写入该运行的任何记录
func (r *Runner) createRun(ctx context.Context, start, end time.Time) (id string, recorded bool) {
	if r.runs != nil {
		run, err := r.runs.Create(ctx, start, end)
		if err == nil {
			return run.ID, true
		}
		logger.Errorf("[Runner] 创建运行记录失败, 本次运行不记录: %v", err)
	}
	return uuid.NewString(), false
}

func (r *Runner) failRun(ctx context.Context, runID string, recorded bool, cause error) {
	logger.Errorf("[Runner] 运行 %s 失败: %v", runID, cause)
	if !recorded {
		return
	}
	if err := r.runs.MarkFailed(ctx, runID, cause.Error()); err != nil && !errors.Is(err, model.ErrNotFound) {
		logger.Errorf("[Runner] 更新运行记录失败: %v", err)
	}
}

func (r *Runner) recordFetches(ctx context.Context, runID string, recorded bool, outcomes []digest.FetchOutcome) {
	failed := 0
	for _, o := range outcomes {
		fetch := &model.ChannelFetch{
			RunID:        runID,
			ChannelID:    o.Channel.ID,
			ChannelName:  o.Channel.Name,
			Status:       model.FetchStatusOK,
			MessageCount: o.Kept,
		}
		if o.Err != nil {
			failed++
			fetch.Status = model.FetchStatusFailed
			fetch.ErrorMessage = o.Err.Error()
		}
		if !recorded || r.fetches == nil {
			continue
		}
		if err := r.fetches.Record(ctx, fetch); err != nil {
			logger.Errorf("[Runner] 记录频道 %s 拉取结果失败: %v", o.Channel.Name, err)
		}
	}
	if failed > 0 {
		logger.Warnf("[Runner] %d/%d 个频道拉取失败，已按无消息处理", failed, len(outcomes))
	}
}

// buildOverview 生成可选的整体概述，失败时记录日志并返回空字符串
func (r *Runner) buildOverview(ctx context.Context, channels []digest.ChannelDigest, summaries summarizer.Summaries) string {
	if r.overview == nil || len(channels) == 0 {
		return ""
	}

	var topics []llm.TopicSummary
	for _, cd := range channels {
		for _, topic := range cd.Topics {
			topics = append(topics, llm.TopicSummary{
				Channel:      cd.Channel.Name,
				Topic:        topic.Name,
				MessageCount: len(topic.Messages),
				Sentences:    summaries.Summarize(cd.Channel.Name, topic.Name).Sentences,
			})
		}
	}

	overview, err := r.overview.Overview(ctx, topics)
	if err != nil {
		logger.Warnf("[Runner] 生成概述失败，跳过: %v", err)
		return ""
	}
	return overview
}

func (r *Result) String() string {
	return fmt.Sprintf("run=%s channels=%d delivered=%v", r.RunID, r.Channels, r.Delivered)
}
