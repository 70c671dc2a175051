package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fachebot/stream-digest/internal/logger"
	"github.com/fachebot/stream-digest/internal/zulip"
	"golang.org/x/sync/errgroup"
)

// channelSource 频道与消息来源（便于测试注入 mock）
type channelSource interface {
	GetStreams(ctx context.Context) ([]zulip.Stream, error)
	GetMessages(ctx context.Context, req zulip.MessagesRequest) ([]zulip.Message, error)
}

// FetchOutcome 单个频道的拉取结果
type FetchOutcome struct {
	Channel Channel
	Fetched int   // 拉取到的消息数
	Kept    int   // 过滤后保留的消息数
	Err     error // 拉取失败的原因，失败的频道按无消息处理
}

// Collection 一次收集的结果，Channels 按频道枚举顺序排列且只包含有消息的频道
type Collection struct {
	Channels []ChannelDigest
	Outcomes []FetchOutcome
}

type Collector struct {
	source      channelSource
	self        string
	numBefore   int
	concurrency int
	timeout     time.Duration
}

func NewCollector(source channelSource, self string, numBefore, concurrency int, timeout time.Duration) *Collector {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Collector{
		source:      source,
		self:        self,
		numBefore:   numBefore,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// Collect 拉取所有频道在 [start, end] 内的消息并按话题分组。
// 单个频道拉取失败不影响整体；消息格式错误则中止。
func (c *Collector) Collect(ctx context.Context, start, end time.Time) (*Collection, error) {
	streams, err := c.source.GetStreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取频道列表失败: %w", err)
	}
	logger.Infof("[Collector] 共 %d 个频道，开始拉取消息", len(streams))

	outcomes := make([]FetchOutcome, len(streams))
	digests := make([]*ChannelDigest, len(streams))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, s := range streams {
		i, s := i, s
		g.Go(func() error {
			channel := Channel{ID: s.ID, Name: s.Name}
			outcome, cd, err := c.collectChannel(gctx, channel, start, end)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			digests[i] = cd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	collection := &Collection{Outcomes: outcomes}
	for _, cd := range digests {
		if cd != nil {
			collection.Channels = append(collection.Channels, *cd)
		}
	}
	logger.Infof("[Collector] 拉取完成，%d 个频道有消息", len(collection.Channels))
	return collection, nil
}

func (c *Collector) collectChannel(ctx context.Context, channel Channel, start, end time.Time) (FetchOutcome, *ChannelDigest, error) {
	outcome := FetchOutcome{Channel: channel}

	fetchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.source.GetMessages(fetchCtx, zulip.NewStreamRequest(channel.Name, c.numBefore))
	if err != nil {
		if errors.Is(err, zulip.ErrMalformedResponse) {
			return outcome, nil, fmt.Errorf("频道 %s 消息格式错误: %w", channel.Name, err)
		}
		logger.Warnf("[Collector] 频道 %s(%d) 拉取失败，按无消息处理: %v", channel.Name, channel.ID, err)
		outcome.Err = err
		return outcome, nil, nil
	}

	outcome.Fetched = len(raw)
	if len(raw) >= c.numBefore {
		logger.Warnf("[Collector] 频道 %s 消息数达到单次上限 %d，较早的消息可能被截断", channel.Name, c.numBefore)
	}

	messages := make([]Message, len(raw))
	for i, m := range raw {
		messages[i] = fromZulip(channel, m)
	}
	messages = Filter(messages, start, end, c.self)
	outcome.Kept = len(messages)

	logger.Debugf("[Collector] 频道 %s: 拉取 %d 条，保留 %d 条", channel.Name, outcome.Fetched, outcome.Kept)
	if len(messages) == 0 {
		return outcome, nil, nil
	}
	return outcome, &ChannelDigest{Channel: channel, Topics: GroupByTopic(messages)}, nil
}
