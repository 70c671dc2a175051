package digest

import (
	"time"

	"github.com/fachebot/stream-digest/internal/zulip"
)

// FlagMentioned 消息直接提及了服务账号
const FlagMentioned = "mentioned"

// Message 一条频道消息，拉取后不再修改
type Message struct {
	ID         int64
	ChannelID  int64
	Channel    string
	Topic      string
	Sender     string
	SenderName string
	Timestamp  time.Time
	Body       string
	Flags      []string
}

// HasFlag 判断消息是否带有指定标记
func (m Message) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Channel 频道
type Channel struct {
	ID   int64
	Name string
}

// TopicGroup 同一频道同一话题下的消息，按拉取顺序排列
type TopicGroup struct {
	Name     string
	Messages []Message
}

// ChannelDigest 一个频道的全部话题
type ChannelDigest struct {
	Channel Channel
	Topics  []TopicGroup
}

// MessageCount 返回频道内消息总数
func (cd ChannelDigest) MessageCount() int {
	n := 0
	for _, t := range cd.Topics {
		n += len(t.Messages)
	}
	return n
}

func fromZulip(channel Channel, m zulip.Message) Message {
	return Message{
		ID:         m.ID,
		ChannelID:  channel.ID,
		Channel:    channel.Name,
		Topic:      m.Subject,
		Sender:     m.SenderEmail,
		SenderName: m.SenderName,
		Timestamp:  m.Timestamp,
		Body:       m.Content,
		Flags:      m.Flags,
	}
}
