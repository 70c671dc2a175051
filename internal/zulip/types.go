package zulip

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedResponse 响应缺少必需字段或无法解析
var ErrMalformedResponse = errors.New("zulip: malformed response")

// APIError Zulip 返回 result=error 时的错误
type APIError struct {
	Code       string
	Msg        string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zulip: api error (status=%d, code=%s): %s", e.StatusCode, e.Code, e.Msg)
}

// Stream 频道
type Stream struct {
	ID   int64
	Name string
}

// Message 频道消息，字段均已校验
type Message struct {
	ID          int64
	StreamID    int64
	Subject     string
	SenderEmail string
	SenderName  string
	Timestamp   time.Time
	Content     string
	Flags       []string
}

// Member 组织成员
type Member struct {
	FullName string
	Email    string
	IsBot    bool
}

// MessagesRequest 消息查询参数
type MessagesRequest struct {
	Stream        string
	Anchor        int64
	NumBefore     int
	NumAfter      int
	ApplyMarkdown bool
}

// DefaultAnchor 大于任何真实消息 ID，用于从最新消息向前拉取
const DefaultAnchor int64 = 10000000000000000

// NewStreamRequest 构造按频道拉取最新 numBefore 条原始消息的查询
func NewStreamRequest(stream string, numBefore int) MessagesRequest {
	return MessagesRequest{
		Stream:        stream,
		Anchor:        DefaultAnchor,
		NumBefore:     numBefore,
		NumAfter:      0,
		ApplyMarkdown: false,
	}
}

type narrowTerm struct {
	Negated  bool   `json:"negated"`
	Operator string `json:"operator"`
	Operand  string `json:"operand"`
}

type baseResponse struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
	Code   string `json:"code"`
}

type streamJSON struct {
	StreamID *int64  `json:"stream_id"`
	Name     *string `json:"name"`
}

type streamsResponse struct {
	baseResponse
	Streams []streamJSON `json:"streams"`
}

type messageJSON struct {
	ID          *int64   `json:"id"`
	StreamID    *int64   `json:"stream_id"`
	Subject     *string  `json:"subject"`
	SenderEmail *string  `json:"sender_email"`
	SenderName  string   `json:"sender_full_name"`
	Timestamp   *int64   `json:"timestamp"`
	Content     *string  `json:"content"`
	Flags       []string `json:"flags"`
}

type messagesResponse struct {
	baseResponse
	Messages []messageJSON `json:"messages"`
}

type memberJSON struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	IsBot    *bool   `json:"is_bot"`
}

type membersResponse struct {
	baseResponse
	Members []memberJSON `json:"members"`
}

func (s streamJSON) toStream() (Stream, error) {
	if s.StreamID == nil || s.Name == nil {
		return Stream{}, fmt.Errorf("%w: stream 缺少 stream_id 或 name", ErrMalformedResponse)
	}
	return Stream{ID: *s.StreamID, Name: *s.Name}, nil
}

func (m messageJSON) toMessage() (Message, error) {
	missing := ""
	switch {
	case m.ID == nil:
		missing = "id"
	case m.Subject == nil:
		missing = "subject"
	case m.SenderEmail == nil:
		missing = "sender_email"
	case m.Timestamp == nil:
		missing = "timestamp"
	case m.Content == nil:
		missing = "content"
	case m.Flags == nil:
		missing = "flags"
	}
	if missing != "" {
		return Message{}, fmt.Errorf("%w: message 缺少字段 %s", ErrMalformedResponse, missing)
	}

	msg := Message{
		ID:          *m.ID,
		Subject:     *m.Subject,
		SenderEmail: *m.SenderEmail,
		SenderName:  m.SenderName,
		Timestamp:   time.Unix(*m.Timestamp, 0).UTC(),
		Content:     *m.Content,
		Flags:       m.Flags,
	}
	if m.StreamID != nil {
		msg.StreamID = *m.StreamID
	}
	return msg, nil
}

func (m memberJSON) toMember() (Member, error) {
	if m.Email == nil || m.IsBot == nil {
		return Member{}, fmt.Errorf("%w: member 缺少 email 或 is_bot", ErrMalformedResponse)
	}
	member := Member{Email: *m.Email, IsBot: *m.IsBot}
	if m.FullName != nil {
		member.FullName = *m.FullName
	}
	return member, nil
}
