package zulip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseSize = 64 << 20

// Client Zulip REST API 客户端，仅覆盖摘要流程需要的只读接口
type Client struct {
	baseURL    string
	email      string
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建客户端。site 可以是域名或完整 URL；transport 为 nil 时使用默认传输
func NewClient(site, email, apiKey string, timeout time.Duration, transport http.RoundTripper) *Client {
	baseURL := strings.TrimSuffix(site, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	httpClient := &http.Client{Timeout: timeout}
	if transport != nil {
		httpClient.Transport = transport
	}

	return &Client{
		baseURL:    baseURL,
		email:      email,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// GetStreams 列出服务账号可见的所有频道
func (c *Client) GetStreams(ctx context.Context) ([]Stream, error) {
	var resp streamsResponse
	if err := c.get(ctx, "/api/v1/streams", nil, &resp); err != nil {
		return nil, err
	}

	streams := make([]Stream, 0, len(resp.Streams))
	for _, s := range resp.Streams {
		stream, err := s.toStream()
		if err != nil {
			return nil, err
		}
		streams = append(streams, stream)
	}
	return streams, nil
}

// GetMessages 按查询拉取消息，返回顺序与服务端一致（从旧到新）
func (c *Client) GetMessages(ctx context.Context, req MessagesRequest) ([]Message, error) {
	narrow, err := json.Marshal([]narrowTerm{
		{Negated: false, Operator: "stream", Operand: req.Stream},
	})
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("anchor", strconv.FormatInt(req.Anchor, 10))
	query.Set("num_before", strconv.Itoa(req.NumBefore))
	query.Set("num_after", strconv.Itoa(req.NumAfter))
	query.Set("apply_markdown", strconv.FormatBool(req.ApplyMarkdown))
	query.Set("narrow", string(narrow))

	var resp messagesResponse
	if err := c.get(ctx, "/api/v1/messages", query, &resp); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg, err := m.toMessage()
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// GetMembers 列出组织成员
func (c *Client) GetMembers(ctx context.Context) ([]Member, error) {
	var resp membersResponse
	if err := c.get(ctx, "/api/v1/users", nil, &resp); err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(resp.Members))
	for _, m := range resp.Members {
		member, err := m.toMember()
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("读取 %s 响应失败: %w", path, err)
	}

	var base baseResponse
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.Unmarshal(body, &base)
		return &APIError{Code: base.Code, Msg: base.Msg, StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(body, &base); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, err)
	}
	if base.Result != "success" {
		return &APIError{Code: base.Code, Msg: base.Msg, StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}
