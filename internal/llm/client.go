package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/fachebot/stream-digest/internal/config"
	"github.com/fachebot/stream-digest/internal/logger"
	"github.com/sashabaranov/go-openai"
)

// openAIClientInterface 定义 OpenAI 客户端接口，便于测试
type openAIClientInterface interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	config         *config.LLM
	openaiClient   openAIClientInterface
	maxInputTokens int
}

// NewClient httpClient 为空时使用 go-openai 默认客户端
func NewClient(cfg *config.LLM, httpClient *http.Client) *Client {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	if httpClient != nil {
		openaiConfig.HTTPClient = httpClient
	}

	return &Client{
		config:         cfg,
		openaiClient:   openai.NewClientWithConfig(openaiConfig),
		maxInputTokens: cfg.MaxTokens - 2000, // 预留 2000 tokens 给 system prompt 和输出
	}
}

// estimateTokens 估算文本的 token 数量
func estimateTokens(text string) int {
	// 中文约 1.5 token/字，其余按空白分词约 1.3 token/词
	chineseChars := 0
	for _, r := range text {
		if r >= 0x4e00 && r <= 0x9fff {
			chineseChars++
		}
	}
	words := len(strings.Fields(text))

	tokens := int(float64(chineseChars)*1.5 + float64(words)*1.3)
	if tokens < len(text)/4 {
		tokens = len(text) / 4
	}
	return tokens
}

// TopicSummary 单个话题的抽取式摘要，作为概述的输入
type TopicSummary struct {
	Channel      string
	Topic        string
	MessageCount int
	Sentences    []string
}

func (t TopicSummary) promptLine() string {
	return fmt.Sprintf("[#%s > %s | %d messages] %s", t.Channel, t.Topic, t.MessageCount, strings.Join(t.Sentences, " "))
}

// fitToBudget 超出 token 预算时优先丢弃消息数最少的话题，保留的话题维持原有顺序
func fitToBudget(topics []TopicSummary, maxTokens int) []TopicSummary {
	order := make([]int, len(topics))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return topics[order[a]].MessageCount > topics[order[b]].MessageCount
	})

	kept := make([]int, 0, len(topics))
	used := 0
	for _, idx := range order {
		tokens := estimateTokens(topics[idx].promptLine())
		if used+tokens > maxTokens {
			break
		}
		used += tokens
		kept = append(kept, idx)
	}
	sort.Ints(kept)

	result := make([]TopicSummary, len(kept))
	for i, idx := range kept {
		result[i] = topics[idx]
	}
	return result
}

// Overview 根据各话题的摘要生成 2 到 4 句的整体概述，返回 markdown 文本
func (c *Client) Overview(ctx context.Context, topics []TopicSummary) (string, error) {
	if len(topics) == 0 {
		return "", nil
	}

	fitted := fitToBudget(topics, c.maxInputTokens)
	if len(fitted) < len(topics) {
		logger.Infof("[LLM] 摘要内容过长，保留 %d/%d 个话题", len(fitted), len(topics))
	}
	if len(fitted) == 0 {
		return "", fmt.Errorf("token 预算不足以容纳任何话题")
	}

	lines := make([]string, len(fitted))
	for i, t := range fitted {
		lines[i] = t.promptLine()
	}
	return c.complete(ctx, strings.Join(lines, "\n"))
}

func (c *Client) complete(ctx context.Context, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	systemPrompt := `You write the opening paragraph of a weekly digest of a team chat.
Each input line is one conversation: "[#channel > topic | N messages] extracted sentences".
Write 2 to 4 plain sentences in English describing what the community discussed this week,
mentioning the busiest conversations first. Output markdown text only, no headings or lists.`

	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Conversations:\n" + content},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	}

	resp, err := c.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("调用 LLM API 失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM API 返回空结果")
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	result = strings.TrimPrefix(result, "```markdown")
	result = strings.TrimPrefix(result, "```")
	result = strings.TrimSuffix(result, "```")
	return strings.TrimSpace(result), nil
}
