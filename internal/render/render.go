// Package render 将排序并摘要后的频道数据渲染为 HTML 文档
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/fachebot/stream-digest/internal/digest"
	"github.com/fachebot/stream-digest/internal/summarizer"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed templates/digest.html
var digestTemplate string

const titleDateLayout = "02 Jan"

type summarySource interface {
	Summarize(channel, topic string) summarizer.Summary
}

// Input 渲染所需的全部数据
type Input struct {
	Site     string
	Start    time.Time
	End      time.Time
	Channels []digest.ChannelDigest // 已排序
	Overview string                 // 可选的 markdown 概述
}

// Document 渲染结果
type Document struct {
	Title string
	HTML  string
}

type Renderer struct {
	summaries summarySource
	tmpl      *template.Template
}

func NewRenderer(summaries summarySource) *Renderer {
	return &Renderer{
		summaries: summaries,
		tmpl:      template.Must(template.New("digest").Parse(digestTemplate)),
	}
}

type pageView struct {
	Title    string
	SiteURL  string
	Overview template.HTML
	Channels []channelView
}

type channelView struct {
	Name   string
	URL    string
	Topics []topicView
}

type topicView struct {
	Name         string
	URL          string
	MessageCount int
	Sentences    []template.HTML
	Links        template.HTML
}

// Render 生成摘要文档，渲染过程中不发起任何网络请求
func (r *Renderer) Render(in Input) (*Document, error) {
	page := pageView{
		Title:    Title(in.Site, in.Start, in.End),
		SiteURL:  "https://" + in.Site,
		Overview: renderMarkdown(in.Overview),
		Channels: make([]channelView, 0, len(in.Channels)),
	}

	for _, cd := range in.Channels {
		cv := channelView{
			Name:   cd.Channel.Name,
			URL:    StreamNarrowURL(in.Site, cd.Channel.ID, cd.Channel.Name),
			Topics: make([]topicView, 0, len(cd.Topics)),
		}
		for _, topic := range cd.Topics {
			summary := r.summaries.Summarize(cd.Channel.Name, topic.Name)
			tv := topicView{
				Name:         topic.Name,
				URL:          TopicNarrowURL(in.Site, cd.Channel.ID, cd.Channel.Name, topic.Name),
				MessageCount: len(topic.Messages),
				Sentences:    make([]template.HTML, len(summary.Sentences)),
			}
			for i, sentence := range summary.Sentences {
				tv.Sentences[i] = renderMarkdown(sentence)
			}
			if len(summary.Links) > 0 {
				tv.Links = renderMarkdown("- " + strings.Join(summary.Links, "\n- "))
			}
			cv.Topics = append(cv.Topics, tv)
		}
		page.Channels = append(page.Channels, cv)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}
	return &Document{Title: page.Title, HTML: buf.String()}, nil
}

// Title 返回文档标题，例如 "chat.example.com weekly summary (01 Feb to 08 Feb)"
func Title(site string, start, end time.Time) string {
	return fmt.Sprintf("%s weekly summary (%s to %s)", site, start.Format(titleDateLayout), end.Format(titleDateLayout))
}

// StreamNarrowURL 返回频道的深链接
func StreamNarrowURL(site string, streamID int64, streamName string) string {
	return fmt.Sprintf("https://%s/#narrow/stream/%d-%s", site, streamID, encodeHashComponent(streamName))
}

// TopicNarrowURL 返回话题的深链接
func TopicNarrowURL(site string, streamID int64, streamName, topic string) string {
	return StreamNarrowURL(site, streamID, streamName) + "/topic/" + encodeHashComponent(topic)
}

// encodeHashComponent 空格转为 "-"，非保留字符以外的字节做百分号编码，最后将 "." 转义为 "%2E"。
// Zulip 服务端自己生成的链接用 "." 代替 "%"（如 "a.2Eb"），两种形式 Web 客户端都能解析
func encodeHashComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('-')
		case c == '.':
			b.WriteString("%2E")
		case isUnreserved(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '~'
}

// renderMarkdown 将 markdown 转为 HTML，聊天内容中的原始 HTML 会被丢弃
func renderMarkdown(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	mdParser := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML,
	})
	return template.HTML(markdown.ToHTML([]byte(text), mdParser, renderer))
}
