package summarizer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fachebot/stream-digest/internal/digest"
	"github.com/fachebot/stream-digest/internal/lexrank"
	"github.com/fachebot/stream-digest/internal/logger"
)

var (
	punctuationRe = regexp.MustCompile(`([.?!])\s`)
	lineBreakRe   = regexp.MustCompile("\r\n|[\n\r\v\f\x1c\x1d\x1e\u0085\u2028\u2029]")
)

// Summarizer 基于全部话题构建一次模型，再按话题抽取摘要
type Summarizer struct {
	documents map[Key][]string
	ranker    *lexrank.LexRank
	threshold float64
}

// Build 用全部文档构建全局模型。documents 的值为每个话题的句子序列
func Build(documents map[Key][]string) *Summarizer {
	corpus := make([][]string, 0, len(documents))
	for _, sentences := range documents {
		corpus = append(corpus, sentences)
	}

	logger.Debugf("[Summarizer] 构建模型，共 %d 个文档", len(documents))
	return &Summarizer{
		documents: documents,
		ranker:    lexrank.New(corpus, lexrank.StopwordsEN()),
		threshold: lexrank.DefaultThreshold,
	}
}

// Documents 将频道摘要转换为按 (频道, 话题) 索引的句子序列
func Documents(channels []digest.ChannelDigest) map[Key][]string {
	documents := make(map[Key][]string)
	for _, cd := range channels {
		for _, topic := range cd.Topics {
			bodies := make([]string, len(topic.Messages))
			for i, m := range topic.Messages {
				bodies[i] = m.Body
			}
			documents[Key{Channel: cd.Channel.Name, Topic: topic.Name}] = SplitSentences(bodies)
		}
	}
	return documents
}

// SplitSentences 在句末标点加空白处断句，再按行切分，去掉空行
func SplitSentences(bodies []string) []string {
	cleaned := make([]string, len(bodies))
	for i, body := range bodies {
		cleaned[i] = punctuationRe.ReplaceAllString(body, "$1\n")
	}

	sentences := make([]string, 0)
	for _, line := range lineBreakRe.Split(strings.Join(cleaned, "\n"), -1) {
		if s := strings.TrimSpace(line); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Document 返回话题的句子序列
func (s *Summarizer) Document(channel, topic string) []string {
	return s.documents[Key{Channel: channel, Topic: topic}]
}

// Summarize 抽取话题摘要。选中的句子按原文顺序返回而不是按得分顺序；空文档返回空摘要
func (s *Summarizer) Summarize(channel, topic string) Summary {
	document := s.Document(channel, topic)
	if len(document) == 0 {
		return Summary{Sentences: []string{}, Links: []string{}}
	}

	scores := s.ranker.RankSentences(document, s.threshold, true)
	selected := selectTop(scores, SummarySize(len(document)))

	sentences := make([]string, len(selected))
	for i, idx := range selected {
		sentences[i] = document[idx]
	}
	return Summary{
		Sentences: sentences,
		Links:     ExtractLinks(document),
	}
}

// SummarizeAll 为每个话题各运行一次 LexRank，结果供概述与渲染共用
func (s *Summarizer) SummarizeAll(channels []digest.ChannelDigest) Summaries {
	summaries := make(Summaries)
	for _, cd := range channels {
		for _, topic := range cd.Topics {
			key := Key{Channel: cd.Channel.Name, Topic: topic.Name}
			if _, ok := summaries[key]; ok {
				continue
			}
			summaries[key] = s.Summarize(key.Channel, key.Topic)
		}
	}
	return summaries
}

// selectTop 取得分最高的 n 个下标（同分时靠前者优先），再按下标升序返回
func selectTop(scores []float64, n int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if n > len(order) {
		n = len(order)
	}
	top := order[:n]
	sort.Ints(top)
	return top
}
