package summarizer

// Key 定位一个文档：某频道下的某个话题
type Key struct {
	Channel string
	Topic   string
}

// Summary 单个话题的摘要
type Summary struct {
	Sentences []string // 选中的句子，按原文顺序排列
	Links     []string // 文档中出现的全部链接，markdown 格式，按首次出现去重
}

// Summaries 预先计算好的全部话题摘要
type Summaries map[Key]Summary

// Summarize 查找话题摘要，未知话题返回空摘要
func (m Summaries) Summarize(channel, topic string) Summary {
	if summary, ok := m[Key{Channel: channel, Topic: topic}]; ok {
		return summary
	}
	return Summary{Sentences: []string{}, Links: []string{}}
}

// SummarySize 返回摘要句数：不超过 5 句的文档取 1 句，否则取 2 句
func SummarySize(sentences int) int {
	if sentences > 5 {
		return 2
	}
	return 1
}
