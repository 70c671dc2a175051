package summarizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/fachebot/stream-digest/internal/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rankedDoc 中 "echo foxtrot hotel" 得分最高，"alpha bravo" 次之，但后者在原文中更靠前
var rankedDoc = []string{
	"zulu yankee",
	"alpha bravo",
	"alpha charlie",
	"bravo delta",
	"echo india",
	"echo foxtrot hotel",
	"foxtrot juliet",
	"hotel kilo",
}

func TestSplitSentences(t *testing.T) {
	bodies := []string{
		"Hello there. How are you? Great!\nNew line here",
		"",
		"  \n\n  ",
		"Version 1.2 is out!Really.",
		"Line one\r\nLine two",
	}

	got := SplitSentences(bodies)
	assert.Equal(t, []string{
		"Hello there.",
		"How are you?",
		"Great!",
		"New line here",
		"Version 1.2 is out!Really.",
		"Line one",
		"Line two",
	}, got)
}

func TestSummarySize(t *testing.T) {
	assert.Equal(t, 1, SummarySize(0))
	assert.Equal(t, 1, SummarySize(1))
	assert.Equal(t, 1, SummarySize(5))
	assert.Equal(t, 2, SummarySize(6))
	assert.Equal(t, 2, SummarySize(100))
}

func TestSummarize_OriginalOrderNotRankOrder(t *testing.T) {
	s := Build(map[Key][]string{
		{Channel: "Verona", Topic: "ranked"}: rankedDoc,
		{Channel: "Verona", Topic: "other"}:  {"lorem ipsum"},
	})

	scores := s.ranker.RankSentences(rankedDoc, s.threshold, true)
	require.Greater(t, scores[5], scores[1])

	summary := s.Summarize("Verona", "ranked")
	assert.Equal(t, []string{"alpha bravo", "echo foxtrot hotel"}, summary.Sentences)
	assert.Empty(t, summary.Links)
}

func TestSummarize_Sizes(t *testing.T) {
	docs := map[Key][]string{}
	for n := 0; n <= 8; n++ {
		sentences := make([]string, n)
		for i := range sentences {
			sentences[i] = fmt.Sprintf("sentence word%d shared", i)
		}
		docs[Key{Channel: "c", Topic: fmt.Sprintf("t%d", n)}] = sentences
	}
	s := Build(docs)

	for n := 0; n <= 8; n++ {
		summary := s.Summarize("c", fmt.Sprintf("t%d", n))
		want := SummarySize(n)
		if n < want {
			want = n
		}
		assert.Len(t, summary.Sentences, want, "文档句数 %d", n)
	}
}

func TestSummarize_EmptyAndUnknown(t *testing.T) {
	s := Build(map[Key][]string{{Channel: "c", Topic: "empty"}: {}})

	summary := s.Summarize("c", "empty")
	assert.Empty(t, summary.Sentences)
	assert.Empty(t, summary.Links)

	summary = s.Summarize("nope", "nope")
	assert.Empty(t, summary.Sentences)
	assert.Empty(t, summary.Links)
}

func TestSummarize_EmptyCorpus(t *testing.T) {
	s := Build(nil)
	assert.Empty(t, s.Summarize("c", "t").Sentences)
}

func TestSummarize_LinksFromWholeDocument(t *testing.T) {
	doc := append([]string{}, rankedDoc...)
	doc[7] = "hotel kilo https://example.com/notes"
	s := Build(map[Key][]string{
		{Channel: "c", Topic: "t"}: doc,
		{Channel: "c", Topic: "u"}: {"lorem ipsum"},
	})

	summary := s.Summarize("c", "t")
	assert.NotContains(t, summary.Sentences, doc[7])
	assert.Equal(t, []string{"[https://example.com/notes](https://example.com/notes)"}, summary.Links)
}

func TestSelectTop(t *testing.T) {
	assert.Equal(t, []int{0, 2}, selectTop([]float64{0.9, 0.1, 1.5}, 2))
	assert.Equal(t, []int{0}, selectTop([]float64{1, 1, 1}, 1), "同分时靠前者优先")
	assert.Equal(t, []int{0, 1}, selectTop([]float64{1, 2}, 5))
	assert.Empty(t, selectTop(nil, 2))
}

func TestDocuments(t *testing.T) {
	ts := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	channels := []digest.ChannelDigest{
		{
			Channel: digest.Channel{ID: 99, Name: "Verona"},
			Topics: []digest.TopicGroup{
				{Name: "lunch", Messages: []digest.Message{
					{ID: 1, Topic: "lunch", Body: "Pizza? Sure.", Timestamp: ts},
					{ID: 2, Topic: "lunch", Body: "At noon", Timestamp: ts},
				}},
			},
		},
	}

	docs := Documents(channels)
	assert.Equal(t, map[Key][]string{
		{Channel: "Verona", Topic: "lunch"}: {"Pizza?", "Sure.", "At noon"},
	}, docs)
}

func TestSummarizeAll(t *testing.T) {
	ts := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	messages := func(topic string, bodies ...string) []digest.Message {
		out := make([]digest.Message, len(bodies))
		for i, body := range bodies {
			out[i] = digest.Message{ID: int64(i + 1), Topic: topic, Body: body, Timestamp: ts}
		}
		return out
	}
	channels := []digest.ChannelDigest{
		{
			Channel: digest.Channel{ID: 1, Name: "general"},
			Topics: []digest.TopicGroup{
				{Name: "ranked", Messages: messages("ranked", rankedDoc...)},
				{Name: "links", Messages: messages("links", "notes at https://example.com/notes")},
			},
		},
		{
			Channel: digest.Channel{ID: 2, Name: "dev"},
			Topics: []digest.TopicGroup{
				{Name: "ranked", Messages: messages("ranked", "alpha bravo", "bravo delta")},
			},
		},
	}

	s := Build(Documents(channels))
	summaries := s.SummarizeAll(channels)
	require.Len(t, summaries, 3)
	for key, summary := range summaries {
		assert.Equal(t, s.Summarize(key.Channel, key.Topic), summary, fmt.Sprintf("%s/%s", key.Channel, key.Topic))
		assert.Equal(t, summary, summaries.Summarize(key.Channel, key.Topic))
	}

	unknown := summaries.Summarize("general", "missing")
	assert.NotNil(t, unknown.Sentences)
	assert.NotNil(t, unknown.Links)
	assert.Empty(t, unknown.Sentences)
	assert.Empty(t, unknown.Links)
}
