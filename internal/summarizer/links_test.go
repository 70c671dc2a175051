package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name      string
		sentences []string
		want      []string
	}{
		{
			name:      "裸链接去重",
			sentences: []string{"see http://a.com and again http://a.com"},
			want:      []string{"[http://a.com](http://a.com)"},
		},
		{
			name:      "markdown 链接原样保留",
			sentences: []string{"read [the docs](https://go.dev/doc) first"},
			want:      []string{"[the docs](https://go.dev/doc)"},
		},
		{
			name: "跨句按首次出现排序",
			sentences: []string{
				"first https://b.org/x",
				"then [a](http://a.com) and https://b.org/x",
				"finally https://c.net.",
			},
			want: []string{
				"[https://b.org/x](https://b.org/x)",
				"[a](http://a.com)",
				"[https://c.net](https://c.net)",
			},
		},
		{
			name:      "括号内的链接",
			sentences: []string{"(details at https://example.com/page)"},
			want:      []string{"[https://example.com/page](https://example.com/page)"},
		},
		{
			name:      "markdown 链接的 URL 含成对括号",
			sentences: []string{"see [Foo](https://en.wikipedia.org/wiki/Foo_(bar)) and more"},
			want:      []string{"[Foo](https://en.wikipedia.org/wiki/Foo_(bar))"},
		},
		{
			name:      "括号包裹的 markdown 链接",
			sentences: []string{"(see [a](http://a.com))"},
			want:      []string{"[a](http://a.com)"},
		},
		{
			name:      "无链接",
			sentences: []string{"nothing here", ""},
			want:      []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLinks(tt.sentences))
		})
	}
}

func TestExtractLinks_Idempotent(t *testing.T) {
	sentences := []string{"see http://a.com and [b](https://b.com)", "http://a.com again"}
	first := ExtractLinks(sentences)
	assert.Equal(t, first, ExtractLinks(sentences))
	assert.Equal(t, first, ExtractLinks(append(sentences, sentences...)))
}
