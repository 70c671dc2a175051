package lexrank

import (
	_ "embed"
	"regexp"
	"strings"
	"unicode"
)

//go:embed stopwords_en.txt
var stopwordsEN string

var (
	emailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]*\w`)
	urlRe   = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	wordRe  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// StopwordsEN 英文停用词表
func StopwordsEN() map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(stopwordsEN, "\n") {
		if w := strings.TrimSpace(line); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Tokenize 小写化后按空白切分。形如邮箱或 URL 的片段整体保留，
// 其余片段提取单词，去掉停用词和纯数字。
func Tokenize(text string, stopwords map[string]struct{}) []string {
	tokens := make([]string, 0)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if email := emailRe.FindString(field); email != "" {
			tokens = append(tokens, email)
			continue
		}
		if url := urlRe.FindString(field); url != "" {
			tokens = append(tokens, strings.TrimRight(url, ".,;:!?\"')]>"))
			continue
		}
		for _, word := range wordRe.FindAllString(field, -1) {
			if _, ok := stopwords[word]; ok {
				continue
			}
			if isNumber(word) {
				continue
			}
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
