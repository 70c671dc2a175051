package summarizer

import (
	"fmt"
	"regexp"
	"strings"
)

// linkRe 先匹配 markdown 链接，再匹配裸 URL；markdown 链接内部的 URL 不会被重复匹配。
// markdown 链接的 URL 允许包含一层成对括号，如 wiki/Foo_(bar)
var linkRe = regexp.MustCompile(`(\[[^\]]*\]\(https?://(?:[^()\s]|\([^()\s]*\))+\))|(https?://\S+)`)

// ExtractLinks 扫描全部句子中的链接。markdown 链接原样保留，裸 URL 转为 [url](url)，
// 按首次出现顺序去重
func ExtractLinks(sentences []string) []string {
	links := make([]string, 0)
	seen := make(map[string]struct{})
	for _, sentence := range sentences {
		for _, match := range linkRe.FindAllStringSubmatch(sentence, -1) {
			link := match[1]
			if link == "" {
				url := strings.TrimRight(match[2], ".,;:!?\"'>")
				url = trimUnbalancedParen(url)
				link = fmt.Sprintf("[%s](%s)", url, url)
			}
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
		}
	}
	return links
}

// trimUnbalancedParen 去掉结尾多余的右括号，如 "(见 https://a.com)" 中的 ")"
func trimUnbalancedParen(url string) string {
	for strings.HasSuffix(url, ")") && strings.Count(url, ")") > strings.Count(url, "(") {
		url = strings.TrimSuffix(url, ")")
	}
	return url
}
