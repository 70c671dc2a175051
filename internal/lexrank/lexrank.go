// Package lexrank 实现基于句子相似度图中心性的抽取式摘要打分（LexRank）。
//
// 模型分两步使用：先用全部文档构建 IDF 统计，再对单个文档的句子打分。
package lexrank

import (
	"math"
)

// DefaultThreshold 相似度低于该值的边不计入图
const DefaultThreshold = 0.03

type LexRank struct {
	stopwords  map[string]struct{}
	idf        map[string]float64
	defaultIDF float64
}

// New 用全部文档（每个文档为句子列表）构建模型
func New(documents [][]string, stopwords map[string]struct{}) *LexRank {
	if stopwords == nil {
		stopwords = map[string]struct{}{}
	}
	lr := &LexRank{stopwords: stopwords}
	lr.calculateIDF(documents)
	return lr
}

// calculateIDF idf(w) = ln(N / df(w))，N 为至少含一个词的文档数；未见过的词取 ln(N + 1)
func (lr *LexRank) calculateIDF(documents [][]string) {
	df := make(map[string]int)
	total := 0
	for _, doc := range documents {
		words := make(map[string]struct{})
		for _, sentence := range doc {
			for _, w := range Tokenize(sentence, lr.stopwords) {
				words[w] = struct{}{}
			}
		}
		if len(words) == 0 {
			continue
		}
		total++
		for w := range words {
			df[w]++
		}
	}

	lr.defaultIDF = math.Log(float64(total + 1))
	lr.idf = make(map[string]float64, len(df))
	for w, n := range df {
		lr.idf[w] = math.Log(float64(total) / float64(n))
	}
}

// IDF 返回词的逆文档频率
func (lr *LexRank) IDF(word string) float64 {
	if v, ok := lr.idf[word]; ok {
		return v
	}
	return lr.defaultIDF
}

// RankSentences 返回每个句子的中心性得分，与输入一一对应。
// fastPower 为 true 时幂迭代每轮对转移矩阵平方以加速收敛。
func (lr *LexRank) RankSentences(sentences []string, threshold float64, fastPower bool) []float64 {
	if len(sentences) == 0 {
		return []float64{}
	}

	tf := make([]map[string]float64, len(sentences))
	for i, s := range sentences {
		counts := make(map[string]float64)
		for _, w := range Tokenize(s, lr.stopwords) {
			counts[w]++
		}
		tf[i] = counts
	}

	similarity := lr.similarityMatrix(tf)
	markov := discreteMarkovMatrix(similarity, threshold)
	return stationaryDistribution(markov, fastPower)
}

// Similarity 返回两个句子的 IDF 加权余弦相似度
func (lr *LexRank) Similarity(a, b string) float64 {
	tfA := make(map[string]float64)
	for _, w := range Tokenize(a, lr.stopwords) {
		tfA[w]++
	}
	tfB := make(map[string]float64)
	for _, w := range Tokenize(b, lr.stopwords) {
		tfB[w]++
	}
	return lr.idfModifiedCosine(tfA, tfB)
}

func (lr *LexRank) similarityMatrix(tf []map[string]float64) [][]float64 {
	n := len(tf)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		matrix[i][i] = 1
		for j := i + 1; j < n; j++ {
			sim := lr.idfModifiedCosine(tf[i], tf[j])
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix
}

func (lr *LexRank) idfModifiedCosine(a, b map[string]float64) float64 {
	numerator := 0.0
	for w, ca := range a {
		if cb, ok := b[w]; ok {
			idf := lr.IDF(w)
			numerator += ca * cb * idf * idf
		}
	}
	if math.Abs(numerator) < 1e-9 {
		return 0
	}

	normA, normB := 0.0, 0.0
	for w, c := range a {
		v := c * lr.IDF(w)
		normA += v * v
	}
	for w, c := range b {
		v := c * lr.IDF(w)
		normB += v * v
	}
	return numerator / math.Sqrt(normA*normB)
}
