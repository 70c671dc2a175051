package lexrank

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"
)

const maxPowerIterations = 10000

// discreteMarkovMatrix 相似度不低于阈值的边记为 1，再按行归一化。对角线恒为 1，行和不会为 0。
func discreteMarkovMatrix(similarity [][]float64, threshold float64) *mat.Dense {
	n := len(similarity)
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		degree := 0.0
		for j := 0; j < n; j++ {
			if i == j || similarity[i][j] >= threshold {
				degree++
			}
		}
		for j := 0; j < n; j++ {
			if i == j || similarity[i][j] >= threshold {
				m.Set(i, j, 1/degree)
			}
		}
	}
	return m
}

// stationaryDistribution 对每个连通分量分别做幂迭代，得分不做整体归一化（每个分量的得分之和等于分量大小）
func stationaryDistribution(transition *mat.Dense, fastPower bool) []float64 {
	n, _ := transition.Dims()
	distribution := make([]float64, n)
	for _, group := range connectedComponents(transition) {
		sub := mat.NewDense(len(group), len(group), nil)
		for a, i := range group {
			for b, j := range group {
				sub.Set(a, b, transition.At(i, j))
			}
		}
		vec := powerMethod(sub, fastPower)
		for a, i := range group {
			distribution[i] = vec[a]
		}
	}
	return distribution
}

// connectedComponents 返回按最小下标排序的连通分量，分量内下标升序
func connectedComponents(m *mat.Dense) [][]int {
	n, _ := m.Dims()
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if m.At(i, j) > 0 || m.At(j, i) > 0 {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}

	components := topo.ConnectedComponents(g)
	groups := make([][]int, 0, len(components))
	for _, nodes := range components {
		group := make([]int, len(nodes))
		for k, node := range nodes {
			group[k] = int(node.ID())
		}
		sort.Ints(group)
		groups = append(groups, group)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })
	return groups
}

// powerMethod 从全 1 向量开始，对转移矩阵的转置做幂迭代，直到相邻两次结果足够接近
func powerMethod(transition *mat.Dense, fastPower bool) []float64 {
	n, _ := transition.Dims()
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	v := mat.NewVecDense(n, ones)
	if n == 1 {
		return ones
	}

	t := mat.DenseCopyOf(transition.T())
	for iter := 0; iter < maxPowerIterations; iter++ {
		next := mat.NewVecDense(n, nil)
		next.MulVec(t, v)
		if allClose(next, v) {
			return vecData(next)
		}
		v = next
		if fastPower {
			var squared mat.Dense
			squared.Mul(t, t)
			t = &squared
		}
	}
	return vecData(v)
}

// allClose 与 numpy.allclose 相同的判定：|a-b| <= atol + rtol*|b|
func allClose(a, b *mat.VecDense) bool {
	const rtol, atol = 1e-5, 1e-8
	for i := 0; i < a.Len(); i++ {
		if math.Abs(a.AtVec(i)-b.AtVec(i)) > atol+rtol*math.Abs(b.AtVec(i)) {
			return false
		}
	}
	return true
}

func vecData(v *mat.VecDense) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
