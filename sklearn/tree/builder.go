package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// featureThreshold is the smallest gap between two sorted feature values
// that is treated as a possible split point.
const featureThreshold = 1e-7

type criterion int

const (
	criterionGini criterion = iota
	criterionEntropy
	criterionSquaredError
)

// node is a single entry of the flattened tree. Leaves have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64
	impurity  float64
	nSamples  int
}

// fittedTree holds the nodes of a grown tree. nodes[0] is the root.
type fittedTree struct {
	nodes       []node
	importances []float64
	depth       int
	nLeaves     int
}

type builder struct {
	crit            criterion
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	nClasses        int
	rng             *rand.Rand

	X *mat.Dense
	y []float64
}

type splitResult struct {
	feature     int
	threshold   float64
	pos         int
	improvement float64
	sorted      []int
}

type buildItem struct {
	samples []int
	depth   int
	parent  int
	isLeft  bool
}

// grow builds a tree on the given sample indices. Indices may repeat, which
// is how bootstrap resamples are expressed.
func (b *builder) grow(samples []int) *fittedTree {
	_, nFeatures := b.X.Dims()
	t := &fittedTree{importances: make([]float64, nFeatures)}
	total := float64(len(samples))

	stack := []buildItem{{samples: samples, depth: 0, parent: -1}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := len(t.nodes)
		n := node{
			feature:  -1,
			left:     -1,
			right:    -1,
			value:    b.nodeValue(item.samples),
			impurity: b.impurity(item.samples),
			nSamples: len(item.samples),
		}
		t.nodes = append(t.nodes, n)
		if item.parent >= 0 {
			if item.isLeft {
				t.nodes[item.parent].left = id
			} else {
				t.nodes[item.parent].right = id
			}
		}
		if item.depth > t.depth {
			t.depth = item.depth
		}

		isLeaf := len(item.samples) < b.minSamplesSplit ||
			len(item.samples) < 2*b.minSamplesLeaf ||
			(b.maxDepth > 0 && item.depth >= b.maxDepth) ||
			n.impurity <= 1e-12

		var split *splitResult
		if !isLeaf {
			split = b.bestSplit(item.samples, n.impurity)
		}
		if split == nil {
			t.nLeaves++
			continue
		}

		t.nodes[id].feature = split.feature
		t.nodes[id].threshold = split.threshold
		t.importances[split.feature] += float64(len(item.samples)) / total * split.improvement

		left := append([]int(nil), split.sorted[:split.pos]...)
		right := append([]int(nil), split.sorted[split.pos:]...)
		// right is pushed first so that the left subtree gets the lower ids
		stack = append(stack,
			buildItem{samples: right, depth: item.depth + 1, parent: id, isLeft: false},
			buildItem{samples: left, depth: item.depth + 1, parent: id, isLeft: true},
		)
	}

	sum := 0.0
	for _, v := range t.importances {
		sum += v
	}
	if sum > 0 {
		for i := range t.importances {
			t.importances[i] /= sum
		}
	}
	return t
}

// bestSplit scans features in random order and returns the split with the
// largest impurity decrease, or nil when no valid split exists. Once
// maxFeatures non-constant features have been examined the scan stops.
func (b *builder) bestSplit(samples []int, parentImpurity float64) *splitResult {
	_, nFeatures := b.X.Dims()
	limit := b.maxFeatures
	if limit <= 0 || limit > nFeatures {
		limit = nFeatures
	}

	var best *splitResult
	visited := 0
	for _, f := range b.rng.Perm(nFeatures) {
		if visited >= limit {
			break
		}
		sorted := append([]int(nil), samples...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X.At(sorted[i], f) < b.X.At(sorted[j], f)
		})
		lo := b.X.At(sorted[0], f)
		hi := b.X.At(sorted[len(sorted)-1], f)
		if hi <= lo+featureThreshold {
			continue
		}
		visited++

		pos, improvement, ok := b.scanFeature(f, sorted, parentImpurity)
		if !ok {
			continue
		}
		if best == nil || improvement > best.improvement {
			a := b.X.At(sorted[pos-1], f)
			c := b.X.At(sorted[pos], f)
			threshold := a/2 + c/2
			if threshold == c || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
				threshold = a
			}
			best = &splitResult{
				feature:     f,
				threshold:   threshold,
				pos:         pos,
				improvement: improvement,
				sorted:      sorted,
			}
		}
	}
	return best
}

// scanFeature sweeps the sorted samples once, keeping running statistics of
// the left partition, and returns the split position with the best
// impurity decrease.
func (b *builder) scanFeature(f int, sorted []int, parentImpurity float64) (int, float64, bool) {
	n := len(sorted)
	bestPos, bestImprovement, found := 0, math.Inf(-1), false

	acc := b.newAccumulator(sorted)
	for pos := 1; pos < n; pos++ {
		acc.move(sorted[pos-1])
		if pos < b.minSamplesLeaf || n-pos < b.minSamplesLeaf {
			continue
		}
		if b.X.At(sorted[pos], f) <= b.X.At(sorted[pos-1], f)+featureThreshold {
			continue
		}
		nl, nr := float64(pos), float64(n-pos)
		imp := parentImpurity - nl/float64(n)*acc.leftImpurity() - nr/float64(n)*acc.rightImpurity()
		if imp > bestImprovement {
			bestPos, bestImprovement, found = pos, imp, true
		}
	}
	return bestPos, bestImprovement, found
}

func (b *builder) nodeValue(samples []int) []float64 {
	if b.crit == criterionSquaredError {
		sum := 0.0
		for _, i := range samples {
			sum += b.y[i]
		}
		return []float64{sum / float64(len(samples))}
	}
	counts := make([]float64, b.nClasses)
	for _, i := range samples {
		counts[int(b.y[i])]++
	}
	for k := range counts {
		counts[k] /= float64(len(samples))
	}
	return counts
}

func (b *builder) impurity(samples []int) float64 {
	acc := b.newAccumulator(samples)
	return acc.rightImpurity()
}

// accumulator keeps the statistics of a left/right partition of a node
// while samples move from right to left.
type accumulator struct {
	b              *builder
	nLeft, nRight  float64
	countL, countR []float64
	sumL, sumR     float64
	sumSqL, sumSqR float64
}

func (b *builder) newAccumulator(samples []int) *accumulator {
	a := &accumulator{b: b, nRight: float64(len(samples))}
	if b.crit == criterionSquaredError {
		for _, i := range samples {
			a.sumR += b.y[i]
			a.sumSqR += b.y[i] * b.y[i]
		}
		return a
	}
	a.countL = make([]float64, b.nClasses)
	a.countR = make([]float64, b.nClasses)
	for _, i := range samples {
		a.countR[int(b.y[i])]++
	}
	return a
}

func (a *accumulator) move(i int) {
	a.nLeft++
	a.nRight--
	v := a.b.y[i]
	if a.b.crit == criterionSquaredError {
		a.sumL += v
		a.sumR -= v
		a.sumSqL += v * v
		a.sumSqR -= v * v
		return
	}
	a.countL[int(v)]++
	a.countR[int(v)]--
}

func (a *accumulator) leftImpurity() float64 {
	return a.b.partImpurity(a.nLeft, a.countL, a.sumL, a.sumSqL)
}

func (a *accumulator) rightImpurity() float64 {
	return a.b.partImpurity(a.nRight, a.countR, a.sumR, a.sumSqR)
}

func (b *builder) partImpurity(n float64, counts []float64, sum, sumSq float64) float64 {
	if n <= 0 {
		return 0
	}
	switch b.crit {
	case criterionSquaredError:
		mean := sum / n
		return math.Max(sumSq/n-mean*mean, 0)
	case criterionEntropy:
		h := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / n
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		g := 1.0
		for _, c := range counts {
			p := c / n
			g -= p * p
		}
		return g
	}
}

// leaf returns the id of the leaf reached by row.
func (t *fittedTree) leaf(row []float64) int {
	id := 0
	for t.nodes[id].feature >= 0 {
		nd := t.nodes[id]
		if row[nd.feature] <= nd.threshold {
			id = nd.left
		} else {
			id = nd.right
		}
	}
	return id
}
