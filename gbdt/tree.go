package gbdt

import (
	"math"
	"sort"
)

// binMapper discretizes each feature into at most maxBin buckets using
// value quantiles. Bin b of feature j covers values <= upper[j][b]; the
// last bin is unbounded.
type binMapper struct {
	upper [][]float64
}

// newBinMapper builds bin boundaries from the training matrix given as
// per-feature column slices.
func newBinMapper(cols [][]float64, maxBin int) *binMapper {
	m := &binMapper{upper: make([][]float64, len(cols))}
	for j, col := range cols {
		sorted := make([]float64, len(col))
		copy(sorted, col)
		sort.Float64s(sorted)

		// Distinct values, then quantile cut points between them.
		distinct := sorted[:0]
		for i, v := range sorted {
			if i == 0 || v != distinct[len(distinct)-1] {
				distinct = append(distinct, v)
			}
		}

		var bounds []float64
		if len(distinct) <= maxBin {
			for i := 0; i+1 < len(distinct); i++ {
				bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
			}
		} else {
			for b := 1; b < maxBin; b++ {
				idx := b * len(distinct) / maxBin
				bounds = append(bounds, (distinct[idx-1]+distinct[idx])/2)
			}
		}
		m.upper[j] = bounds
	}
	return m
}

// bin returns the bin index of value for feature j.
func (m *binMapper) bin(j int, value float64) int {
	return sort.SearchFloat64s(m.upper[j], value)
}

// numBins returns the number of bins for feature j.
func (m *binMapper) numBins(j int) int {
	return len(m.upper[j]) + 1
}

// threshold returns the raw-value split threshold for feature j when the
// left child holds bins <= b.
func (m *binMapper) threshold(j, b int) float64 {
	return m.upper[j][b]
}

// treeNode is one node of a fitted tree. Leaf nodes have left == -1.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a single fitted regression tree. Leaf values already include
// the learning-rate shrinkage.
type Tree struct {
	Nodes []treeNode `json:"nodes"`
}

// predictRow walks the tree for one row of raw feature values.
func (t *Tree) predictRow(row []float64) float64 {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.Left == -1 {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// NumLeaves returns the number of leaf nodes.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].Left == -1 {
			count++
		}
	}
	return count
}

// splitInfo describes the best candidate split found for a leaf.
type splitInfo struct {
	feature   int // index into the sampled feature list
	bin       int // left child holds bins <= bin
	gain      float64
	leftGrad  float64
	leftHess  float64
	leftCount int
}

// leafCandidate is a growable leaf during leaf-wise construction.
type leafCandidate struct {
	node     int
	rows     []int
	depth    int
	sumGrad  float64
	sumHess  float64
	split    splitInfo
	canSplit bool
}

// treeGrower builds one tree leaf-wise over binned features.
type treeGrower struct {
	params   TrainingParams
	mapper   *binMapper
	binned   [][]int // [feature][row] bin index
	grad     []float64
	hess     []float64
	features []int // sampled feature indices for this tree
}

// grow builds the tree for the given row sample.
func (g *treeGrower) grow(rows []int) *Tree {
	tree := &Tree{}

	root := g.newCandidate(len(tree.Nodes), rows, 0)
	tree.Nodes = append(tree.Nodes, treeNode{Left: -1, Right: -1, Value: g.leafValue(root.sumGrad, root.sumHess)})
	g.findBestSplit(root)

	candidates := []*leafCandidate{root}
	numLeaves := 1

	for numLeaves < g.params.NumLeaves {
		best := -1
		for i, c := range candidates {
			if !c.canSplit {
				continue
			}
			if best == -1 || c.split.gain > candidates[best].split.gain {
				best = i
			}
		}
		if best == -1 {
			break
		}

		c := candidates[best]
		candidates = append(candidates[:best], candidates[best+1:]...)

		leftRows, rightRows := g.partition(c)

		leftIdx := len(tree.Nodes)
		rightIdx := leftIdx + 1
		feature := g.features[c.split.feature]

		tree.Nodes[c.node].Feature = feature
		tree.Nodes[c.node].Threshold = g.mapper.threshold(feature, c.split.bin)
		tree.Nodes[c.node].Left = leftIdx
		tree.Nodes[c.node].Right = rightIdx

		left := g.newCandidate(leftIdx, leftRows, c.depth+1)
		right := g.newCandidate(rightIdx, rightRows, c.depth+1)
		tree.Nodes = append(tree.Nodes,
			treeNode{Left: -1, Right: -1, Value: g.leafValue(left.sumGrad, left.sumHess)},
			treeNode{Left: -1, Right: -1, Value: g.leafValue(right.sumGrad, right.sumHess)},
		)

		g.findBestSplit(left)
		g.findBestSplit(right)
		candidates = append(candidates, left, right)
		numLeaves++
	}

	return tree
}

func (g *treeGrower) newCandidate(node int, rows []int, depth int) *leafCandidate {
	c := &leafCandidate{node: node, rows: rows, depth: depth}
	for _, r := range rows {
		c.sumGrad += g.grad[r]
		c.sumHess += g.hess[r]
	}
	return c
}

// findBestSplit scans all sampled features' histograms for the split
// with the highest regularized gain.
func (g *treeGrower) findBestSplit(c *leafCandidate) {
	c.canSplit = false
	if len(c.rows) < 2*g.params.MinChildSamples {
		return
	}
	if g.params.MaxDepth > 0 && c.depth >= g.params.MaxDepth {
		return
	}

	parentScore := g.nodeScore(c.sumGrad, c.sumHess)
	bestGain := math.Max(g.params.MinGainToSplit, 1e-12)

	for fi, feature := range g.features {
		nBins := g.mapper.numBins(feature)
		if nBins < 2 {
			continue
		}

		histGrad := make([]float64, nBins)
		histHess := make([]float64, nBins)
		histCount := make([]int, nBins)
		for _, r := range c.rows {
			b := g.binned[feature][r]
			histGrad[b] += g.grad[r]
			histHess[b] += g.hess[r]
			histCount[b]++
		}

		var leftGrad, leftHess float64
		leftCount := 0
		for b := 0; b < nBins-1; b++ {
			leftGrad += histGrad[b]
			leftHess += histHess[b]
			leftCount += histCount[b]

			if leftCount < g.params.MinChildSamples || leftHess < g.params.MinChildWeight {
				continue
			}
			rightCount := len(c.rows) - leftCount
			if rightCount < g.params.MinChildSamples {
				break
			}
			if c.sumHess-leftHess < g.params.MinChildWeight {
				continue
			}

			gain := g.nodeScore(leftGrad, leftHess) +
				g.nodeScore(c.sumGrad-leftGrad, c.sumHess-leftHess) -
				parentScore
			if gain > bestGain {
				bestGain = gain
				c.split = splitInfo{
					feature:   fi,
					bin:       b,
					gain:      gain,
					leftGrad:  leftGrad,
					leftHess:  leftHess,
					leftCount: leftCount,
				}
				c.canSplit = true
			}
		}
	}
}

// partition splits a candidate's rows by its chosen split.
func (g *treeGrower) partition(c *leafCandidate) (left, right []int) {
	feature := g.features[c.split.feature]
	left = make([]int, 0, c.split.leftCount)
	right = make([]int, 0, len(c.rows)-c.split.leftCount)
	for _, r := range c.rows {
		if g.binned[feature][r] <= c.split.bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// nodeScore is the regularized score 0.5 * G'^2 / (H + lambda) with L1
// soft thresholding on the gradient sum.
func (g *treeGrower) nodeScore(sumGrad, sumHess float64) float64 {
	const epsilon = 1e-10
	denom := sumHess + g.params.Lambda + epsilon

	numerator := softThresholdGrad(sumGrad, g.params.Alpha)
	return 0.5 * numerator * numerator / denom
}

// leafValue is the shrunken optimal leaf output -G'/(H + lambda).
func (g *treeGrower) leafValue(sumGrad, sumHess float64) float64 {
	const epsilon = 1e-10
	denom := sumHess + g.params.Lambda + epsilon
	return -softThresholdGrad(sumGrad, g.params.Alpha) / denom * g.params.LearningRate
}

func softThresholdGrad(sumGrad, alpha float64) float64 {
	if alpha <= 0 {
		return sumGrad
	}
	switch {
	case sumGrad > alpha:
		return sumGrad - alpha
	case sumGrad < -alpha:
		return sumGrad + alpha
	default:
		return 0
	}
}
