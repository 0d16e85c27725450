package gbm

import "math"

// Node is a split or a leaf. Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Gain      float64 `json:"g,omitempty"`
}

func (n Node) leaf() bool { return n.Left < 0 }

type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.leaf() {
			return n.Value
		}
		if v := x[n.Feature]; math.IsNaN(v) || v <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type binStat struct {
	g, h float64
	n    int
}

type split struct {
	feature int
	bin     int
	gain    float64
	left    binStat
	right   binStat
}

// minSplitGain filters splits whose gain is rounding noise.
const minSplitGain = 1e-12

func (s split) valid() bool { return s.feature >= 0 && s.gain > minSplitGain }

// pending is a node awaiting expansion.
type pending struct {
	node  int
	depth int
	rows  []int
	total binStat
	hist  []binStat
	best  split
}

type builder struct {
	p          Params
	bins       [][]uint8
	thresholds [][]float64
	offsets    []int // start of each feature in a flat histogram
	histSize   int
	features   []int
	grad, hess []float64
	nodes      []Node
}

func newBuilder(p Params, bins [][]uint8, thresholds [][]float64) *builder {
	b := &builder{p: p, bins: bins, thresholds: thresholds, offsets: make([]int, len(thresholds))}
	for f, th := range thresholds {
		b.offsets[f] = b.histSize
		b.histSize += len(th) + 1
	}
	return b
}

// grow fits one tree to the given gradients over rows, using only features.
func (b *builder) grow(rows, features []int, grad, hess []float64) Tree {
	b.features, b.grad, b.hess = features, grad, hess
	b.nodes = b.nodes[:0]

	root := b.newPending(0, 0, rows, nil)
	if b.p.Growth == LeafWise {
		b.growLeafWise(root)
	} else {
		b.growDepthWise(root)
	}
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

func (b *builder) growDepthWise(root *pending) {
	level := []*pending{root}
	for len(level) > 0 {
		var next []*pending
		for _, pn := range level {
			if pn.depth >= b.p.MaxDepth || !pn.best.valid() {
				continue
			}
			l, r := b.split(pn)
			next = append(next, l, r)
		}
		level = next
	}
}

func (b *builder) growLeafWise(root *pending) {
	open := []*pending{root}
	leaves := 1
	for leaves < b.p.MaxLeaves {
		pick := -1
		for i, pn := range open {
			if pn.depth >= b.p.MaxDepth || !pn.best.valid() {
				continue
			}
			if pick < 0 || pn.best.gain > open[pick].best.gain {
				pick = i
			}
		}
		if pick < 0 {
			return
		}
		pn := open[pick]
		open = append(open[:pick], open[pick+1:]...)
		l, r := b.split(pn)
		open = append(open, l, r)
		leaves++
	}
}

// newPending appends a leaf node for rows and evaluates its best split.
// hist may be supplied when it was derived by subtraction.
func (b *builder) newPending(node, depth int, rows []int, hist []binStat) *pending {
	if hist == nil {
		hist = b.histogram(rows)
	}
	var total binStat
	for _, i := range rows {
		total.g += b.grad[i]
		total.h += b.hess[i]
	}
	total.n = len(rows)

	if node == len(b.nodes) {
		b.nodes = append(b.nodes, Node{})
	}
	b.nodes[node] = Node{Feature: -1, Left: -1, Right: -1, Value: b.leafValue(total)}

	pn := &pending{node: node, depth: depth, rows: rows, total: total, hist: hist}
	pn.best = b.bestSplit(pn)
	return pn
}

func (b *builder) histogram(rows []int) []binStat {
	hist := make([]binStat, b.histSize)
	for _, f := range b.features {
		col, off := b.bins[f], b.offsets[f]
		for _, i := range rows {
			s := &hist[off+int(col[i])]
			s.g += b.grad[i]
			s.h += b.hess[i]
			s.n++
		}
	}
	return hist
}

func (b *builder) bestSplit(pn *pending) split {
	best := split{feature: -1}
	parent := score(pn.total, b.p.Lambda)
	for _, f := range b.features {
		th := b.thresholds[f]
		if len(th) == 0 {
			continue
		}
		off := b.offsets[f]
		var left binStat
		for bin := 0; bin < len(th); bin++ {
			s := pn.hist[off+bin]
			left.g += s.g
			left.h += s.h
			left.n += s.n
			right := binStat{g: pn.total.g - left.g, h: pn.total.h - left.h, n: pn.total.n - left.n}
			if left.n == 0 || right.n == 0 {
				continue
			}
			if left.h < b.p.MinChildWeight || right.h < b.p.MinChildWeight {
				continue
			}
			if left.n < b.p.MinDataInLeaf || right.n < b.p.MinDataInLeaf {
				continue
			}
			gain := 0.5 * (score(left, b.p.Lambda) + score(right, b.p.Lambda) - parent)
			if gain > best.gain {
				best = split{feature: f, bin: bin, gain: gain, left: left, right: right}
			}
		}
	}
	return best
}

func (b *builder) split(pn *pending) (*pending, *pending) {
	s := pn.best
	col := b.bins[s.feature]
	leftRows := make([]int, 0, s.left.n)
	rightRows := make([]int, 0, s.right.n)
	for _, i := range pn.rows {
		if int(col[i]) <= s.bin {
			leftRows = append(leftRows, i)
		} else {
			rightRows = append(rightRows, i)
		}
	}

	// Build the smaller child's histogram and derive the sibling from the parent.
	small, large := leftRows, rightRows
	if len(small) > len(large) {
		small, large = large, small
	}
	smallHist := b.histogram(small)
	largeHist := make([]binStat, len(pn.hist))
	for i := range largeHist {
		largeHist[i] = binStat{
			g: pn.hist[i].g - smallHist[i].g,
			h: pn.hist[i].h - smallHist[i].h,
			n: pn.hist[i].n - smallHist[i].n,
		}
	}
	leftHist, rightHist := smallHist, largeHist
	if len(leftRows) > len(rightRows) {
		leftHist, rightHist = largeHist, smallHist
	}

	li, ri := len(b.nodes), len(b.nodes)+1
	b.nodes = append(b.nodes, Node{}, Node{})
	b.nodes[pn.node] = Node{
		Feature:   s.feature,
		Threshold: b.thresholds[s.feature][s.bin],
		Left:      li,
		Right:     ri,
		Gain:      s.gain,
	}
	l := b.newPending(li, pn.depth+1, leftRows, leftHist)
	r := b.newPending(ri, pn.depth+1, rightRows, rightHist)
	return l, r
}

func (b *builder) leafValue(s binStat) float64 {
	den := s.h + b.p.Lambda
	if den <= 0 {
		return 0
	}
	return -s.g / den * b.p.LearningRate
}

func score(s binStat, lambda float64) float64 {
	den := s.h + lambda
	if den <= 0 {
		return 0
	}
	return s.g * s.g / den
}
