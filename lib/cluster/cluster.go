// Package cluster splits one cover element's points into disjoint
// clusters. Both clusterers cut the element's single-linkage merge
// heights at their first significant gap: the merge heights are the
// edge weights of a minimum spanning tree over the element's pairwise
// distances, and removing every MST edge at or above the cut leaves
// one connected component per cluster.
package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/skuehn/mapgraph/lib/settings"
	"gonum.org/v1/gonum/mat"
)

// A Clusterer partitions the points of one cover element, given the
// pairwise distance submatrix restricted to those points. The returned
// clusters hold local indices into the submatrix, are pairwise
// disjoint, and together cover every point.
type Clusterer interface {
	Cluster(d *mat.SymDense) ([][]int, error)
}

// heightTolerance is the relative span below which merge heights count
// as equal. Evenly spaced points produce heights that differ only in
// the last few bits; cutting at such noise gaps would shred a uniform
// cluster.
const heightTolerance = 1e-10

// ByKind returns the clusterer selected by the settings.
func ByKind(cfg settings.MapperSettings) (Clusterer, error) {
	switch cfg.ClustererKind {
	case settings.CLUSTERER_FIRST_SIMPLE_GAP:
		return &FirstSimpleGap{RelativeGap: cfg.RelativeGap}, nil
	case settings.CLUSTERER_FIRST_HISTOGRAM_GAP:
		return &FirstHistogramGap{NBins: cfg.NBins}, nil
	}
	return nil, fmt.Errorf("%w: unknown clusterer kind %q", settings.ErrInvalidParameter, cfg.ClustererKind)
}

// FirstSimpleGap sorts the merge heights and cuts at the first jump
// larger than RelativeGap times the height range.
type FirstSimpleGap struct {
	RelativeGap float64
}

func (c *FirstSimpleGap) Cluster(d *mat.SymDense) ([][]int, error) {
	n, _ := d.Dims()
	if n <= 1 {
		return singletons(n), nil
	}
	edges := mstEdges(d)
	heights := make([]float64, len(edges))
	for i, e := range edges {
		heights[i] = e.weight
	}
	sort.Float64s(heights)

	span := heights[len(heights)-1] - heights[0]
	if span <= heightTolerance*math.Max(heights[len(heights)-1], 1.0) {
		// All merges happen at the same height: one cluster.
		return components(n, edges, math.Inf(1)), nil
	}
	cut := math.Inf(1)
	for i := 0; i < len(heights)-1; i++ {
		if heights[i+1]-heights[i] > c.RelativeGap*span {
			cut = heights[i+1]
			break
		}
	}
	return components(n, edges, cut), nil
}

// FirstHistogramGap histograms the merge heights and cuts at the lower
// edge of the first empty bin following a non-empty one.
type FirstHistogramGap struct {
	NBins int
}

func (c *FirstHistogramGap) Cluster(d *mat.SymDense) ([][]int, error) {
	n, _ := d.Dims()
	if n <= 1 {
		return singletons(n), nil
	}
	edges := mstEdges(d)
	minH, maxH := edges[0].weight, edges[0].weight
	for _, e := range edges {
		if e.weight < minH {
			minH = e.weight
		}
		if e.weight > maxH {
			maxH = e.weight
		}
	}
	if maxH-minH <= heightTolerance*math.Max(maxH, 1.0) {
		return components(n, edges, math.Inf(1)), nil
	}

	binWidth := (maxH - minH) / float64(c.NBins)
	counts := make([]int, c.NBins)
	for _, e := range edges {
		bin := int((e.weight - minH) / binWidth)
		if bin >= c.NBins {
			bin = c.NBins - 1
		}
		counts[bin]++
	}

	cut := math.Inf(1)
	seenNonEmpty := false
	for bin, count := range counts {
		if count > 0 {
			seenNonEmpty = true
			continue
		}
		if seenNonEmpty {
			cut = minH + float64(bin)*binWidth
			break
		}
	}
	return components(n, edges, cut), nil
}

type mstEdge struct {
	a, b   int
	weight float64
}

// mstEdges computes a minimum spanning tree over the distance matrix
// with Prim's algorithm. Ties are broken by vertex order, so the tree
// is deterministic for a given matrix.
func mstEdges(d *mat.SymDense) []mstEdge {
	n, _ := d.Dims()
	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range bestDist {
		bestDist[i] = math.Inf(1)
		bestFrom[i] = -1
	}
	inTree[0] = true
	for j := 1; j < n; j++ {
		bestDist[j] = d.At(0, j)
		bestFrom[j] = 0
	}

	edges := make([]mstEdge, 0, n-1)
	for len(edges) < n-1 {
		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			if next == -1 || bestDist[j] < bestDist[next] {
				next = j
			}
		}
		edges = append(edges, mstEdge{a: bestFrom[next], b: next, weight: bestDist[next]})
		inTree[next] = true
		for j := 0; j < n; j++ {
			if !inTree[j] && d.At(next, j) < bestDist[j] {
				bestDist[j] = d.At(next, j)
				bestFrom[j] = next
			}
		}
	}
	return edges
}

// components drops every MST edge at or above the cut height and
// returns the resulting connected components. Clusters are ordered by
// their smallest member, members ascending.
func components(n int, edges []mstEdge, cut float64) [][]int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, e := range edges {
		if e.weight >= cut {
			continue
		}
		ra, rb := find(e.a), find(e.b)
		if ra != rb {
			if ra > rb {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	byRoot := make(map[int][]int, n)
	roots := make([]int, 0, n)
	for i := 0; i < n; i++ {
		r := find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	sort.Ints(roots)
	out := make([][]int, len(roots))
	for i, r := range roots {
		out[i] = byRoot[r]
	}
	return out
}

func singletons(n int) [][]int {
	out := make([][]int, n)
	for i := 0; i < n; i++ {
		out[i] = []int{i}
	}
	return out
}
