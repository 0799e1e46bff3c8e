// Package graph holds the mapper output graph: one node per cluster,
// one weighted edge per pair of clusters sharing points.
package graph

import (
	"sort"
)

// A Node is one cluster of one cover element. The fields are public
// because the graph gets json-encoded for the visualization consumer.
type Node struct {
	ID           int `json:"id"`
	CoverElement int `json:"coverElement"`
	ClusterLabel int `json:"clusterLabel"`
	// Points is the ascending list of original point indices in this
	// cluster.
	Points []int `json:"points"`
	Size   int   `json:"size"`
	// MeanFilterValue is the member-wise mean of the filter output,
	// one value per filter dimension.
	MeanFilterValue []float64 `json:"meanFilterValue"`
}

// An Edge connects two nodes whose point sets intersect. Weight is the
// number of shared points.
type Edge struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Weight int `json:"weight"`
}

// A Graph is immutable once built; recomputing the pipeline yields a
// fresh one.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ElementClusters is the clustering result of a single cover element:
// the element's index plus its disjoint clusters of global point
// indices.
type ElementClusters struct {
	Element  int
	Clusters [][]int
}

// Build assembles the output graph. results must be ordered by cover
// element index, which makes node IDs the lexicographic order of
// (cover element, cluster label).
//
// Edges come from an inverted index mapping each point to the nodes
// containing it, so the cost is linear in total point occurrences plus
// quadratic only in per-point node multiplicity, not in node count.
func Build(results []ElementClusters, filterValues [][]float64) *Graph {
	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}
	for _, r := range results {
		for label, points := range r.Clusters {
			node := Node{
				ID:           len(g.Nodes),
				CoverElement: r.Element,
				ClusterLabel: label,
				Points:       points,
				Size:         len(points),
			}
			if len(filterValues) > 0 && len(points) > 0 {
				dims := len(filterValues[points[0]])
				mean := make([]float64, dims)
				for _, p := range points {
					for d := 0; d < dims; d++ {
						mean[d] += filterValues[p][d]
					}
				}
				for d := range mean {
					mean[d] /= float64(len(points))
				}
				node.MeanFilterValue = mean
			}
			g.Nodes = append(g.Nodes, node)
		}
	}

	// point index -> IDs of the nodes containing it, in ID order.
	occurrences := make(map[int][]int)
	for _, node := range g.Nodes {
		for _, p := range node.Points {
			occurrences[p] = append(occurrences[p], node.ID)
		}
	}

	weights := make(map[[2]int]int)
	for _, nodes := range occurrences {
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				weights[[2]int{nodes[i], nodes[j]}]++
			}
		}
	}

	for pair, weight := range weights {
		g.Edges = append(g.Edges, Edge{Source: pair[0], Target: pair[1], Weight: weight})
	}
	sort.Slice(g.Edges, func(a, b int) bool {
		if g.Edges[a].Source != g.Edges[b].Source {
			return g.Edges[a].Source < g.Edges[b].Source
		}
		return g.Edges[a].Target < g.Edges[b].Target
	})
	return g
}

// ConnectedComponents returns the node IDs of each connected
// component, components ordered by their smallest member, members
// ascending.
func (g *Graph) ConnectedComponents() [][]int {
	adjacency := make(map[int][]int, len(g.Nodes))
	for _, e := range g.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	visited := make(map[int]bool, len(g.Nodes))
	out := make([][]int, 0)
	for _, node := range g.Nodes {
		if visited[node.ID] {
			continue
		}
		component := []int{}
		queue := []int{node.ID}
		visited[node.ID] = true
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			component = append(component, current)
			for _, next := range adjacency[current] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Ints(component)
		out = append(out, component)
	}
	return out
}
