package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNodesAndEdges(t *testing.T) {
	results := []ElementClusters{
		{Element: 0, Clusters: [][]int{{0, 1, 2}}},
		{Element: 1, Clusters: [][]int{{1, 2, 3}, {7, 8}}},
		{Element: 2, Clusters: [][]int{{8, 9}}},
	}
	g := Build(results, nil)

	require.Len(t, g.Nodes, 4)
	// Node IDs follow (cover element, cluster label) order.
	assert.Equal(t, 0, g.Nodes[0].CoverElement)
	assert.Equal(t, 1, g.Nodes[1].CoverElement)
	assert.Equal(t, 0, g.Nodes[1].ClusterLabel)
	assert.Equal(t, 1, g.Nodes[2].ClusterLabel)
	assert.Equal(t, 3, g.Nodes[1].Size)

	// Edges exist exactly where point sets intersect, weighted by the
	// intersection size.
	require.Len(t, g.Edges, 2)
	assert.Equal(t, Edge{Source: 0, Target: 1, Weight: 2}, g.Edges[0])
	assert.Equal(t, Edge{Source: 2, Target: 3, Weight: 1}, g.Edges[1])
}

func TestBuildNoSelfEdges(t *testing.T) {
	results := []ElementClusters{
		{Element: 0, Clusters: [][]int{{0, 1}, {2, 3}}},
	}
	g := Build(results, nil)
	require.Len(t, g.Nodes, 2)
	// Clusters of one element are disjoint, so no edges at all.
	assert.Empty(t, g.Edges)
	for _, e := range g.Edges {
		assert.NotEqual(t, e.Source, e.Target)
	}
}

func TestBuildMeanFilterValue(t *testing.T) {
	values := [][]float64{{0.0}, {1.0}, {2.0}, {10.0}}
	results := []ElementClusters{
		{Element: 0, Clusters: [][]int{{0, 1, 2}}},
		{Element: 1, Clusters: [][]int{{3}}},
	}
	g := Build(results, values)
	require.Len(t, g.Nodes, 2)
	assert.InDelta(t, 1.0, g.Nodes[0].MeanFilterValue[0], 1e-12)
	assert.InDelta(t, 10.0, g.Nodes[1].MeanFilterValue[0], 1e-12)
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil, nil)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestConnectedComponents(t *testing.T) {
	results := []ElementClusters{
		{Element: 0, Clusters: [][]int{{0, 1}}},
		{Element: 1, Clusters: [][]int{{1, 2}}},
		{Element: 2, Clusters: [][]int{{5, 6}}},
		{Element: 3, Clusters: [][]int{{6, 7}}},
	}
	g := Build(results, nil)
	components := g.ConnectedComponents()
	require.Len(t, components, 2)
	assert.Equal(t, []int{0, 1}, components[0])
	assert.Equal(t, []int{2, 3}, components[1])
}

func TestConnectedComponentsIsolatedNodes(t *testing.T) {
	results := []ElementClusters{
		{Element: 0, Clusters: [][]int{{0}}},
		{Element: 1, Clusters: [][]int{{1}}},
	}
	g := Build(results, nil)
	components := g.ConnectedComponents()
	require.Len(t, components, 2)
}
