package lib

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/skuehn/mapgraph/lib/graph"
	"github.com/skuehn/mapgraph/lib/settings"
	"gonum.org/v1/gonum/mat"
)

func ringPoints(centerX float64, centerY float64, count int) [][]float64 {
	points := make([][]float64, count)
	for i := 0; i < count; i++ {
		angle := 2 * math.Pi * float64(i) / float64(count)
		points[i] = []float64{centerX + math.Cos(angle), centerY + math.Sin(angle)}
	}
	return points
}

// twoRings is the canonical scenario: two well-separated 50-point unit
// circles, producing two disjoint connected components.
func twoRings() [][]float64 {
	points := ringPoints(0.0, 0.0, 50)
	return append(points, ringPoints(10.0, 0.0, 50)...)
}

func ringSettings(nJobs int) settings.MapperSettings {
	return settings.MapperSettings{
		Filters:         []settings.FilterSpec{{Kind: settings.FILTER_PROJECTION, Columns: []int{0}}},
		CoverKind:       settings.COVER_ONE_DIMENSIONAL,
		NIntervals:      10,
		OverlapFraction: 0.3,
		ClustererKind:   settings.CLUSTERER_FIRST_SIMPLE_GAP,
		RelativeGap:     0.3,
		MinClusterSize:  1,
		Metric:          settings.METRIC_EUCLIDEAN,
		NJobs:           nJobs,
	}
}

func TestTwoRingsScenario(t *testing.T) {
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := mapper.Graph(twoRings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	components := g.ConnectedComponents()
	if len(components) != 2 {
		t.Errorf("expected two connected components but got %d", len(components))
	}

	// No node mixes points of both rings, and no edge crosses rings.
	ringOf := func(nodeID int) int {
		first := g.Nodes[nodeID].Points[0] / 50
		for _, p := range g.Nodes[nodeID].Points {
			if p/50 != first {
				t.Errorf("node %d mixes points of both rings: %v", nodeID, g.Nodes[nodeID].Points)
			}
		}
		return first
	}
	for _, e := range g.Edges {
		if ringOf(e.Source) != ringOf(e.Target) {
			t.Errorf("edge %v connects the two rings", e)
		}
	}
}

func TestEdgeCorrectness(t *testing.T) {
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := mapper.Graph(twoRings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intersection := func(a, b []int) int {
		members := map[int]bool{}
		for _, p := range a {
			members[p] = true
		}
		count := 0
		for _, p := range b {
			if members[p] {
				count++
			}
		}
		return count
	}
	edgeWeights := map[[2]int]int{}
	for _, e := range g.Edges {
		edgeWeights[[2]int{e.Source, e.Target}] = e.Weight
	}
	// An edge exists iff the point sets intersect, weighted by the
	// exact intersection size.
	for i := range g.Nodes {
		for j := i + 1; j < len(g.Nodes); j++ {
			shared := intersection(g.Nodes[i].Points, g.Nodes[j].Points)
			weight, hasEdge := edgeWeights[[2]int{i, j}]
			if (shared > 0) != hasEdge {
				t.Errorf("nodes %d and %d share %d points but edge presence is %v", i, j, shared, hasEdge)
			}
			if hasEdge && weight != shared {
				t.Errorf("edge %d-%d has weight %d but the nodes share %d points", i, j, weight, shared)
			}
		}
	}
}

func TestNodeDisjointnessWithinElement(t *testing.T) {
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := mapper.Graph(twoRings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[int]map[int]bool{}
	for _, node := range g.Nodes {
		if seen[node.CoverElement] == nil {
			seen[node.CoverElement] = map[int]bool{}
		}
		for _, p := range node.Points {
			if seen[node.CoverElement][p] {
				t.Errorf("point %d appears in two nodes of cover element %d", p, node.CoverElement)
			}
			seen[node.CoverElement][p] = true
		}
	}
}

func TestPartitionCompleteness(t *testing.T) {
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	points := twoRings()
	g, err := mapper.Graph(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assigned := map[int]bool{}
	for _, node := range g.Nodes {
		for _, p := range node.Points {
			assigned[p] = true
		}
	}
	for i := range points {
		if !assigned[i] {
			t.Errorf("point %d is in no node", i)
		}
	}
}

func TestDeterminismAcrossWorkerPoolSizes(t *testing.T) {
	points := twoRings()
	var reference *graph.Graph
	for _, nJobs := range []int{1, 2, 4, 7} {
		mapper, err := NewMapper(ringSettings(nJobs))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		g, err := mapper.Graph(points)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reference == nil {
			reference = g
			continue
		}
		if !reflect.DeepEqual(reference, g) {
			t.Errorf("graph computed with %d workers differs from the single-worker graph", nJobs)
		}
	}
}

func TestRepeatedTransformsDoNotLeakState(t *testing.T) {
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := mapper.Graph(twoRings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An unrelated cloud in between must not influence the next run.
	if _, err := mapper.Graph(ringPoints(3.0, -2.0, 30)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := mapper.Graph(twoRings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated transform of the same cloud produced a different graph")
	}
}

func TestDegenerateFilter(t *testing.T) {
	// The projected coordinate is constant; the whole cloud lands in a
	// single cover element and the clusterer sees the full point set.
	points := [][]float64{
		{5.0, 0.0}, {5.0, 0.1}, {5.0, 0.2},
		{5.0, 8.0}, {5.0, 8.1}, {5.0, 8.2},
	}
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := mapper.Graph(points)
	if err != nil {
		t.Fatalf("constant filter should not fail but got %v", err)
	}
	stats := mapper.Stats()
	if stats.CoverElements != 1 {
		t.Errorf("expected a single cover element but got %d", stats.CoverElements)
	}
	if stats.DegenerateDimensions != 1 {
		t.Errorf("expected one degenerate dimension but got %d", stats.DegenerateDimensions)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("expected the two clusters of the full point set but got %d nodes", len(g.Nodes))
	}
}

func TestInvalidConfigurationFailsFast(t *testing.T) {
	cfg := ringSettings(0)
	cfg.NIntervals = 0
	mapper, err := NewMapper(cfg)
	if !errors.Is(err, settings.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter but got %v", err)
	}
	if mapper != nil {
		t.Errorf("an invalid configuration must not produce a mapper")
	}
}

func TestUnfittedMapper(t *testing.T) {
	var mapper Mapper
	if _, err := mapper.Graph(twoRings()); !errors.Is(err, settings.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted but got %v", err)
	}
}

func TestNoClusteringWorkOnEmptyInput(t *testing.T) {
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := mapper.Graph(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("expected an empty graph but got %d nodes and %d edges", len(g.Nodes), len(g.Edges))
	}
	if calls := mapper.Stats().ClusteringCalls; calls != 0 {
		t.Errorf("expected zero clustering calls but got %d", calls)
	}
}

func TestRaggedInputRejected(t *testing.T) {
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = mapper.Graph([][]float64{{1.0, 2.0}, {3.0}})
	if !errors.Is(err, settings.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for ragged input but got %v", err)
	}
}

func TestProjectionColumnOutOfRange(t *testing.T) {
	cfg := ringSettings(0)
	cfg.Filters = []settings.FilterSpec{{Kind: settings.FILTER_PROJECTION, Columns: []int{5}}}
	mapper, err := NewMapper(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = mapper.Graph(twoRings())
	if !errors.Is(err, settings.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for out-of-range column but got %v", err)
	}
	if calls := mapper.Stats().ClusteringCalls; calls != 0 {
		t.Errorf("expected zero clustering calls but got %d", calls)
	}
}

func TestSuppliedDistanceMatrix(t *testing.T) {
	points := [][]float64{{0.0}, {1.0}, {2.0}}
	distances := mat.NewDense(3, 3, []float64{
		0, 1, 2,
		1, 0, 1,
		2, 1, 0,
	})
	mapper, err := NewMapper(ringSettings(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromMatrix, err := mapper.GraphWithDistances(points, distances)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	computed, err := mapper.Graph(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fromMatrix, computed) {
		t.Errorf("supplied distance matrix should reproduce the computed result")
	}

	asymmetric := mat.NewDense(3, 3, []float64{
		0, 1, 2,
		1, 0, 1,
		2, 5, 0,
	})
	if _, err := mapper.GraphWithDistances(points, asymmetric); !errors.Is(err, settings.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for asymmetric matrix but got %v", err)
	}
}

func TestMinClusterSizeDropsNoise(t *testing.T) {
	// Two dense blobs plus one isolated point that ends up in a
	// singleton cluster.
	points := [][]float64{
		{0.0, 0.0}, {0.1, 0.0}, {0.2, 0.0},
		{0.0, 5.0}, {0.1, 5.0}, {0.2, 5.0},
		{0.1, 50.0},
	}
	cfg := ringSettings(0)
	cfg.Filters = []settings.FilterSpec{{Kind: settings.FILTER_PROJECTION, Columns: []int{1}}}
	cfg.MinClusterSize = 2
	mapper, err := NewMapper(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := mapper.Graph(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, node := range g.Nodes {
		if node.Size < 2 {
			t.Errorf("node %d has size %d despite minClusterSize 2", node.ID, node.Size)
		}
		for _, p := range node.Points {
			if p == 6 {
				t.Errorf("the isolated point should have been dropped but is in node %d", node.ID)
			}
		}
	}
	if mapper.Stats().DroppedClusters == 0 {
		t.Errorf("expected at least one dropped cluster")
	}
}
