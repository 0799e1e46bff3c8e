// Package lib sequences the mapper pipeline: filter, cover, partition,
// per-element clustering, graph assembly.
package lib

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/skuehn/mapgraph/lib/cluster"
	"github.com/skuehn/mapgraph/lib/cover"
	"github.com/skuehn/mapgraph/lib/distance"
	"github.com/skuehn/mapgraph/lib/filters"
	"github.com/skuehn/mapgraph/lib/graph"
	"github.com/skuehn/mapgraph/lib/settings"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance bounds the asymmetry we accept in caller-supplied
// distance matrices.
const symmetryTolerance = 1e-9

// PipelineStats are the counters of the most recent run.
type PipelineStats struct {
	CoverElements        int
	EmptyElements        int
	ClusteringCalls      int
	DegenerateDimensions int
	DroppedClusters      int
	Nodes                int
	Edges                int
}

// A Mapper is a fitted pipeline configuration. Building one validates
// the settings eagerly; afterwards the configuration is immutable and
// every Graph call computes from scratch, so one Mapper can process
// any number of point clouds without leaking state between calls.
type Mapper struct {
	config settings.MapperSettings
	fitted bool

	// Counters of the most recent Graph call. Graph itself runs its
	// cluster tasks concurrently, but concurrent Graph calls on one
	// Mapper would race on this field.
	stats PipelineStats
}

// NewMapper validates the configuration and returns a fitted mapper.
// The settings are checked as given; callers that want defaults apply
// settings.ApplyDefaults first.
func NewMapper(cfg settings.MapperSettings) (*Mapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{config: cfg, fitted: true}, nil
}

// Settings returns the fitted configuration.
func (m *Mapper) Settings() settings.MapperSettings {
	return m.config
}

// Stats returns the counters of the most recent Graph call.
func (m *Mapper) Stats() PipelineStats {
	return m.stats
}

// Graph computes the mapper graph of a point cloud, computing the
// pairwise distance matrix internally.
func (m *Mapper) Graph(points [][]float64) (*graph.Graph, error) {
	return m.GraphWithDistances(points, nil)
}

// GraphWithDistances computes the mapper graph using a caller-supplied
// pairwise distance matrix. The matrix must be square over the point
// count and symmetric within tolerance. Passing nil computes the
// matrix from the configured metric.
func (m *Mapper) GraphWithDistances(points [][]float64, distances *mat.Dense) (*graph.Graph, error) {
	if !m.fitted {
		return nil, settings.ErrNotFitted
	}
	m.stats = PipelineStats{}
	n := len(points)
	if n == 0 {
		return &graph.Graph{Nodes: []graph.Node{}, Edges: []graph.Edge{}}, nil
	}
	dims := len(points[0])
	for i, p := range points {
		if len(p) != dims {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, want %d",
				settings.ErrShapeMismatch, i, len(p), dims)
		}
	}
	for _, f := range m.config.Filters {
		if f.Kind == settings.FILTER_PROJECTION {
			for _, c := range f.Columns {
				if c >= dims {
					return nil, fmt.Errorf("%w: projection column %d out of range for %d-dimensional input",
						settings.ErrInvalidParameter, c, dims)
				}
			}
		}
	}

	var dmat *mat.SymDense
	var err error
	if distances != nil {
		dmat, err = distance.ValidateMatrix(distances, n, symmetryTolerance)
	} else {
		var metric distance.MetricFunc
		metric, err = distance.ByName(m.config.Metric)
		if err == nil {
			dmat, err = distance.Pairwise(points, metric)
		}
	}
	if err != nil {
		return nil, err
	}

	values, err := filters.Compute(m.config.Filters, points, dmat, m.config.Metric)
	if err != nil {
		return nil, err
	}

	filterDims := len(values[0])
	mins := make([]float64, filterDims)
	maxs := make([]float64, filterDims)
	column := make([]float64, n)
	for d := 0; d < filterDims; d++ {
		for i := range values {
			column[i] = values[i][d]
		}
		mins[d] = floats.Min(column)
		maxs[d] = floats.Max(column)
	}

	cov, err := cover.New(m.config, mins, maxs)
	if err != nil {
		return nil, err
	}
	m.stats.CoverElements = len(cov.Elements)
	m.stats.DegenerateDimensions = cov.DegenerateDimensions()

	partitions, err := cov.Partition(values)
	if err != nil {
		return nil, err
	}

	clusterer, err := cluster.ByKind(m.config)
	if err != nil {
		return nil, err
	}

	clusters, calls, err := m.clusterElements(partitions, dmat, clusterer)
	m.stats.ClusteringCalls = calls
	if err != nil {
		return nil, err
	}

	results := make([]graph.ElementClusters, 0, len(partitions))
	for idx, elementClusters := range clusters {
		if len(partitions[idx]) == 0 {
			m.stats.EmptyElements++
			continue
		}
		kept := make([][]int, 0, len(elementClusters))
		for _, members := range elementClusters {
			if len(members) < m.config.MinClusterSize {
				m.stats.DroppedClusters++
				continue
			}
			kept = append(kept, members)
		}
		if len(kept) > 0 {
			results = append(results, graph.ElementClusters{Element: idx, Clusters: kept})
		}
	}

	g := graph.Build(results, values)
	m.stats.Nodes = len(g.Nodes)
	m.stats.Edges = len(g.Edges)
	log.Printf("mapper run: %d points, %d cover elements (%d empty), %d nodes, %d edges",
		n, m.stats.CoverElements, m.stats.EmptyElements, m.stats.Nodes, m.stats.Edges)
	return g, nil
}

// clusterElements fans the non-empty partitions out over a worker
// pool. Every task owns its own result slot, so workers never contend;
// the wait acts as the barrier before graph assembly. Any task error
// aborts the whole run: a graph with silently missing nodes would
// mislead downstream consumers.
func (m *Mapper) clusterElements(partitions [][]int, dmat *mat.SymDense,
	clusterer cluster.Clusterer) ([][][]int, int, error) {

	results := make([][][]int, len(partitions))
	errs := make([]error, len(partitions))
	var calls atomic.Int64

	workers := m.config.NJobs
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(partitions) {
		workers = len(partitions)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				members := partitions[idx]
				calls.Add(1)
				sub := distance.Submatrix(dmat, members)
				local, err := clusterer.Cluster(sub)
				if err != nil {
					errs[idx] = err
					continue
				}
				global := make([][]int, len(local))
				for label, localMembers := range local {
					global[label] = make([]int, len(localMembers))
					for i, l := range localMembers {
						global[label][i] = members[l]
					}
				}
				results[idx] = global
			}
		}()
	}
	for idx, members := range partitions {
		if len(members) == 0 {
			continue
		}
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	for idx, err := range errs {
		if err != nil {
			return nil, int(calls.Load()), fmt.Errorf("clustering cover element %d: %w", idx, err)
		}
	}
	return results, int(calls.Load()), nil
}
