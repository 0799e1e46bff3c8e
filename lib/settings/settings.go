// Package settings contains all the parameters for the mapper pipeline.
package settings

import (
	"errors"
	"fmt"
	"math"
)

const (
	FILTER_PROJECTION   = "projection"
	FILTER_ECCENTRICITY = "eccentricity"
	FILTER_ENTROPY      = "entropy"

	COVER_ONE_DIMENSIONAL = "one_dimensional"
	COVER_CUBICAL         = "cubical"

	CLUSTERER_FIRST_SIMPLE_GAP    = "first_simple_gap"
	CLUSTERER_FIRST_HISTOGRAM_GAP = "first_histogram_gap"

	METRIC_EUCLIDEAN = "euclidean"
	METRIC_MANHATTAN = "manhattan"
	METRIC_CHEBYSHEV = "chebyshev"
)

var (
	// ErrInvalidParameter is reported for malformed configuration,
	// before any data gets processed.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrShapeMismatch is reported when the input data disagrees with
	// the configured pipeline's expectations.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrNotFitted is reported when a transform is requested on an
	// unconfigured mapper.
	ErrNotFitted = errors.New("mapper is not fitted")
)

// A FilterSpec selects one filter function. Several specs can be
// requested together; their outputs are stacked column-wise.
type FilterSpec struct {
	Kind string `yaml:"kind" json:"kind"`

	// Columns is the list of input coordinates for FILTER_PROJECTION,
	// in output order.
	Columns []int `yaml:"columns,omitempty" json:"columns,omitempty"`

	// Metric names the distance used by eccentricity and entropy.
	Metric string `yaml:"metric,omitempty" json:"metric,omitempty"`

	// Exponent is the p of the p-norm mean for eccentricity.
	// math.Inf(1) means the maximum distance.
	Exponent float64 `yaml:"exponent,omitempty" json:"exponent,omitempty"`

	// Neighbors is the k of the k-nearest-neighbour distribution for
	// entropy.
	Neighbors int `yaml:"neighbors,omitempty" json:"neighbors,omitempty"`
}

// MapperSettings is the full configuration of one pipeline.
// A validated MapperSettings value is immutable for the lifetime of
// the mapper built from it.
type MapperSettings struct {
	Filters []FilterSpec `yaml:"filters" json:"filters"`

	CoverKind string `yaml:"coverKind" json:"coverKind"`
	// The number of intervals per filter dimension.
	NIntervals int `yaml:"nIntervals" json:"nIntervals"`
	// The fraction by which each interval is inflated on each side.
	// Must be in (0, 1).
	OverlapFraction float64 `yaml:"overlapFraction" json:"overlapFraction"`
	// Optional explicit bin edges for a one-dimensional cover.
	// When set, NIntervals and OverlapFraction are ignored.
	BinEdges []float64 `yaml:"binEdges,omitempty" json:"binEdges,omitempty"`

	ClustererKind string `yaml:"clustererKind" json:"clustererKind"`
	// RelativeGap is the threshold for first_simple_gap, as a fraction
	// of the merge height range.
	RelativeGap float64 `yaml:"relativeGap" json:"relativeGap"`
	// NBins is the histogram resolution for first_histogram_gap.
	NBins int `yaml:"nBins" json:"nBins"`
	// Clusters with fewer points than this yield no graph node.
	MinClusterSize int `yaml:"minClusterSize" json:"minClusterSize"`

	// Metric for the pairwise distance matrix handed to the clusterer.
	Metric string `yaml:"metric" json:"metric"`

	// NJobs is the worker pool size for per-element clustering.
	// 0 means all available cores.
	NJobs int `yaml:"nJobs" json:"nJobs"`
}

// ApplyDefaults fills in the parameters that have usable defaults.
// It does not touch anything the caller set explicitly.
func (s MapperSettings) ApplyDefaults() MapperSettings {
	if len(s.Filters) == 0 {
		s.Filters = []FilterSpec{{Kind: FILTER_PROJECTION, Columns: []int{0}}}
	}
	for i := range s.Filters {
		if s.Filters[i].Metric == "" {
			s.Filters[i].Metric = METRIC_EUCLIDEAN
		}
		if s.Filters[i].Kind == FILTER_ECCENTRICITY && s.Filters[i].Exponent == 0 {
			s.Filters[i].Exponent = 1.0
		}
		if s.Filters[i].Kind == FILTER_ENTROPY && s.Filters[i].Neighbors == 0 {
			s.Filters[i].Neighbors = 10
		}
	}
	if s.CoverKind == "" {
		s.CoverKind = COVER_ONE_DIMENSIONAL
	}
	if s.NIntervals == 0 && len(s.BinEdges) == 0 {
		s.NIntervals = 10
	}
	if s.OverlapFraction == 0 && len(s.BinEdges) == 0 {
		s.OverlapFraction = 0.3
	}
	if s.ClustererKind == "" {
		s.ClustererKind = CLUSTERER_FIRST_SIMPLE_GAP
	}
	if s.RelativeGap == 0 {
		s.RelativeGap = 0.3
	}
	if s.NBins == 0 {
		s.NBins = 10
	}
	if s.MinClusterSize == 0 {
		s.MinClusterSize = 1
	}
	if s.Metric == "" {
		s.Metric = METRIC_EUCLIDEAN
	}
	return s
}

func knownMetric(name string) bool {
	switch name {
	case METRIC_EUCLIDEAN, METRIC_MANHATTAN, METRIC_CHEBYSHEV:
		return true
	}
	return false
}

// Validate checks every parameter eagerly. A settings value that
// passes Validate will not cause configuration errors later in the
// pipeline.
func (s MapperSettings) Validate() error {
	if len(s.Filters) == 0 {
		return fmt.Errorf("%w: at least one filter is required", ErrInvalidParameter)
	}
	for i, f := range s.Filters {
		switch f.Kind {
		case FILTER_PROJECTION:
			if len(f.Columns) == 0 {
				return fmt.Errorf("%w: projection filter %d has no columns", ErrInvalidParameter, i)
			}
			for _, c := range f.Columns {
				if c < 0 {
					return fmt.Errorf("%w: projection filter %d has negative column %d",
						ErrInvalidParameter, i, c)
				}
			}
		case FILTER_ECCENTRICITY:
			if f.Exponent <= 0 && !math.IsInf(f.Exponent, 1) {
				return fmt.Errorf("%w: eccentricity filter %d has non-positive exponent %f",
					ErrInvalidParameter, i, f.Exponent)
			}
			if !knownMetric(f.Metric) {
				return fmt.Errorf("%w: unknown metric %q in filter %d", ErrInvalidParameter, f.Metric, i)
			}
		case FILTER_ENTROPY:
			if f.Neighbors < 1 {
				return fmt.Errorf("%w: entropy filter %d needs at least one neighbor, got %d",
					ErrInvalidParameter, i, f.Neighbors)
			}
			if !knownMetric(f.Metric) {
				return fmt.Errorf("%w: unknown metric %q in filter %d", ErrInvalidParameter, f.Metric, i)
			}
		default:
			return fmt.Errorf("%w: unknown filter kind %q", ErrInvalidParameter, f.Kind)
		}
	}

	switch s.CoverKind {
	case COVER_ONE_DIMENSIONAL, COVER_CUBICAL:
	default:
		return fmt.Errorf("%w: unknown cover kind %q", ErrInvalidParameter, s.CoverKind)
	}
	if len(s.BinEdges) > 0 {
		if s.CoverKind != COVER_ONE_DIMENSIONAL {
			return fmt.Errorf("%w: explicit bin edges only work with a one-dimensional cover",
				ErrInvalidParameter)
		}
		if len(s.BinEdges) < 2 {
			return fmt.Errorf("%w: need at least two bin edges, got %d",
				ErrInvalidParameter, len(s.BinEdges))
		}
		for i := 1; i < len(s.BinEdges); i++ {
			if s.BinEdges[i] <= s.BinEdges[i-1] {
				return fmt.Errorf("%w: bin edges must be strictly increasing, got %f after %f",
					ErrInvalidParameter, s.BinEdges[i], s.BinEdges[i-1])
			}
		}
	} else {
		if s.NIntervals <= 0 {
			return fmt.Errorf("%w: nIntervals must be positive, got %d",
				ErrInvalidParameter, s.NIntervals)
		}
		if s.OverlapFraction <= 0 || s.OverlapFraction >= 1 {
			return fmt.Errorf("%w: overlapFraction must be in (0, 1), got %f",
				ErrInvalidParameter, s.OverlapFraction)
		}
	}

	switch s.ClustererKind {
	case CLUSTERER_FIRST_SIMPLE_GAP:
		if s.RelativeGap <= 0 || s.RelativeGap >= 1 {
			return fmt.Errorf("%w: relativeGap must be in (0, 1), got %f",
				ErrInvalidParameter, s.RelativeGap)
		}
	case CLUSTERER_FIRST_HISTOGRAM_GAP:
		if s.NBins <= 0 {
			return fmt.Errorf("%w: nBins must be positive, got %d", ErrInvalidParameter, s.NBins)
		}
	default:
		return fmt.Errorf("%w: unknown clusterer kind %q", ErrInvalidParameter, s.ClustererKind)
	}
	if s.MinClusterSize < 1 {
		return fmt.Errorf("%w: minClusterSize must be at least 1, got %d",
			ErrInvalidParameter, s.MinClusterSize)
	}
	if !knownMetric(s.Metric) {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidParameter, s.Metric)
	}
	if s.NJobs < 0 {
		return fmt.Errorf("%w: nJobs must be non-negative, got %d", ErrInvalidParameter, s.NJobs)
	}
	return nil
}
