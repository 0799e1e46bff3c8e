// Package filters maps a point cloud to the low-dimensional values
// that drive the cover. Each filter produces one value per point per
// output dimension; requesting several filters stacks their outputs.
package filters

import (
	"fmt"
	"math"
	"sort"

	"github.com/skuehn/mapgraph/lib/distance"
	"github.com/skuehn/mapgraph/lib/settings"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Compute runs every requested filter over the point cloud and stacks
// the outputs column-wise, preserving point order.
//
// Distance-based filters reuse precomputed when its metric matches
// precomputedMetric; otherwise they compute their own pairwise matrix.
func Compute(specs []settings.FilterSpec, points [][]float64,
	precomputed *mat.SymDense, precomputedMetric string) ([][]float64, error) {

	n := len(points)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, 0, len(specs))
	}
	for _, spec := range specs {
		var column [][]float64
		var err error
		switch spec.Kind {
		case settings.FILTER_PROJECTION:
			column, err = projection(points, spec.Columns)
		case settings.FILTER_ECCENTRICITY:
			var d *mat.SymDense
			d, err = pairwiseFor(spec, points, precomputed, precomputedMetric)
			if err == nil {
				column = eccentricity(d, spec.Exponent)
			}
		case settings.FILTER_ENTROPY:
			var d *mat.SymDense
			d, err = pairwiseFor(spec, points, precomputed, precomputedMetric)
			if err == nil {
				column, err = entropy(d, spec.Neighbors)
			}
		default:
			err = fmt.Errorf("%w: unknown filter kind %q", settings.ErrInvalidParameter, spec.Kind)
		}
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = append(out[i], column[i]...)
		}
	}
	return out, nil
}

func pairwiseFor(spec settings.FilterSpec, points [][]float64,
	precomputed *mat.SymDense, precomputedMetric string) (*mat.SymDense, error) {
	if precomputed != nil && spec.Metric == precomputedMetric {
		return precomputed, nil
	}
	metric, err := distance.ByName(spec.Metric)
	if err != nil {
		return nil, err
	}
	return distance.Pairwise(points, metric)
}

func projection(points [][]float64, columns []int) ([][]float64, error) {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = make([]float64, len(columns))
		for j, c := range columns {
			if c >= len(p) {
				return nil, fmt.Errorf("%w: projection column %d out of range for %d-dimensional input",
					settings.ErrInvalidParameter, c, len(p))
			}
			out[i][j] = p[c]
		}
	}
	return out, nil
}

// eccentricity computes the p-norm mean of each point's distances to
// all other points. Exponent +Inf means the maximum distance.
func eccentricity(d *mat.SymDense, exponent float64) [][]float64 {
	n, _ := d.Dims()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		if math.IsInf(exponent, 1) {
			maxDist := 0.0
			for j := 0; j < n; j++ {
				if d.At(i, j) > maxDist {
					maxDist = d.At(i, j)
				}
			}
			out[i] = []float64{maxDist}
			continue
		}
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += math.Pow(d.At(i, j), exponent)
		}
		out[i] = []float64{math.Pow(sum/float64(n), 1.0/exponent)}
	}
	return out
}

// entropy computes, per point, the Shannon entropy of the normalized
// distance distribution over its k nearest neighbours.
func entropy(d *mat.SymDense, neighbors int) ([][]float64, error) {
	n, _ := d.Dims()
	if neighbors >= n {
		return nil, fmt.Errorf("%w: entropy filter needs %d neighbors but there are only %d points",
			settings.ErrShapeMismatch, neighbors, n)
	}
	out := make([][]float64, n)
	dists := make([]float64, n-1)
	for i := 0; i < n; i++ {
		dists = dists[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dists = append(dists, d.At(i, j))
		}
		sort.Float64s(dists)
		nearest := dists[:neighbors]
		total := 0.0
		for _, v := range nearest {
			total += v
		}
		p := make([]float64, neighbors)
		if total == 0 {
			// All neighbours coincide with the point; treat the
			// distribution as uniform.
			for j := range p {
				p[j] = 1.0 / float64(neighbors)
			}
		} else {
			for j, v := range nearest {
				p[j] = v / total
			}
		}
		out[i] = []float64{stat.Entropy(p)}
	}
	return out, nil
}
