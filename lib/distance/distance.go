// Package distance provides the metric functions and pairwise distance
// matrices used by the filter and clustering stages.
package distance

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/skuehn/mapgraph/lib/settings"
	"gonum.org/v1/gonum/mat"
)

// A MetricFunc computes the distance between two points of equal
// dimension.
type MetricFunc func(x []float64, y []float64) (float64, error)

func Euclidean(x []float64, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0.0, fmt.Errorf("%w: euclidean distance needs arguments of the same length",
			settings.ErrShapeMismatch)
	}
	sum := 0.0
	for i, xi := range x {
		diff := xi - y[i]
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}

func Manhattan(x []float64, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0.0, fmt.Errorf("%w: manhattan distance needs arguments of the same length",
			settings.ErrShapeMismatch)
	}
	sum := 0.0
	for i, xi := range x {
		sum += math.Abs(xi - y[i])
	}
	return sum, nil
}

func Chebyshev(x []float64, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0.0, fmt.Errorf("%w: chebyshev distance needs arguments of the same length",
			settings.ErrShapeMismatch)
	}
	ret := 0.0
	for i, xi := range x {
		d := math.Abs(xi - y[i])
		if d > ret {
			ret = d
		}
	}
	return ret, nil
}

// ByName maps a metric name from the settings to its function.
func ByName(name string) (MetricFunc, error) {
	switch name {
	case settings.METRIC_EUCLIDEAN:
		return Euclidean, nil
	case settings.METRIC_MANHATTAN:
		return Manhattan, nil
	case settings.METRIC_CHEBYSHEV:
		return Chebyshev, nil
	}
	return nil, fmt.Errorf("%w: unknown metric %q", settings.ErrInvalidParameter, name)
}

// Pairwise computes the symmetric distance matrix of the given points.
// Rows are computed concurrently; each goroutine owns a disjoint row
// range, so no locking is needed on the output.
func Pairwise(points [][]float64, metric MetricFunc) (*mat.SymDense, error) {
	n := len(points)
	out := mat.NewSymDense(n, nil)
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < n; i += workers {
				for j := i + 1; j < n; j++ {
					d, err := metric(points[i], points[j])
					if err != nil {
						errs[w] = err
						return
					}
					out.SetSym(i, j, d)
				}
			}
		}(w)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Submatrix extracts the pairwise distances between the given point
// indices, in index order.
func Submatrix(d *mat.SymDense, indices []int) *mat.SymDense {
	n := len(indices)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out.SetSym(i, j, d.At(indices[i], indices[j]))
		}
	}
	return out
}

// ValidateMatrix checks a caller-supplied distance matrix: it must be
// square, match the point count, and be symmetric within tolerance.
func ValidateMatrix(d *mat.Dense, pointCount int, tolerance float64) (*mat.SymDense, error) {
	rows, cols := d.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: distance matrix is %dx%d, want square",
			settings.ErrShapeMismatch, rows, cols)
	}
	if rows != pointCount {
		return nil, fmt.Errorf("%w: distance matrix has %d rows for %d points",
			settings.ErrShapeMismatch, rows, pointCount)
	}
	out := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i + 1; j < cols; j++ {
			a, b := d.At(i, j), d.At(j, i)
			if math.Abs(a-b) > tolerance {
				return nil, fmt.Errorf("%w: distance matrix is not symmetric at (%d,%d): %f vs %f",
					settings.ErrShapeMismatch, i, j, a, b)
			}
			out.SetSym(i, j, (a+b)/2)
		}
	}
	return out, nil
}
