// Package cover partitions the filter's output range into overlapping
// intervals (one-dimensional) or overlapping hyper-rectangles built as
// the cartesian product of per-dimension intervals (cubical).
package cover

import (
	"fmt"
	"log"

	"github.com/skuehn/mapgraph/lib/settings"
)

// An Interval is one inflated interval of a one-dimensional cover.
// Both bounds are closed: a point sitting exactly on a shared bound
// belongs to every interval whose bounds contain it.
type Interval struct {
	Lo float64
	Hi float64
}

func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lo && v <= iv.Hi
}

// An Element is one cover element: an interval per filter dimension.
// Index is the row-major flattening of Coordinates over the
// per-dimension interval counts; it is the stable element identity.
type Element struct {
	Index       int
	Coordinates []int
	Bounds      []Interval
}

// Contains reports whether a filter-space point lies inside this
// element's inflated bounds.
func (e Element) Contains(v []float64) bool {
	for d, iv := range e.Bounds {
		if !iv.Contains(v[d]) {
			return false
		}
	}
	return true
}

// A Cover is the ordered list of cover elements plus the per-dimension
// interval axes they were built from.
type Cover struct {
	Elements []Element

	axes [][]Interval
	// degenerate[d] is true when dimension d's filter range collapsed
	// to a single value.
	degenerate []bool
}

// Dimensions returns the number of filter dimensions this cover spans.
func (c *Cover) Dimensions() int {
	return len(c.axes)
}

// DegenerateDimensions returns how many filter dimensions collapsed to
// a single value.
func (c *Cover) DegenerateDimensions() int {
	count := 0
	for _, d := range c.degenerate {
		if d {
			count++
		}
	}
	return count
}

// New builds a cover for the observed filter range, one min/max pair
// per filter dimension. A one-dimensional cover only accepts a single
// filter dimension; a cubical cover accepts any number.
func New(cfg settings.MapperSettings, mins []float64, maxs []float64) (*Cover, error) {
	if len(mins) != len(maxs) || len(mins) == 0 {
		return nil, fmt.Errorf("%w: filter range has %d minima and %d maxima",
			settings.ErrShapeMismatch, len(mins), len(maxs))
	}
	if cfg.CoverKind == settings.COVER_ONE_DIMENSIONAL && len(mins) != 1 {
		return nil, fmt.Errorf("%w: one-dimensional cover configured but filter output has %d dimensions",
			settings.ErrShapeMismatch, len(mins))
	}

	c := &Cover{
		axes:       make([][]Interval, len(mins)),
		degenerate: make([]bool, len(mins)),
	}
	for d := range mins {
		if mins[d] == maxs[d] {
			// Constant filter dimension. Fall back to a single
			// interval covering the point; this is worth a diagnostic
			// but is not an error.
			log.Printf("filter dimension %d is constant at %f, using a single cover interval",
				d, mins[d])
			c.axes[d] = []Interval{{Lo: mins[d], Hi: maxs[d]}}
			c.degenerate[d] = true
			continue
		}
		if len(cfg.BinEdges) > 0 {
			c.axes[d] = intervalsFromEdges(cfg.BinEdges)
		} else {
			c.axes[d] = uniformIntervals(mins[d], maxs[d], cfg.NIntervals, cfg.OverlapFraction)
		}
	}

	c.Elements = cartesianProduct(c.axes)
	return c, nil
}

// uniformIntervals splits [min, max] into n equal-width intervals and
// inflates each to width*(1+overlap), keeping centers fixed. Adjacent
// intervals then overlap by width*overlap.
func uniformIntervals(min float64, max float64, n int, overlap float64) []Interval {
	width := (max - min) / float64(n)
	halfInflated := width * (1 + overlap) / 2
	out := make([]Interval, n)
	for i := 0; i < n; i++ {
		center := min + (float64(i)+0.5)*width
		out[i] = Interval{Lo: center - halfInflated, Hi: center + halfInflated}
	}
	return out
}

func intervalsFromEdges(edges []float64) []Interval {
	out := make([]Interval, len(edges)-1)
	for i := 0; i < len(edges)-1; i++ {
		out[i] = Interval{Lo: edges[i], Hi: edges[i+1]}
	}
	return out
}

// cartesianProduct enumerates all per-dimension interval combinations
// in row-major order, so element indices are stable for a given axis
// layout.
func cartesianProduct(axes [][]Interval) []Element {
	total := 1
	for _, axis := range axes {
		total *= len(axis)
	}
	elements := make([]Element, total)
	coords := make([]int, len(axes))
	for idx := 0; idx < total; idx++ {
		bounds := make([]Interval, len(axes))
		coordsCopy := make([]int, len(axes))
		for d := range axes {
			bounds[d] = axes[d][coords[d]]
			coordsCopy[d] = coords[d]
		}
		elements[idx] = Element{Index: idx, Coordinates: coordsCopy, Bounds: bounds}

		// Advance the last dimension fastest.
		for d := len(coords) - 1; d >= 0; d-- {
			coords[d]++
			if coords[d] < len(axes[d]) {
				break
			}
			coords[d] = 0
		}
	}
	return elements
}
