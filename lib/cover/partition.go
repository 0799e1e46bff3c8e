package cover

import (
	"fmt"
	"sort"

	"github.com/skuehn/mapgraph/lib/settings"
)

// Partition assigns every point to the cover elements whose bounds
// contain its filter value. The result has one sorted point-index
// slice per cover element, in element order.
//
// Because each axis is an ordered list of intervals, membership per
// dimension is found by binary search over the points sorted by that
// dimension's filter value, instead of testing every point against
// every element. The output depends only on the values, not on point
// iteration order.
func (c *Cover) Partition(values [][]float64) ([][]int, error) {
	n := len(values)
	dims := len(c.axes)
	if n > 0 && len(values[0]) != dims {
		return nil, fmt.Errorf("%w: filter values have %d dimensions but the cover has %d",
			settings.ErrShapeMismatch, len(values[0]), dims)
	}

	// memberships[d][k] is the ascending index list of points whose
	// dth filter value lies in axis interval k.
	memberships := make([][][]int, dims)
	for d := 0; d < dims; d++ {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return values[order[a]][d] < values[order[b]][d]
		})
		memberships[d] = make([][]int, len(c.axes[d]))
		for k, iv := range c.axes[d] {
			lo := sort.Search(n, func(i int) bool {
				return values[order[i]][d] >= iv.Lo
			})
			hi := sort.Search(n, func(i int) bool {
				return values[order[i]][d] > iv.Hi
			})
			members := make([]int, hi-lo)
			copy(members, order[lo:hi])
			sort.Ints(members)
			memberships[d][k] = members
		}
	}

	out := make([][]int, len(c.Elements))
	for idx, element := range c.Elements {
		members := memberships[0][element.Coordinates[0]]
		for d := 1; d < dims && len(members) > 0; d++ {
			members = intersectSorted(members, memberships[d][element.Coordinates[d]])
		}
		// Copy so elements sharing an axis list cannot alias.
		out[idx] = append([]int(nil), members...)
	}
	return out, nil
}

// intersectSorted merges two ascending index lists into their
// intersection.
func intersectSorted(a []int, b []int) []int {
	out := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
