// Package reporter exports a mapper graph for external consumers,
// such as the visualization frontend.
package reporter

import (
	"github.com/skuehn/mapgraph/lib/graph"
)

type Reporter interface {
	Report(g *graph.Graph) error
}
