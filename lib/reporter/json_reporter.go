package reporter

import (
	"encoding/json"
	"io"

	"github.com/skuehn/mapgraph/lib/graph"
)

// A JsonReporter writes the whole graph as one JSON document. This is
// the format the interactive visualization consumes.
type JsonReporter struct {
	writer io.Writer
}

func NewJsonReporter(w io.Writer) *JsonReporter {
	return &JsonReporter{writer: w}
}

func (j *JsonReporter) Report(g *graph.Graph) error {
	encoder := json.NewEncoder(j.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(g)
}
