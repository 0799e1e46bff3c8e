package reporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skuehn/mapgraph/lib/graph"
)

// A CsvReporter writes the graph as nodes.csv and edges.csv under one
// directory. The node file carries the statistics the visualization
// consumer derives positions from.
type CsvReporter struct {
	directory string
}

func NewCsvReporter(directory string) *CsvReporter {
	return &CsvReporter{directory: directory}
}

func (c *CsvReporter) Report(g *graph.Graph) error {
	if err := c.writeNodes(g); err != nil {
		return err
	}
	return c.writeEdges(g)
}

func (c *CsvReporter) writeNodes(g *graph.Graph) error {
	file, err := os.OpenFile(filepath.Join(c.directory, "nodes.csv"),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("failed to open nodes file: %w", err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"id", "coverElement", "clusterLabel", "size",
		"meanFilterValue", "points"}); err != nil {
		return err
	}
	for _, node := range g.Nodes {
		record := []string{
			fmt.Sprintf("%d", node.ID),
			fmt.Sprintf("%d", node.CoverElement),
			fmt.Sprintf("%d", node.ClusterLabel),
			fmt.Sprintf("%d", node.Size),
			joinFloats(node.MeanFilterValue),
			joinInts(node.Points),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (c *CsvReporter) writeEdges(g *graph.Graph) error {
	file, err := os.OpenFile(filepath.Join(c.directory, "edges.csv"),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("failed to open edges file: %w", err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"source", "target", "weight"}); err != nil {
		return err
	}
	for _, edge := range g.Edges {
		record := []string{
			fmt.Sprintf("%d", edge.Source),
			fmt.Sprintf("%d", edge.Target),
			fmt.Sprintf("%d", edge.Weight),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%f", v)
	}
	return strings.Join(parts, "|")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, "|")
}
