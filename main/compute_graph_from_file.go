package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skuehn/mapgraph/lib"
	"github.com/skuehn/mapgraph/lib/reporter"
	"github.com/skuehn/mapgraph/lib/settings"
)

// Reads a point cloud from a text file (one point per line, values
// separated by spaces), computes its mapper graph and writes the
// result as JSON to stdout or as CSV files into a directory.

func readPoints(filename string) ([][]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	points := make([][]float64, 0)
	lineCount := 0
	columnCount := 0
	reader := bufio.NewReader(file)
	for {
		line, readErr := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if len(line) > 0 {
			lineCount++
			parts := strings.Fields(line)
			if columnCount == 0 {
				columnCount = len(parts)
			} else if columnCount != len(parts) {
				return nil, fmt.Errorf("inconsistent number of values in line %d: expected %d but got %d",
					lineCount, columnCount, len(parts))
			}
			vec := make([]float64, len(parts))
			for i, p := range parts {
				vec[i], err = strconv.ParseFloat(p, 64)
				if err != nil {
					return nil, fmt.Errorf("on line %d of %s, failed to parse %s into a float: %v",
						lineCount, filename, p, err)
				}
			}
			points = append(points, vec)
		}
		if readErr != nil {
			break // readErr is usually io.EOF
		}
	}
	return points, nil
}

func main() {
	filename := flag.String("filename", "", "Name of the file to read")
	filterColumn := flag.Int("filterColumn", 0, "input coordinate to project onto")
	nIntervals := flag.Int("nIntervals", 10, "number of cover intervals")
	overlapFraction := flag.Float64("overlapFraction", 0.3, "cover interval overlap fraction")
	clusterer := flag.String("clusterer", settings.CLUSTERER_FIRST_SIMPLE_GAP, "clusterer kind")
	relativeGap := flag.Float64("relativeGap", 0.3, "relative gap threshold for first_simple_gap")
	nBins := flag.Int("nBins", 10, "histogram bins for first_histogram_gap")
	metric := flag.String("metric", settings.METRIC_EUCLIDEAN, "distance metric")
	nJobs := flag.Int("nJobs", 0, "worker pool size, 0 means all cores")
	outputDirectory := flag.String("outputDirectory", "", "write CSV files here instead of JSON to stdout")
	flag.Parse()

	points, err := readPoints(*filename)
	if err != nil {
		fmt.Printf("failed to read %s: %v\n", *filename, err)
		os.Exit(1)
	}

	config := settings.MapperSettings{
		Filters:         []settings.FilterSpec{{Kind: settings.FILTER_PROJECTION, Columns: []int{*filterColumn}}},
		CoverKind:       settings.COVER_ONE_DIMENSIONAL,
		NIntervals:      *nIntervals,
		OverlapFraction: *overlapFraction,
		ClustererKind:   *clusterer,
		RelativeGap:     *relativeGap,
		NBins:           *nBins,
		Metric:          *metric,
		NJobs:           *nJobs,
	}.ApplyDefaults()

	mapper, err := lib.NewMapper(config)
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}
	g, err := mapper.Graph(points)
	if err != nil {
		fmt.Printf("failed to compute graph: %v\n", err)
		os.Exit(1)
	}

	var rep reporter.Reporter
	if *outputDirectory != "" {
		rep = reporter.NewCsvReporter(*outputDirectory)
	} else {
		rep = reporter.NewJsonReporter(os.Stdout)
	}
	if err := rep.Report(g); err != nil {
		fmt.Printf("failed to write graph: %v\n", err)
		os.Exit(1)
	}

	stats := mapper.Stats()
	fmt.Fprintf(os.Stderr, "mapper statistics:\ncover elements: %d\nempty elements: %d\nclustering calls: %d\ndropped clusters: %d\nnodes: %d\nedges: %d\n",
		stats.CoverElements, stats.EmptyElements, stats.ClusteringCalls,
		stats.DroppedClusters, stats.Nodes, stats.Edges)
}
