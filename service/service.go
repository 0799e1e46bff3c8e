// Package service exposes the mapper pipeline over HTTP for the
// visualization and graph-analysis consumers.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/skuehn/mapgraph/lib"
	"github.com/skuehn/mapgraph/lib/graph"
	"github.com/skuehn/mapgraph/lib/settings"
)

var (
	graphRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mapgraph_graph_requests_total",
			Help: "Total number of graph computation requests.",
		},
	)
	graphRequestErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mapgraph_graph_request_errors_total",
			Help: "Total number of failed graph computation requests.",
		},
	)
	graphDurationHist = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mapgraph_graph_duration_milliseconds_histogram",
			Help:    "Duration of graph computation calls.",
			Buckets: prometheus.DefBuckets,
		},
	)
	graphDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapgraph_graph_duration_milliseconds",
			Help: "Duration of the most recent graph computation call.",
		},
	)
	graphNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapgraph_graph_nodes",
			Help: "Number of nodes in the most recently computed graph.",
		},
	)
	graphEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapgraph_graph_edges",
			Help: "Number of edges in the most recently computed graph.",
		},
	)
)

func init() {
	prometheus.MustRegister(graphRequests)
	prometheus.MustRegister(graphRequestErrors)
	prometheus.MustRegister(graphDurationHist)
	prometheus.MustRegister(graphDuration)
	prometheus.MustRegister(graphNodes)
	prometheus.MustRegister(graphEdges)
}

// A GraphRequest is the payload of a computation request: the point
// cloud plus optional settings overriding the server defaults.
type GraphRequest struct {
	Points   [][]float64              `json:"points"`
	Settings *settings.MapperSettings `json:"settings,omitempty"`
}

// A ComponentsResponse pairs the graph with its connected components,
// for graph-analysis consumers that want both in one round trip.
type ComponentsResponse struct {
	Graph      *graph.Graph `json:"graph"`
	Components [][]int      `json:"components"`
}

// A Handler serves mapper computations. Each request builds its own
// fitted mapper, so requests never share mutable state.
type Handler struct {
	defaults settings.MapperSettings
	timeout  time.Duration
}

func NewHandler(defaults settings.MapperSettings, timeout time.Duration) *Handler {
	return &Handler{defaults: defaults, timeout: timeout}
}

// RegisterRoutes attaches the API endpoints to a router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/graph", h.ComputeGraph).Methods("POST")
	router.HandleFunc("/api/v1/components", h.ComputeComponents).Methods("POST")
}

func (h *Handler) ComputeGraph(w http.ResponseWriter, r *http.Request) {
	g, ok := h.computeFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, g)
}

func (h *Handler) ComputeComponents(w http.ResponseWriter, r *http.Request) {
	g, ok := h.computeFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, &ComponentsResponse{Graph: g, Components: g.ConnectedComponents()})
}

func (h *Handler) computeFromRequest(w http.ResponseWriter, r *http.Request) (*graph.Graph, bool) {
	graphRequests.Inc()
	var req GraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		graphRequestErrors.Inc()
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return nil, false
	}
	cfg := h.defaults
	if req.Settings != nil {
		cfg = *req.Settings
	}

	mapper, err := lib.NewMapper(cfg)
	if err != nil {
		graphRequestErrors.Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	start := time.Now()
	g, err := h.runBounded(mapper, req.Points)
	elapsed := time.Since(start)
	graphDurationHist.Observe(float64(elapsed.Milliseconds()))
	graphDuration.Set(float64(elapsed.Milliseconds()))
	if err != nil {
		graphRequestErrors.Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, settings.ErrInvalidParameter) || errors.Is(err, settings.ErrShapeMismatch) {
			status = http.StatusBadRequest
		} else if errors.Is(err, errComputationTimeout) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return nil, false
	}
	graphNodes.Set(float64(len(g.Nodes)))
	graphEdges.Set(float64(len(g.Edges)))
	log.Printf("computed graph with %d nodes and %d edges in %d milliseconds",
		len(g.Nodes), len(g.Edges), elapsed.Milliseconds())
	return g, true
}

var errComputationTimeout = errors.New("graph computation timed out")

type runResult struct {
	graph *graph.Graph
	err   error
}

// runBounded imposes the wall-clock bound on a single run. The core
// has no cancellation semantics, so on timeout the result of the
// still-running computation is discarded entirely; no partial graph is
// ever returned.
func (h *Handler) runBounded(mapper *lib.Mapper, points [][]float64) (*graph.Graph, error) {
	if h.timeout <= 0 {
		return mapper.Graph(points)
	}
	done := make(chan runResult, 1)
	go func() {
		g, err := mapper.Graph(points)
		done <- runResult{graph: g, err: err}
	}()
	select {
	case result := <-done:
		return result.graph, result.err
	case <-time.After(h.timeout):
		return nil, fmt.Errorf("%w after %s", errComputationTimeout, h.timeout)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
