package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skuehn/mapgraph/lib/settings"
	"github.com/skuehn/mapgraph/service"
)

func main() {
	var listenAddr string
	var metricsAddr string
	var configFile string
	var timeoutSeconds int
	var nIntervals int
	var overlapFraction float64
	var clusterer string
	var relativeGap float64
	var metric string
	var nJobs int

	flag.StringVar(&listenAddr, "listen-address", ":9201", "The address the API endpoint binds to.")
	flag.StringVar(&metricsAddr, "metrics-address", ":9203", "The address the metrics endpoint binds to.")
	flag.StringVar(&configFile, "config", "", "Optional YAML config file. Overrides the other flags.")
	flag.IntVar(&timeoutSeconds, "timeoutSeconds", 60, "wall-clock bound per computation, 0 disables")
	flag.IntVar(&nIntervals, "nIntervals", 10, "number of cover intervals per filter dimension")
	flag.Float64Var(&overlapFraction, "overlapFraction", 0.3, "cover interval overlap fraction, in (0,1)")
	flag.StringVar(&clusterer, "clusterer", settings.CLUSTERER_FIRST_SIMPLE_GAP,
		"clusterer kind. Possible values: first_simple_gap, first_histogram_gap")
	flag.Float64Var(&relativeGap, "relativeGap", 0.3, "relative gap threshold for first_simple_gap")
	flag.StringVar(&metric, "metric", settings.METRIC_EUCLIDEAN,
		"distance metric. Possible values: euclidean, manhattan, chebyshev")
	flag.IntVar(&nJobs, "nJobs", 0, "worker pool size for clustering, 0 means all cores")

	flag.Parse()

	mapperConfig := settings.MapperSettings{
		CoverKind:       settings.COVER_ONE_DIMENSIONAL,
		NIntervals:      nIntervals,
		OverlapFraction: overlapFraction,
		ClustererKind:   clusterer,
		RelativeGap:     relativeGap,
		Metric:          metric,
		NJobs:           nJobs,
	}.ApplyDefaults()
	timeout := time.Duration(timeoutSeconds) * time.Second

	if configFile != "" {
		cfg, err := service.LoadConfig(configFile)
		if err != nil {
			log.Fatal(err)
		}
		mapperConfig = cfg.Mapper
		listenAddr = cfg.ListenAddress
		metricsAddr = cfg.MetricsAddress
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	if err := mapperConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	http.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(metricsAddr, nil)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	handler := service.NewHandler(mapperConfig, timeout)
	router := mux.NewRouter().StrictSlash(true)
	handler.RegisterRoutes(router)
	server := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}
	go func() {
		log.Printf("mapper service listening on %s\n", listenAddr)
		if err := server.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}
	}()

	<-stop
	log.Println("mapper service shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
