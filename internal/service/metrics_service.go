package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry: HTTP metrics plus solver run
// and placement instrumentation.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	runGenerations prometheus.Histogram
	bestHardCount  prometheus.Gauge

	placementsTotal *prometheus.CounterVec
}

// NewMetricsService registers every collector on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_runs_total",
		Help: "Solver runs by terminal status",
	}, []string{"status"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_run_duration_seconds",
		Help:    "Wall time of solver runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	runGenerations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_run_generations",
		Help:    "Generations executed per solver run",
		Buckets: []float64{10, 50, 100, 250, 500, 1000},
	})

	bestHardCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solver_last_run_hard_violations",
		Help: "Hard violations remaining in the most recent run",
	})

	placementsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_placements_total",
		Help: "Placement outcomes by status",
	}, []string{"status"})

	registry.MustRegister(requestDuration, requestTotal, runsTotal, runDuration, runGenerations, bestHardCount, placementsTotal)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		runGenerations:  runGenerations,
		bestHardCount:   bestHardCount,
		placementsTotal: placementsTotal,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveRequest records one HTTP request.
func (s *MetricsService) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveRun records one finished solver run.
func (s *MetricsService) ObserveRun(status string, generations int, elapsed time.Duration, hardCount int) {
	s.runsTotal.WithLabelValues(status).Inc()
	s.runDuration.Observe(elapsed.Seconds())
	s.runGenerations.Observe(float64(generations))
	s.bestHardCount.Set(float64(hardCount))
}

// ObservePlacement records one placement pass.
func (s *MetricsService) ObservePlacement(enrolled, waitlisted, bypassed, denied int) {
	s.placementsTotal.WithLabelValues("enrolled").Add(float64(enrolled))
	s.placementsTotal.WithLabelValues("waitlisted").Add(float64(waitlisted))
	s.placementsTotal.WithLabelValues("bypassed").Add(float64(bypassed))
	s.placementsTotal.WithLabelValues("denied").Add(float64(denied))
}
