package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geoselector/pkg/logger"
	"geoselector/pkg/store"
)

// Collector bundles the crawl metrics. It records selector requests and
// visited nodes, so it can be handed to both the client and the crawler.
type Collector struct {
	gatherer prometheus.Gatherer

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Retries         *prometheus.CounterVec

	Regions       prometheus.Counter
	Stations      prometheus.Counter
	Sublocalities prometheus.Counter
	Visited       prometheus.Gauge
}

// NewCollector registers the crawl metrics against reg, defaulting to the
// global registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoselector_requests_total",
		Help: "Selector requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"}), "geoselector_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoselector_request_duration_seconds",
		Help:    "Selector request latency in seconds.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"}), "geoselector_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	retries, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoselector_retries_total",
		Help: "Selector requests retried after a transport failure.",
	}, []string{"endpoint"}), "geoselector_retries_total")
	if err != nil {
		return nil, err
	}

	regions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoselector_regions_persisted_total",
		Help: "Region rows written.",
	}), "geoselector_regions_persisted_total")
	if err != nil {
		return nil, err
	}
	stations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoselector_stations_persisted_total",
		Help: "Station rows written.",
	}), "geoselector_stations_persisted_total")
	if err != nil {
		return nil, err
	}
	sublocs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoselector_sublocalities_persisted_total",
		Help: "Sublocality rows written.",
	}), "geoselector_sublocalities_persisted_total")
	if err != nil {
		return nil, err
	}
	visited, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoselector_nodes_visited",
		Help: "Nodes fully processed in the current run.",
	}), "geoselector_nodes_visited")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Requests:        requests,
		RequestDuration: durations,
		Retries:         retries,
		Regions:         regions,
		Stations:        stations,
		Sublocalities:   sublocs,
		Visited:         visited,
	}, nil
}

// ObserveRequest records one selector request attempt
func (c *Collector) ObserveRequest(endpoint, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(endpoint, outcome).Inc()
	c.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRetry records a retried request
func (c *Collector) ObserveRetry(endpoint string) {
	if c == nil {
		return
	}
	c.Retries.WithLabelValues(endpoint).Inc()
}

// NodeVisited updates the persisted-row counters and the visited gauge
func (c *Collector) NodeVisited(visited int, _ store.Region, stations, sublocalities int) {
	if c == nil {
		return
	}
	c.Regions.Inc()
	c.Stations.Add(float64(stations))
	c.Sublocalities.Add(float64(sublocalities))
	c.Visited.Set(float64(visited))
}

// Handler exposes the /metrics handler
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr under /metrics until ctx is done
func (c *Collector) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.LogComponentStart(log, "metrics", map[string]interface{}{"addr": addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	logger.LogComponentStop(log, "metrics", "shutdown")
	return err
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
