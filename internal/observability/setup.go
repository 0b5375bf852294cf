package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/iamwavecut/wafflebot"

var (
	registerOnce sync.Once

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_violations_total",
			Help: "Total number of messages punished by a filter",
		},
		[]string{"filter"},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Punishments applied, by action and result",
		},
		[]string{"action", "status"},
	)

	filterDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filter_duration_seconds",
			Help:    "Time spent in a single moderation filter",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"filter", "status"},
	)

	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_processing_duration_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(violationsTotal, actionsTotal, filterDuration, updateDuration)
	})
}

// Server exposes /metrics and owns the tracer provider.
type Server struct {
	addr     string
	logger   *zap.Logger
	provider *sdktrace.TracerProvider
	srv      *http.Server
}

func NewServer(addr string) (*Server, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Server{addr: addr, logger: logger}, nil
}

func (s *Server) Start(_ context.Context) error {
	register()

	s.provider = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(s.provider)

	if s.addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	s.logger.Info("metrics server started", zap.String("addr", s.addr))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.srv != nil {
		errs = append(errs, s.srv.Shutdown(ctx))
	}
	if s.provider != nil {
		errs = append(errs, s.provider.Shutdown(ctx))
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func RecordViolation(filter string) {
	violationsTotal.WithLabelValues(filter).Inc()
}

func RecordAction(action string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	actionsTotal.WithLabelValues(action, status).Inc()
}

// StartFilter returns a function recording the filter duration with the final status.
func StartFilter(filter string) func(status string) {
	start := time.Now()
	return func(status string) {
		filterDuration.WithLabelValues(filter, status).Observe(time.Since(start).Seconds())
	}
}

func StartUpdate() func(status string) {
	start := time.Now()
	return func(status string) {
		updateDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
