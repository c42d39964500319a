package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace       = "healthsync"
	shutdownTimeout = 5 * time.Second
)

// Prometheus is the Collector backed by client_golang vectors
type Prometheus struct {
	SyncAttempts        *prometheus.CounterVec
	RecordsSyncedTotal  prometheus.Counter
	Scans               *prometheus.CounterVec
	RateLimitRejections prometheus.Counter
	CacheLookups        *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// No-op implementation
type noopCollector struct{}

// NewService returns a no-op Collector when disabled. Otherwise it
// registers the collectors on reg.
func NewService(cfg Config, reg prometheus.Registerer) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Metrics collection disabled, using no-op collector")
		return noopCollector{}, nil
	}

	p := NewPrometheus()
	if err := p.Register(reg); err != nil {
		return nil, err
	}

	logger.Debug().Str("listen", cfg.Listen).Msg("Metrics service initialized successfully")
	return p, nil
}

func NewPrometheus() *Prometheus {
	return &Prometheus{
		SyncAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_attempts_total",
			Help:      "Sync runs by mode and outcome.",
		}, []string{"mode", "result"}),
		RecordsSyncedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_synced_total",
			Help:      "Daily records accepted by the backend.",
		}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan requests by type and outcome.",
		}, []string{"type", "result"}),
		RateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Calls refused by the outbound rate limiter.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Scan history cache lookups by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Backend request duration by endpoint and status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"endpoint", "status"}),
	}
}

func (p *Prometheus) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		p.SyncAttempts,
		p.RecordsSyncedTotal,
		p.Scans,
		p.RateLimitRejections,
		p.CacheLookups,
		p.RequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return errors.New().Wrap(ErrRegister, err)
		}
	}
	return nil
}

func (p *Prometheus) SyncAttempt(mode, result string) {
	p.SyncAttempts.WithLabelValues(mode, result).Inc()
}

func (p *Prometheus) RecordsSynced(n int) {
	if n > 0 {
		p.RecordsSyncedTotal.Add(float64(n))
	}
}

func (p *Prometheus) ScanCompleted(scanType, result string) {
	p.Scans.WithLabelValues(scanType, result).Inc()
}

func (p *Prometheus) RateLimitRejected() {
	p.RateLimitRejections.Inc()
}

func (p *Prometheus) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveRequest records one backend call. Status 0 means no response.
func (p *Prometheus) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	label := "none"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	p.RequestDuration.WithLabelValues(endpoint, label).Observe(elapsed.Seconds())
}

// Serve exposes g on /metrics until ctx is done
func Serve(ctx context.Context, cfg Config, g prometheus.Gatherer, log logger.Logger) error {
	errFactory := errors.New()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Listen).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errFactory.Wrap(ErrServe, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

// No-op implementation
func (noopCollector) SyncAttempt(string, string)                {}
func (noopCollector) RecordsSynced(int)                         {}
func (noopCollector) ScanCompleted(string, string)              {}
func (noopCollector) RateLimitRejected()                        {}
func (noopCollector) CacheLookup(bool)                          {}
func (noopCollector) ObserveRequest(string, int, time.Duration) {}
