package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "planpresso",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "planpresso",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Editor metrics
	Validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "editor",
		Name:      "validations_total",
		Help:      "Plan validations by outcome (valid, warnings, invalid)",
	}, []string{"result"})

	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "editor",
		Name:      "parse_failures_total",
		Help:      "Plan texts that could not be parsed",
	})

	HistoryOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "editor",
		Name:      "history_ops_total",
		Help:      "Undo and redo operations that changed the document",
	}, []string{"op"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "planpresso",
		Subsystem: "editor",
		Name:      "sessions_active",
		Help:      "Editor sessions currently open",
	})

	PlansSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "editor",
		Name:      "plans_saved_total",
		Help:      "Plans promoted by a successful save",
	})

	MapViewsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "render",
		Name:      "map_views_total",
		Help:      "Map views rendered for saved plans, by result",
	}, []string{"result"})

	// Draft persistence
	DraftsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "drafts",
		Name:      "saved_total",
		Help:      "Drafts written to the draft store",
	})

	DraftsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "drafts",
		Name:      "failed_total",
		Help:      "Draft store operations that failed and were swallowed",
	}, []string{"op"})

	GeocoderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "geocoder",
		Name:      "requests_total",
		Help:      "Geocoder lookups by outcome (ok, error, cancelled, stale)",
	}, []string{"result"})

	GeocoderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "planpresso",
		Subsystem: "geocoder",
		Name:      "request_duration_seconds",
		Help:      "Duration of upstream geocoder requests",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "planpresso",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "planpresso",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "planpresso",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "planpresso",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	DBPoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "db",
		Name:      "pool_wait_count_total",
		Help:      "Acquires that had to wait for a connection",
	})

	DBPoolWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planpresso",
		Subsystem: "db",
		Name:      "pool_acquire_seconds_total",
		Help:      "Time spent acquiring connections from the pool",
	})
)

// pgxpool reports cumulative wait figures; the counters advance by the
// difference since the previous report.
var (
	poolMu        sync.Mutex
	lastWaitCount int64
	lastAcquire   time.Duration
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Matched structurally so this package does not import pgxpool.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
		EmptyAcquireCount() int64
		AcquireDuration() time.Duration
	}

	s, ok := stat.(poolStat)
	if !ok {
		return
	}
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))

	poolMu.Lock()
	defer poolMu.Unlock()
	// A smaller value means a new pool; count it from zero.
	waits, acquire := s.EmptyAcquireCount(), s.AcquireDuration()
	if waits < lastWaitCount || acquire < lastAcquire {
		lastWaitCount, lastAcquire = 0, 0
	}
	DBPoolWaitCount.Add(float64(waits - lastWaitCount))
	DBPoolWaitSeconds.Add((acquire - lastAcquire).Seconds())
	lastWaitCount, lastAcquire = waits, acquire
}
