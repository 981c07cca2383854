package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_submissions_graded_total",
			Help: "Graded assessment submissions",
		},
		[]string{"passed"},
	)

	PointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_points_awarded_total",
			Help: "Points written to the ledger",
		},
		[]string{"source"},
	)

	CertificatesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_certificates_issued_total",
			Help: "Certificate numbers issued on first certification completion",
		},
	)

	SideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_side_effect_failures_total",
			Help: "Downstream side effects that failed after the primary write succeeded",
		},
		[]string{"step"},
	)
)

// Init 注册所有指标，只能调用一次
func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		SubmissionsGraded,
		PointsAwarded,
		CertificatesIssued,
		SideEffectFailures,
	)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
