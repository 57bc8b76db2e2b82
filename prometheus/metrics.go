package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics start out unregistered so packages can record them before
// InitMetrics runs (tests, CLI commands). InitMetrics swaps in registered ones.
var (
	// HTTP request metrics
	HttpRequestsTotal   = newCounterVec("http_requests_total", "Total number of HTTP requests", "method", "path", "status")
	HttpRequestDuration = newHistogramVec("http_request_duration_seconds", "Duration of HTTP requests in seconds", "method", "path", "status")

	// Authentication metrics
	AuthAttemptsCounter = newCounter("auth_attempts_total", "Total number of authentication attempts")
	AuthSuccessCounter  = newCounter("auth_success_total", "Total number of successful authentications")
	AuthErrorsCounter   = newCounterVec("auth_errors_total", "Total number of authentication errors", "type")

	// Database operation metrics
	DbOperationDuration = newHistogramVec("db_operation_duration_seconds", "Duration of database operations in seconds", "operation_type")

	// Listing metrics
	ListingOperationsCounter = newCounterVec("listing_operations_total", "Total number of listing operations", "operation", "result")

	// Object storage metrics
	StorageOperationsCounter = newCounterVec("storage_operations_total", "Total number of object storage operations", "bucket", "operation", "result")

	// Compensations run after a failed multi-step workflow
	CompensationsCounter = newCounterVec("compensations_total", "Total number of compensating actions", "step", "result")

	// Seller registration metrics
	RegistrationsCounter = newCounterVec("seller_registrations_total", "Total number of seller registrations", "result")

	// Outbound email metrics
	EmailsCounter = newCounterVec("emails_total", "Total number of notification emails", "template", "result")
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	prefix := cfg.Metrics.Prefix + "_"

	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: prefix + "http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"method", "path", "status"},
	)
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "auth_attempts_total",
		Help: "Total number of authentication attempts",
	})
	AuthSuccessCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "auth_success_total",
		Help: "Total number of successful authentications",
	})
	AuthErrorsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: prefix + "auth_errors_total", Help: "Total number of authentication errors"},
		[]string{"type"},
	)

	DbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	ListingOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: prefix + "listing_operations_total", Help: "Total number of listing operations"},
		[]string{"operation", "result"},
	)
	StorageOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: prefix + "storage_operations_total", Help: "Total number of object storage operations"},
		[]string{"bucket", "operation", "result"},
	)
	CompensationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: prefix + "compensations_total", Help: "Total number of compensating actions"},
		[]string{"step", "result"},
	)
	RegistrationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: prefix + "seller_registrations_total", Help: "Total number of seller registrations"},
		[]string{"result"},
	)
	EmailsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: prefix + "emails_total", Help: "Total number of notification emails"},
		[]string{"template", "result"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorsCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordListingOperation increments the counter for listing operations
func RecordListingOperation(operation string, err error) {
	ListingOperationsCounter.WithLabelValues(operation, result(err)).Inc()
}

// RecordStorageOperation increments the counter for object storage operations
func RecordStorageOperation(bucket, operation string, err error) {
	StorageOperationsCounter.WithLabelValues(bucket, operation, result(err)).Inc()
}

// RecordCompensation increments the counter for compensating actions
func RecordCompensation(step string, err error) {
	CompensationsCounter.WithLabelValues(step, result(err)).Inc()
}

// RecordRegistration increments the counter for seller registrations
func RecordRegistration(err error) {
	RegistrationsCounter.WithLabelValues(result(err)).Inc()
}

// RecordEmail increments the counter for notification emails
func RecordEmail(template string, err error) {
	EmailsCounter.WithLabelValues(template, result(err)).Inc()
}

// Middleware records request count and latency per route
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the final status before recording
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			path := c.Path()

			HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
			HttpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}

// Handler exposes registered metrics for scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func newHistogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: prometheus.DefBuckets}, labels)
}
