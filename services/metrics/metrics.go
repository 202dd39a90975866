package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "presence"

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "code"})
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	AttendanceBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "attendance_batches_total", Help: "Attendance batches by outcome",
	}, []string{"outcome"})
	AttendanceMarks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "attendance_marks_total", Help: "Attendance marks written",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Requests, RequestDuration, AttendanceBatches, AttendanceMarks, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveBatch counts a recorded attendance batch and, on success, its marks.
func ObserveBatch(marks int, err error) {
	if err != nil {
		AttendanceBatches.WithLabelValues("rejected").Inc()
		return
	}
	AttendanceBatches.WithLabelValues("recorded").Inc()
	AttendanceMarks.Add(float64(marks))
}

// Middleware records the count and latency of requests, labelled by route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err) // resolve the final status code
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			Requests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
