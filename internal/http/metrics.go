package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/intaketriage/internal/http"

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// HTTPMetrics records request counts, latency and in-flight requests per
// route.
type HTTPMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the instruments on the global meter provider.
func NewHTTPMetrics() (*HTTPMetrics, error) {
	return newHTTPMetrics(otel.Meter(httpInstrumentationName))
}

// newHTTPMetrics always returns usable metrics; instruments that failed to
// register are skipped and reported in the error.
func newHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	var m HTTPMetrics
	var err, errs error

	m.requests, err = meter.Int64Counter("intaketriage.http.requests",
		metric.WithDescription("HTTP requests by route, method and status class."),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	// Scoring without the model is a few milliseconds; model calls run to
	// the extraction timeout.
	m.latency, err = meter.Float64Histogram("intaketriage.http.request.duration",
		metric.WithDescription("HTTP request latency by route, method and status class."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60))
	errs = errors.Join(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("intaketriage.http.in_flight",
		metric.WithDescription("HTTP requests being served."),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	return &m, errs
}

// MetricsMiddleware records each request once its handler returns. Handler
// errors are counted with the status the error handler will write.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			start := time.Now()
			err := next(c)

			attrs := metric.WithAttributes(
				attribute.String("http.route", routeLabel(c.Path())),
				attribute.String("http.method", c.Request().Method),
				attribute.String("http.status_class", statusClass(responseStatus(c, err))),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			return err
		}
	}
}

func routeLabel(path string) string {
	if path == "" {
		return unmatchedRoute
	}
	return path
}

func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
