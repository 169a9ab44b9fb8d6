// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector.  Create it once with New and pass it by
// pointer; a nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ProfileFallbacks *prometheus.CounterVec
	ProfileDuration  prometheus.Histogram
	ProfilePartial   prometheus.Counter
	BookingsCreated  prometheus.Counter
	Checkouts        *prometheus.CounterVec
	SaleTotal        prometheus.Counter
}

// New registers the collectors on reg.  Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartfix_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartfix_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		ProfileFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartfix_profile_section_fallbacks_total",
			Help: "Profile sections replaced by their default value",
		}, []string{"section", "reason"}),

		ProfileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartfix_profile_load_duration_seconds",
			Help:    "Time spent assembling a customer profile",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		ProfilePartial: f.NewCounter(prometheus.CounterOpts{
			Name: "smartfix_profile_partial_total",
			Help: "Profile loads cut short by the load timeout",
		}),

		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "smartfix_bookings_created_total",
			Help: "Bookings submitted through the booking wizard",
		}),

		Checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartfix_pos_checkouts_total",
			Help: "POS checkouts by payment method",
		}, []string{"payment_method"}),

		SaleTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "smartfix_pos_sales_amount_total",
			Help: "Sum of POS sale totals",
		}),
	}
}

// Fallback records a defaulted profile section.
func (m *Metrics) Fallback(section, reason string) {
	if m == nil {
		return
	}
	m.ProfileFallbacks.WithLabelValues(section, reason).Inc()
}

// ObserveProfile records one profile load.
func (m *Metrics) ObserveProfile(d time.Duration, partial bool) {
	if m == nil {
		return
	}
	m.ProfileDuration.Observe(d.Seconds())
	if partial {
		m.ProfilePartial.Inc()
	}
}

// BookingCreated counts a successful wizard submission.
func (m *Metrics) BookingCreated() {
	if m == nil {
		return
	}
	m.BookingsCreated.Inc()
}

// Checkout counts a completed sale.
func (m *Metrics) Checkout(paymentMethod string, total float64) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(paymentMethod).Inc()
	m.SaleTotal.Add(total)
}

// Middleware counts requests per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			m.HTTPRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
