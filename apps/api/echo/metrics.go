package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classwork"

type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	reviews     *prometheus.CounterVec
	submissions prometheus.Counter
}

// newMetrics uses its own registry so that several servers can live in one process (tests).
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Number of handled API requests.",
		}, []string{"method", "path", "code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_transitions_total",
			Help:      "Number of assignment status changes, by new status.",
		}, []string{"status"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_reviews_total",
			Help:      "Number of review updates, by kind.",
		}, []string{"kind"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Number of accepted submissions.",
		}),
	}
	m.registry.MustRegister(m.requests, m.transitions, m.reviews, m.submissions, prometheus.NewGoCollector())
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// middleware counts requests by route.
func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		err := next(ctx)
		code := ctx.Response().Status
		if err != nil {
			code, _, _ = resolveError(err)
		}
		m.requests.WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(code)).Inc()
		return err
	}
}
