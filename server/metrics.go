package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "albumshelf_http_requests_total", Help: "HTTP requests served"},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "albumshelf_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RegisterMetrics registers the HTTP collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(httpRequests, httpDuration)
}

// routeLabel uses the mux path template so ids and slugs do not explode the label set.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func observeRequest(r *http.Request, status int, elapsed time.Duration) {
	route := routeLabel(r)
	httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
}
