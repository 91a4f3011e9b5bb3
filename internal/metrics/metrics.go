// Package metrics exposes Prometheus instrumentation for the blog.
//
// New builds the collectors on a private registry rather than the global
// default, so each server (and each test) gets its own set.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login and contact outcomes used as label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	Logins          *prometheus.CounterVec // label: result, reason
	Registrations   prometheus.Counter
	PostsCreated    prometheus.Counter
	PostsDeleted    prometheus.Counter
	Comments        prometheus.Counter
	ContactMessages *prometheus.CounterVec // label: result
}

// New creates and registers the blog's collectors on a fresh registry, along
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_logins_total",
			Help: "Login attempts by result and failure reason.",
		}, []string{"result", "reason"}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_registrations_total",
			Help: "Successful registrations.",
		}),
		PostsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_posts_created_total",
			Help: "Blog posts created.",
		}),
		PostsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_posts_deleted_total",
			Help: "Blog posts deleted.",
		}),
		Comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_comments_total",
			Help: "Comments posted.",
		}),
		ContactMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_contact_messages_total",
			Help: "Contact form submissions by delivery result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestDuration,
		m.Logins,
		m.Registrations,
		m.PostsCreated,
		m.PostsDeleted,
		m.Comments,
		m.ContactMessages,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LoginSucceeded and LoginFailed record a login attempt.
func (m *Metrics) LoginSucceeded() {
	m.Logins.WithLabelValues(ResultSuccess, "").Inc()
}

func (m *Metrics) LoginFailed(reason string) {
	m.Logins.WithLabelValues(ResultFailure, reason).Inc()
}

// ContactSent records a contact form delivery attempt.
func (m *Metrics) ContactSent(ok bool) {
	result := ResultSuccess
	if !ok {
		result = ResultFailure
	}
	m.ContactMessages.WithLabelValues(result).Inc()
}

// Middleware observes request duration labelled by method, chi route pattern
// and status. The route pattern ("/post/{id}") keeps label cardinality bounded;
// requests that matched no route are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
