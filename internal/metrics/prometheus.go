package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "userhook"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	queryDuration  *prometheus.HistogramVec
	usersTotal     *prometheus.CounterVec
	usersNotFound  prometheus.Counter
	renderDuration *prometheus.HistogramVec
}

// NewPrometheus creates a PrometheusRecorder and registers its collectors
// with reg.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of database statements, including time queued for a pooled connection.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"statement", "failed"}),
		usersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_users_total",
			Help:      "Users written by the webhook, by operation.",
		}, []string{"operation"}),
		usersNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_not_found_total",
			Help:      "Listings answered with 404 because the table was empty.",
		}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of template rendering.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"failed"}),
	}

	collectors := []prometheus.Collector{r.queryDuration, r.usersTotal, r.usersNotFound, r.renderDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ObserveQuery records a statement duration.
func (r *PrometheusRecorder) ObserveQuery(statement string, duration time.Duration, failed bool) {
	r.queryDuration.WithLabelValues(statement, strconv.FormatBool(failed)).Observe(duration.Seconds())
}

// IncUserCreated increments the created counter.
func (r *PrometheusRecorder) IncUserCreated() {
	r.usersTotal.WithLabelValues("created").Inc()
}

// IncUserUpdated increments the updated counter.
func (r *PrometheusRecorder) IncUserUpdated() {
	r.usersTotal.WithLabelValues("updated").Inc()
}

// IncUsersNotFound increments the empty-listing counter.
func (r *PrometheusRecorder) IncUsersNotFound() {
	r.usersNotFound.Inc()
}

// ObserveRender records a template render duration.
func (r *PrometheusRecorder) ObserveRender(duration time.Duration, failed bool) {
	r.renderDuration.WithLabelValues(strconv.FormatBool(failed)).Observe(duration.Seconds())
}
