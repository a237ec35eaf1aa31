// Package metrics описывает счётчики Prometheus сервиса и middleware для HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "school_admin"

// Metrics хранит все метрики сервиса.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	WebhookEventsTotal   *prometheus.CounterVec
	CheckoutsTotal       *prometheus.CounterVec
	PeriodsExtendedTotal prometheus.Counter
	TrialsStartedTotal   prometheus.Counter
	AccessDeniedTotal    prometheus.Counter
	NotificationsTotal   *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Payment gateway notifications by outcome",
			},
			[]string{"result"},
		),
		CheckoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkouts_total",
				Help:      "Checkout sessions by outcome",
			},
			[]string{"result"},
		),
		PeriodsExtendedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_periods_extended_total",
				Help:      "Paid billing periods appended to the ledger",
			},
		),
		TrialsStartedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trials_started_total",
				Help:      "Trials activated",
			},
		),
		AccessDeniedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_denied_total",
				Help:      "Requests to protected pages without trial or paid period",
			},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifications handed to the broker by kind and outcome",
			},
			[]string{"kind", "result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WebhookEventsTotal,
		m.CheckoutsTotal,
		m.PeriodsExtendedTotal,
		m.TrialsStartedTotal,
		m.AccessDeniedTotal,
		m.NotificationsTotal,
	)

	return m
}

// WebhookHandled учитывает обработанный вебхук с итоговым токеном ответа.
func (m *Metrics) WebhookHandled(result string) {
	m.WebhookEventsTotal.WithLabelValues(result).Inc()
}

// CheckoutCreated учитывает попытку создать оплату.
func (m *Metrics) CheckoutCreated(result string) {
	m.CheckoutsTotal.WithLabelValues(result).Inc()
}

// PeriodExtended учитывает новый оплаченный период.
func (m *Metrics) PeriodExtended() {
	m.PeriodsExtendedTotal.Inc()
}

// TrialStarted учитывает активацию пробного периода.
func (m *Metrics) TrialStarted() {
	m.TrialsStartedTotal.Inc()
}

// AccessDenied учитывает отказ в доступе.
func (m *Metrics) AccessDenied() {
	m.AccessDeniedTotal.Inc()
}

// NotificationPublished учитывает публикацию уведомления.
func (m *Metrics) NotificationPublished(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
}

// HTTPMiddleware считает запросы по шаблону маршрута chi.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler отдаёт метрики из registry в формате Prometheus.
func Handler(registry prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
