package metrics

import (
	"context"
	"math"
	"time"

	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
)

const (
	Namespace = "dwhetl"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Metrics struct {
	statementCounter  *prometheus.CounterVec
	statementDuration *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec
	tableRowsGauge    *prometheus.GaugeVec
	lastSuccessGauge  prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := Metrics{}
	m.statementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "statements_total",
			Help:      "number of executed statements",
		}, []string{"kind", "status"})
	m.statementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "statement_duration_seconds",
			Help:      "execution time of a statement including commit",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"kind"})
	m.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "error_count",
			Help:      "Total error count during the run",
		}, []string{"kind"})
	m.tableRowsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "table_rows",
			Help:      "row count of each star schema table after the run",
		}, []string{"table"})
	m.lastSuccessGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "unix time of the last successful run",
		})
	return &m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.statementCounter,
		m.statementDuration,
		m.errorCounter,
		m.tableRowsGauge,
		m.lastSuccessGauge,
	}
}

func (m *Metrics) RegisterTo(registry prometheus.Registerer) {
	registry.MustRegister(m.collectors()...)
}

func (m *Metrics) UnregisterFrom(registry prometheus.Registerer) {
	for _, c := range m.collectors() {
		registry.Unregister(c)
	}
}

// ObserveStatement records one executed statement. A nil Metrics is a no-op.
func (m *Metrics) ObserveStatement(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusFailed
		AddCounter(m.errorCounter, 1, prometheus.Labels{"kind": kind})
	}
	AddCounter(m.statementCounter, 1, prometheus.Labels{"kind": kind, "status": status})
	m.statementDuration.With(prometheus.Labels{"kind": kind}).Observe(elapsed.Seconds())
}

func (m *Metrics) SetTableRows(table string, rows int64) {
	if m == nil {
		return
	}
	SetGauge(m.tableRowsGauge, float64(rows), prometheus.Labels{"table": table})
}

func (m *Metrics) MarkSuccess(now time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessGauge.Set(float64(now.Unix()))
}

func (m *Metrics) StatementCount(kind, status string) float64 {
	if m == nil {
		return math.NaN()
	}
	return ReadCounter(m.statementCounter, prometheus.Labels{"kind": kind, "status": status})
}

func (m *Metrics) TableRows(table string) float64 {
	if m == nil {
		return math.NaN()
	}
	return ReadGauge(m.tableRowsGauge, prometheus.Labels{"table": table})
}

// Push sends everything gathered by g to a Prometheus Pushgateway. A batch job
// does not live long enough to be scraped.
func Push(ctx context.Context, gatewayURL, job string, g prometheus.Gatherer) error {
	if err := push.New(gatewayURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return errors.Annotatef(err, "failed to push metrics to %s", gatewayURL)
	}
	return nil
}

// ReadCounter reports the current value of the counter for the given labels.
func ReadCounter(counterVec *prometheus.CounterVec, labels prometheus.Labels) float64 {
	if counterVec == nil {
		return math.NaN()
	}
	counter := counterVec.With(labels)
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		return math.NaN()
	}
	return metric.Counter.GetValue()
}

// AddCounter adds v to the counter for the given labels.
func AddCounter(counterVec *prometheus.CounterVec, v float64, labels prometheus.Labels) {
	if counterVec == nil {
		return
	}
	counterVec.With(labels).Add(v)
}

// ReadGauge reports the current value of the gauge for the given labels.
func ReadGauge(gaugeVec *prometheus.GaugeVec, labels prometheus.Labels) float64 {
	if gaugeVec == nil {
		return math.NaN()
	}
	gauge := gaugeVec.With(labels)
	var metric dto.Metric
	if err := gauge.Write(&metric); err != nil {
		return math.NaN()
	}
	return metric.Gauge.GetValue()
}

// SetGauge sets the gauge for the given labels.
func SetGauge(gaugeVec *prometheus.GaugeVec, v float64, labels prometheus.Labels) {
	if gaugeVec == nil {
		return
	}
	gaugeVec.With(labels).Set(v)
}
