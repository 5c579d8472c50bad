// Package metrics exposes task activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autokittens"

type Metrics struct {
	reg *prometheus.Registry

	executions  *prometheus.CounterVec
	active      *prometheus.GaugeVec
	captures    *prometheus.GaugeVec
	storeWrites *prometheus.CounterVec
}

// New builds metrics on a private registry so tests and multiple apps do not
// collide on the global one.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executions_total",
			Help:      "Task executions by task and result.",
		}, []string{"task", "result"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_active",
			Help:      "1 when the task is active.",
		}, []string{"task"}),
		captures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_capture_count",
			Help:      "Captures recorded by event-driven tasks.",
		}, []string{"task"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_writes_total",
			Help:      "Settings snapshot writes by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.executions, m.active, m.captures, m.storeWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Executed(task string, err error) {
	m.executions.WithLabelValues(task, result(err)).Inc()
}

func (m *Metrics) SetActive(task string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.active.WithLabelValues(task).Set(v)
}

func (m *Metrics) SetCaptures(task string, n int) {
	m.captures.WithLabelValues(task).Set(float64(n))
}

func (m *Metrics) StoreWrite(err error) {
	m.storeWrites.WithLabelValues(result(err)).Inc()
}

// GaugeFunc registers an extra gauge computed at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
