//revive:disable:var-naming
//revive:disable:exported
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kvchan"

// Prometheus exposes application metrics and can be injected into the channel.
// It implements internal/service.Metrics through method set compatibility,
// without importing that package.
type Prometheus struct {
	sessionOpenedTotal *prometheus.CounterVec
	sessionClosedTotal *prometheus.CounterVec
	sessionsOpen       *prometheus.GaugeVec
	commandTotal       *prometheus.CounterVec
	commandDuration    *prometheus.HistogramVec
	readTotal          *prometheus.CounterVec
	storeEntries       *prometheus.GaugeVec
}

func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Prometheus{
		sessionOpenedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "sessions_opened_total",
				Help:      "Total number of channel sessions opened.",
			},
			[]string{"node_id"},
		),
		sessionClosedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "sessions_closed_total",
				Help:      "Channel sessions closed, by reason (client, idle, shutdown).",
			},
			[]string{"node_id", "reason"},
		),
		sessionsOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "sessions_open",
				Help:      "Number of currently open channel sessions.",
			},
			[]string{"node_id"},
		),
		commandTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "commands_total",
				Help:      "Commands written to the channel by command and result (ok, hit, miss, or an error reason).",
			},
			[]string{"node_id", "command", "result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "command_duration_seconds",
				Help:      "Time spent parsing and executing one written command.",
				Buckets:   []float64{0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
			},
			[]string{"node_id", "command"},
		),
		readTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "reads_total",
				Help:      "Channel reads by result (value, empty, error).",
			},
			[]string{"node_id", "result"},
		),
		storeEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "entries",
				Help:      "Number of entries held in the store.",
			},
			[]string{"node_id"},
		),
	}

	if err := m.register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Prometheus) register(reg prometheus.Registerer) error {
	if err := registerOrReuseCounterVec(reg, &m.sessionOpenedTotal); err != nil {
		return fmt.Errorf("register channel sessions opened counter: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.sessionClosedTotal); err != nil {
		return fmt.Errorf("register channel sessions closed counter: %w", err)
	}
	if err := registerOrReuseGaugeVec(reg, &m.sessionsOpen); err != nil {
		return fmt.Errorf("register channel sessions open gauge: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.commandTotal); err != nil {
		return fmt.Errorf("register channel command counter: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.commandDuration); err != nil {
		return fmt.Errorf("register channel command duration histogram: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.readTotal); err != nil {
		return fmt.Errorf("register channel read counter: %w", err)
	}
	if err := registerOrReuseGaugeVec(reg, &m.storeEntries); err != nil {
		return fmt.Errorf("register store entries gauge: %w", err)
	}
	return nil
}

func registerOrReuseHistogramVec(reg prometheus.Registerer, c **prometheus.HistogramVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseCounterVec(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseGaugeVec(reg prometheus.Registerer, c **prometheus.GaugeVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func (m *Prometheus) IncSessionOpened(nodeID string) {
	m.sessionOpenedTotal.WithLabelValues(nodeID).Inc()
}

func (m *Prometheus) IncSessionClosed(nodeID, reason string) {
	m.sessionClosedTotal.WithLabelValues(nodeID, reason).Inc()
}

func (m *Prometheus) SetSessionsOpen(nodeID string, n int) {
	if n < 0 {
		n = 0
	}
	m.sessionsOpen.WithLabelValues(nodeID).Set(float64(n))
}

func (m *Prometheus) IncCommand(nodeID, command, result string) {
	m.commandTotal.WithLabelValues(nodeID, command, result).Inc()
}

func (m *Prometheus) ObserveCommandDuration(nodeID, command string, d time.Duration) {
	m.commandDuration.WithLabelValues(nodeID, command).Observe(d.Seconds())
}

func (m *Prometheus) IncRead(nodeID, result string) {
	m.readTotal.WithLabelValues(nodeID, result).Inc()
}

func (m *Prometheus) SetStoreEntries(nodeID string, n int) {
	if n < 0 {
		n = 0
	}
	m.storeEntries.WithLabelValues(nodeID).Set(float64(n))
}
