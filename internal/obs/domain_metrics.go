package obs

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/pos-register/internal/events"
)

// RegisterMetrics groups register domain collectors.
type RegisterMetrics struct {
	// Open tracks registers currently held in memory.
	Open prometheus.Gauge
	// Transactions counts recorded and voided transactions.
	Transactions *prometheus.CounterVec
	// Units counts purchased units.
	Units prometheus.Counter
	// VoidedUnits counts units removed by voids.
	VoidedUnits prometheus.Counter
	// Discounts counts discount requests by outcome.
	Discounts *prometheus.CounterVec
}

// NewRegisterMetrics initialises and registers register domain collectors.
func NewRegisterMetrics(namespace string, reg prometheus.Registerer) *RegisterMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &RegisterMetrics{
		Open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registers_open",
			Help:      "Number of registers currently open.",
		}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Count of register transactions by outcome.",
		}, []string{"result"}),
		Units: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Count of item units rung up.",
		}),
		VoidedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voided_units_total",
			Help:      "Count of item units removed by voids.",
		}),
		Discounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discounts_total",
			Help:      "Count of discount requests by outcome.",
		}, []string{"result"}),
	}
	mustRegisterCollector(reg, m.Open, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Gauge); ok {
			m.Open = v
		}
	})
	mustRegisterCollector(reg, m.Transactions, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.Transactions = v
		}
	})
	mustRegisterCollector(reg, m.Units, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.Units = v
		}
	})
	mustRegisterCollector(reg, m.VoidedUnits, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.VoidedUnits = v
		}
	})
	mustRegisterCollector(reg, m.Discounts, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.Discounts = v
		}
	})
	return m
}

type quantityPayload struct {
	Quantity int `json:"quantity"`
}

// Notify implements events.Notifier, translating register events into metrics.
func (m *RegisterMetrics) Notify(_ context.Context, event events.Event) error {
	if m == nil {
		return nil
	}
	switch event.Topic {
	case events.TopicRegisterOpened:
		m.Open.Inc()
	case events.TopicRegisterClosed:
		m.Open.Dec()
	case events.TopicItemAdded:
		m.Transactions.WithLabelValues("recorded").Inc()
		var p quantityPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return err
		}
		m.Units.Add(float64(p.Quantity))
	case events.TopicTransactionVoided:
		m.Transactions.WithLabelValues("voided").Inc()
		var p quantityPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return err
		}
		m.VoidedUnits.Add(float64(p.Quantity))
	case events.TopicDiscountApplied:
		m.Discounts.WithLabelValues("applied").Inc()
	case events.TopicDiscountSkipped:
		m.Discounts.WithLabelValues("skipped").Inc()
	}
	return nil
}
