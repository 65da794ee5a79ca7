package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the engine's collectors on a private registry. There is no
// listener; a run ends by writing the registry to a textfile for the node
// exporter to pick up.
type Metrics struct {
	registry *prometheus.Registry

	commands      *prometheus.CounterVec
	decodeErrors  prometheus.Counter
	fills         prometheus.Counter
	filledShares  prometheus.Counter
	cost          prometheus.Counter
	restingOrders prometheus.Gauge
	restingShares prometheus.Gauge
	published     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askbook_commands_total", Help: "Commands applied, by operation",
		}, []string{"op"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askbook_decode_errors_total", Help: "Input records rejected by the decoder",
		}),
		fills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askbook_fills_total", Help: "Resting orders touched by buys",
		}),
		filledShares: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askbook_filled_shares_total", Help: "Shares bought",
		}),
		cost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askbook_cost_total", Help: "Sum of price times shares over all buys",
		}),
		restingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "askbook_resting_orders", Help: "Orders in the book",
		}),
		restingShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "askbook_resting_shares", Help: "Shares in the book",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askbook_published_total", Help: "Fill events handed to the publisher, by result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.commands,
		m.decodeErrors,
		m.fills,
		m.filledShares,
		m.cost,
		m.restingOrders,
		m.restingShares,
		m.published,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Command(op string) { m.commands.WithLabelValues(op).Inc() }

func (m *Metrics) DecodeError() { m.decodeErrors.Inc() }

// Fill records one fill. Counters only grow, so fills at non-positive
// prices add nothing to the cost.
func (m *Metrics) Fill(size, cost int64) {
	m.fills.Inc()
	m.filledShares.Add(float64(size))
	if cost > 0 {
		m.cost.Add(float64(cost))
	}
}

func (m *Metrics) Book(orders int, shares int64) {
	m.restingOrders.Set(float64(orders))
	m.restingShares.Set(float64(shares))
}

// Published implements broadcaster.Observer.
func (m *Metrics) Published(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.published.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
