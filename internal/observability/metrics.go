package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/signalsfoundry/wsn-simulator/model"
)

// SimulationCollector bundles Prometheus metrics describing simulation runs.
// Its ObserveRound method has the core.RoundListener signature and is safe
// for concurrent use, so it can be attached to comparison runs.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	RoundsTotal      *prometheus.CounterVec
	DeliveredPackets *prometheus.CounterVec
	AliveNodes       *prometheus.GaugeVec
	ResidualEnergy   *prometheus.GaugeVec
	RunsTotal        *prometheus.CounterVec
	RunDurations     *prometheus.HistogramVec
}

// NewSimulationCollector registers simulation metrics against reg,
// defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	rounds, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsn_rounds_total",
		Help: "Routing rounds executed, labeled by protocol.",
	}, []string{"protocol"}), "wsn_rounds_total")
	if err != nil {
		return nil, err
	}

	delivered, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsn_delivered_packets_total",
		Help: "Packets delivered to the base station, labeled by protocol.",
	}, []string{"protocol"}), "wsn_delivered_packets_total")
	if err != nil {
		return nil, err
	}

	alive, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wsn_alive_nodes",
		Help: "Alive nodes after the most recent round, labeled by protocol.",
	}, []string{"protocol"}), "wsn_alive_nodes")
	if err != nil {
		return nil, err
	}

	energy, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wsn_residual_energy",
		Help: "Total residual node energy after the most recent round, labeled by protocol.",
	}, []string{"protocol"}), "wsn_residual_energy")
	if err != nil {
		return nil, err
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsn_simulations_total",
		Help: "Simulation runs, labeled by protocol and outcome (complete or aborted).",
	}, []string{"protocol", "outcome"}), "wsn_simulations_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsn_simulation_duration_seconds",
		Help:    "Wall-clock duration of simulation runs in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"protocol"}), "wsn_simulation_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:         gatherer,
		RoundsTotal:      rounds,
		DeliveredPackets: delivered,
		AliveNodes:       alive,
		ResidualEnergy:   energy,
		RunsTotal:        runs,
		RunDurations:     durations,
	}, nil
}

// ObserveRound records the census of one finished round.
func (c *SimulationCollector) ObserveRound(p model.Protocol, m model.RoundMetrics) {
	if c == nil {
		return
	}
	label := p.String()
	c.RoundsTotal.WithLabelValues(label).Inc()
	c.DeliveredPackets.WithLabelValues(label).Add(float64(m.Delivered))
	c.AliveNodes.WithLabelValues(label).Set(float64(m.AliveCount))
	c.ResidualEnergy.WithLabelValues(label).Set(m.ResidualEnergy)
}

// ObserveRun records the outcome and duration of a whole run.
func (c *SimulationCollector) ObserveRun(p model.Protocol, d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "complete"
	if err != nil {
		outcome = "aborted"
	}
	c.RunsTotal.WithLabelValues(p.String(), outcome).Inc()
	c.RunDurations.WithLabelValues(p.String()).Observe(d.Seconds())
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimulationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
