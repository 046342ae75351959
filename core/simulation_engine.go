package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/wsn-simulator/core"

// State is the lifecycle phase of a Simulation.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrSimulationComplete is returned when stepping a finished simulation.
var ErrSimulationComplete = errors.New("simulation already complete")

// ErrSimulationNotComplete is returned when asking for the result of a
// simulation that still has rounds left.
var ErrSimulationNotComplete = errors.New("simulation not complete")

// RoundListener is notified after every round. Listeners passed to
// RunComparison may be called from several goroutines at once.
type RoundListener func(p model.Protocol, m model.RoundMetrics)

// Result is what a finished simulation hands to its caller.
type Result struct {
	Protocol        model.Protocol      `json:"protocol"`
	Seed            uint64              `json:"seed"`
	Rounds          int                 `json:"rounds"`
	PacketsPerRound int                 `json:"packets_per_round"`
	FinalNodes      []*model.SensorNode `json:"final_nodes"`
	FinalEdges      []model.Edge        `json:"final_edges"`
	DeadSeries      []int               `json:"dead_series"`
	EnergySeries    []float64           `json:"energy_series"`
	DeliveredSeries []int               `json:"delivered_series"`
	DeliveredTotal  int                 `json:"delivered_total"`
}

// AliveCount counts live nodes in the final population.
func (r *Result) AliveCount() int {
	alive, _, _ := model.Census(r.FinalNodes)
	return alive
}

// Simulation drives one protocol over a node population round by round.
//
// A Simulation starts Initialized, is Running while rounds remain and turns
// Complete after the last round. It is not safe for concurrent use.
type Simulation struct {
	router  Router
	nodes   []*model.SensorNode
	rounds  int
	packets int
	seed    uint64

	state State
	round int

	lastEdges       []model.Edge
	deadSeries      []int
	energySeries    []float64
	deliveredSeries []int
	deliveredTotal  int

	listeners []RoundListener
	pacer     Pacer
	log       logging.Logger
}

// Option customises a simulation run.
type Option func(*runOptions)

type runOptions struct {
	seed      uint64
	seeded    bool
	listeners []RoundListener
	pacer     Pacer
	log       logging.Logger
}

// WithSeed makes the run reproducible.
func WithSeed(seed uint64) Option {
	return func(o *runOptions) {
		o.seed = seed
		o.seeded = true
	}
}

// WithRoundListener registers a callback invoked after every round.
func WithRoundListener(fn RoundListener) Option {
	return func(o *runOptions) {
		if fn != nil {
			o.listeners = append(o.listeners, fn)
		}
	}
}

// Pacer gates the start of every round after the first.
// timectrl.Pacer implements it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// WithPacer spaces rounds in wall-clock time.
func WithPacer(p Pacer) Option {
	return func(o *runOptions) {
		if p != nil {
			o.pacer = p
		}
	}
}

// WithLogger attaches a structured logger to the run.
func WithLogger(l logging.Logger) Option {
	return func(o *runOptions) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) runOptions {
	o := runOptions{log: logging.Noop()}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = rand.Uint64()
		o.seeded = true
	}
	return o
}

// NewSimulation prepares a run of router over nodes. The simulation takes
// ownership of nodes.
func NewSimulation(router Router, nodes []*model.SensorNode, rounds, packets int, opts ...Option) *Simulation {
	o := buildOptions(opts)
	return &Simulation{
		router:          router,
		nodes:           nodes,
		rounds:          rounds,
		packets:         packets,
		seed:            o.seed,
		state:           StateInitialized,
		deadSeries:      make([]int, 0, rounds),
		energySeries:    make([]float64, 0, rounds),
		deliveredSeries: make([]int, 0, rounds),
		listeners:       o.listeners,
		pacer:           o.pacer,
		log:             o.log.With(logging.String("protocol", router.Protocol().String())),
	}
}

// State returns the current lifecycle phase.
func (s *Simulation) State() State { return s.state }

// Round returns the number of rounds completed so far.
func (s *Simulation) Round() int { return s.round }

// Nodes returns the live node collection. Callers must not mutate it.
func (s *Simulation) Nodes() []*model.SensorNode { return s.nodes }

// Step runs exactly one routing round and records its metrics.
func (s *Simulation) Step() (model.RoundMetrics, error) {
	if s.state == StateComplete || s.round >= s.rounds {
		s.state = StateComplete
		return model.RoundMetrics{}, ErrSimulationComplete
	}
	s.state = StateRunning

	res := s.router.Route(s.nodes, s.packets)
	s.nodes = res.Nodes
	s.lastEdges = res.Edges
	s.round++

	alive, dead, residual := model.Census(s.nodes)
	s.deliveredTotal += res.Delivered
	s.deadSeries = append(s.deadSeries, dead)
	s.energySeries = append(s.energySeries, residual)
	s.deliveredSeries = append(s.deliveredSeries, res.Delivered)

	m := model.RoundMetrics{
		Round:          s.round,
		Delivered:      res.Delivered,
		AliveCount:     alive,
		DeadCount:      dead,
		ResidualEnergy: residual,
	}
	for _, fn := range s.listeners {
		fn(s.router.Protocol(), m)
	}

	if s.round >= s.rounds {
		s.state = StateComplete
	}
	return m, nil
}

// Run steps until every round has been played or ctx is done.
func (s *Simulation) Run(ctx context.Context) (*Result, error) {
	for s.state != StateComplete && s.round < s.rounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.pacer != nil && s.round > 0 {
			if err := s.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}
		m, err := s.Step()
		if err != nil {
			return nil, err
		}
		s.log.Debug(ctx, "round complete",
			logging.Int("round", m.Round),
			logging.Int("delivered", m.Delivered),
			logging.Int("dead", m.DeadCount),
			logging.Float64("residual_energy", m.ResidualEnergy),
		)
	}
	s.state = StateComplete
	return s.Result()
}

// Result returns the run's outputs once the simulation is complete.
func (s *Simulation) Result() (*Result, error) {
	if s.state != StateComplete {
		return nil, ErrSimulationNotComplete
	}
	edges := s.lastEdges
	if edges == nil {
		edges = []model.Edge{}
	}
	return &Result{
		Protocol:        s.router.Protocol(),
		Seed:            s.seed,
		Rounds:          s.rounds,
		PacketsPerRound: s.packets,
		FinalNodes:      s.nodes,
		FinalEdges:      edges,
		DeadSeries:      s.deadSeries,
		EnergySeries:    s.energySeries,
		DeliveredSeries: s.deliveredSeries,
		DeliveredTotal:  s.deliveredTotal,
	}, nil
}

// RunSimulation creates a fresh population of n nodes and plays rounds
// rounds of protocol p over it.
func RunSimulation(ctx context.Context, p model.Protocol, n, rounds, packets int, params Params, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	return runSeeded(ctx, p, n, rounds, packets, params, o)
}

func runSeeded(ctx context.Context, p model.Protocol, n, rounds, packets int, params Params, o runOptions) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Simulation/"+p.String(),
		trace.WithAttributes(
			attribute.String("wsn.protocol", p.String()),
			attribute.Int("wsn.nodes", n),
			attribute.Int("wsn.rounds", rounds),
			attribute.Int("wsn.packets_per_round", packets),
			attribute.Int64("wsn.seed", int64(o.seed)),
		))
	defer span.End()

	rng := newRand(o.seed, uint64(p))
	router, err := NewRouter(p, params, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	nodes := CreatePopulation(n, params.Field, rng)
	sim := NewSimulation(router, nodes, rounds, packets,
		WithSeed(o.seed), WithLogger(o.log), withListeners(o.listeners), WithPacer(o.pacer))

	res, err := sim.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.Warn(ctx, "simulation aborted",
			logging.String("protocol", p.String()),
			logging.Int("rounds_completed", sim.Round()),
			logging.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("wsn.delivered_total", res.DeliveredTotal),
		attribute.Int("wsn.alive_final", res.AliveCount()),
	)
	o.log.Info(ctx, "simulation complete",
		logging.String("protocol", p.String()),
		logging.Int("nodes", n),
		logging.Int("rounds", rounds),
		logging.Int("delivered_total", res.DeliveredTotal),
		logging.Int("alive", res.AliveCount()),
		logging.Any("elapsed", time.Since(start)),
	)
	return res, nil
}

func withListeners(fns []RoundListener) Option {
	return func(o *runOptions) {
		o.listeners = append(o.listeners, fns...)
	}
}
