// Package api exposes the simulator over HTTP/JSON and a websocket stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/config"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/kb"
)

// Server wires the HTTP routes to the simulation core and the run store.
type Server struct {
	engine   *gin.Engine
	store    *kb.Store
	defaults config.SimulationConfig
	log      logging.Logger

	sims     *observability.SimulationCollector
	http     *observability.HTTPCollector
	upgrader websocket.Upgrader
	now      func() time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the base logger for request logging.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDefaults sets the values used for fields a request leaves out.
func WithDefaults(cfg config.SimulationConfig) Option {
	return func(s *Server) { s.defaults = cfg }
}

// WithSimulationCollector records per-round and per-run metrics.
func WithSimulationCollector(c *observability.SimulationCollector) Option {
	return func(s *Server) { s.sims = c }
}

// WithHTTPCollector records per-request metrics.
func WithHTTPCollector(c *observability.HTTPCollector) Option {
	return func(s *Server) { s.http = c }
}

// NewServer builds the gin engine and registers every route.
func NewServer(store *kb.Store, opts ...Option) *Server {
	if store == nil {
		store = kb.NewStore(0)
	}
	s := &Server{
		engine:   gin.New(),
		store:    store,
		defaults: config.DefaultSimulation(),
		log:      logging.Noop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestIDMiddleware(s.log))
	s.engine.Use(TracingMiddleware())
	if s.http != nil {
		s.engine.Use(s.http.Middleware())
	}

	s.engine.GET("/health", s.healthCheck)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/simulations", s.createSimulation)
		v1.GET("/simulations", s.listSimulations)
		v1.GET("/simulations/stream", s.streamSimulation)
		v1.GET("/simulations/:id", s.getSimulation)
		v1.DELETE("/simulations/:id", s.deleteSimulation)

		v1.POST("/comparisons", s.createComparison)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createSimulation(c *gin.Context) {
	var req SimulationRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	cfg, err := req.Resolve(s.defaults)
	if err != nil {
		writeError(c, err)
		return
	}

	rec, err := s.runAndStore(c.Request.Context(), logging.NewID(), cfg, requestLogger(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", "/api/v1/simulations/"+rec.ID)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listSimulations(c *gin.Context) {
	c.JSON(http.StatusOK, ListResponse{Runs: s.store.List()})
}

func (s *Server) getSimulation(c *gin.Context) {
	rec, err := s.store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteSimulation(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createComparison(c *gin.Context) {
	var req ComparisonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	cfg, err := req.Resolve(s.defaults)
	if err != nil {
		writeError(c, err)
		return
	}

	// Comparisons always report their seed so a table can be reproduced.
	seed := rand.Uint64()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	protocols, err := core.ComparisonProtocols(cfg.Compare)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	log := requestLogger(c)
	opts := []core.Option{core.WithSeed(seed), core.WithLogger(log)}
	if s.sims != nil {
		opts = append(opts, core.WithRoundListener(s.sims.ObserveRound))
	}

	start := s.now()
	table, err := core.RunComparison(ctx, protocols, cfg.Nodes, cfg.Rounds, cfg.PacketsPerRound, cfg.Params(), opts...)
	if s.sims != nil {
		for _, p := range protocols {
			s.sims.ObserveRun(p, time.Since(start), err)
		}
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ComparisonResponse{
		Seed:      seed,
		Nodes:     cfg.Nodes,
		Rounds:    cfg.Rounds,
		Protocols: protocols,
		Results:   table,
	})
}

// runAndStore plays one simulation described by cfg and records it under id.
// Listeners passed in extra run after the metrics collector.
func (s *Server) runAndStore(ctx context.Context, id string, cfg config.SimulationConfig, log logging.Logger, extra ...core.Option) (*kb.RunRecord, error) {
	ctx = logging.ContextWithRunID(ctx, id)

	opts := append(cfg.Options(), core.WithLogger(log))
	if s.sims != nil {
		opts = append(opts, core.WithRoundListener(s.sims.ObserveRound))
	}
	opts = append(opts, extra...)

	start := s.now()
	res, err := core.RunSimulation(ctx, cfg.Protocol, cfg.Nodes, cfg.Rounds, cfg.PacketsPerRound, cfg.Params(), opts...)
	if s.sims != nil {
		s.sims.ObserveRun(cfg.Protocol, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}

	rec := &kb.RunRecord{
		ID:        id,
		CreatedAt: start.UTC(),
		Nodes:     cfg.Nodes,
		Params:    cfg.Params(),
		Result:    res,
	}
	if err := s.store.Add(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// bindOptionalJSON decodes the request body into dst. An empty body
// leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
