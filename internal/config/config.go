// Package config loads and validates simulator configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// WSN_* environment variables. The command-line front ends apply their
// flags last and call Validate before anything reaches the core.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/model"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig wraps every range or consistency failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownProtocol indicates a protocol name that does not resolve.
	ErrUnknownProtocol = core.ErrUnknownProtocol
	// ErrProtocolNotComparable indicates TEEN (or another excluded
	// protocol) was requested in a comparison.
	ErrProtocolNotComparable = core.ErrProtocolNotComparable
)

// Accepted ranges for the user-facing knobs.
const (
	MinNodes, MaxNodes                 = 10, 150
	MinRounds, MaxRounds               = 5, 80
	MinPackets, MaxPackets             = 1, 10
	MinHardThreshold, MaxHardThreshold = 10, 90
	MinSoftThreshold, MaxSoftThreshold = 1, 20
)

// Config is the full configuration of a simulator process.
type Config struct {
	Simulation SimulationConfig            `yaml:"simulation" json:"simulation"`
	Server     ServerConfig                `yaml:"server" json:"server"`
	Logging    logging.Config              `yaml:"logging" json:"logging"`
	Tracing    observability.TracingConfig `yaml:"tracing" json:"tracing"`
}

// SimulationConfig describes one simulation or comparison request.
type SimulationConfig struct {
	Protocol        model.Protocol   `yaml:"protocol" json:"protocol"`
	Compare         []model.Protocol `yaml:"compare,omitempty" json:"compare,omitempty"`
	Nodes           int              `yaml:"nodes" json:"nodes"`
	Rounds          int              `yaml:"rounds" json:"rounds"`
	PacketsPerRound int              `yaml:"packets_per_round" json:"packets_per_round"`
	HardThreshold   float64          `yaml:"hard_threshold" json:"hard_threshold"`
	SoftThreshold   float64          `yaml:"soft_threshold" json:"soft_threshold"`

	// Seed makes runs reproducible; nil picks a random seed per run.
	Seed *uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	Field       core.Field       `yaml:"field" json:"field"`
	BaseStation model.Point      `yaml:"base_station" json:"base_station"`
	Energy      core.EnergyModel `yaml:"energy" json:"energy"`
}

// ServerConfig configures cmd/wsn-server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	MetricsAddr     string        `yaml:"metrics_addr" json:"metrics_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxStoredRuns   int           `yaml:"max_stored_runs" json:"max_stored_runs"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Simulation: DefaultSimulation(),
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			ShutdownTimeout: 5 * time.Second,
			MaxStoredRuns:   256,
		},
		Logging: logging.Config{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// DefaultSimulation returns the reference simulation settings: 50 nodes,
// 20 rounds, 3 packets per round, LEACH, TEEN thresholds 50/5.
func DefaultSimulation() SimulationConfig {
	p := core.DefaultParams()
	return SimulationConfig{
		Protocol:        model.ProtocolLEACH,
		Nodes:           50,
		Rounds:          20,
		PacketsPerRound: 3,
		HardThreshold:   p.HardThreshold,
		SoftThreshold:   p.SoftThreshold,
		Field:           p.Field,
		BaseStation:     p.BaseStation,
		Energy:          p.Energy,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overrides cfg with WSN_* variables, LOG_LEVEL/LOG_FORMAT and
// the tracing variables understood by observability.ApplyTracingEnv.
func (c *Config) ApplyEnv() error {
	s := &c.Simulation
	if v := os.Getenv("WSN_PROTOCOL"); v != "" {
		p, err := model.ParseProtocol(v)
		if err != nil {
			return fmt.Errorf("WSN_PROTOCOL: %w", err)
		}
		s.Protocol = p
	}
	if v := os.Getenv("WSN_COMPARE"); v != "" {
		ps, err := ParseProtocolList(v)
		if err != nil {
			return fmt.Errorf("WSN_COMPARE: %w", err)
		}
		s.Compare = ps
	}
	ints := []struct {
		env string
		dst *int
	}{
		{"WSN_NODES", &s.Nodes},
		{"WSN_ROUNDS", &s.Rounds},
		{"WSN_PACKETS", &s.PacketsPerRound},
		{"WSN_MAX_STORED_RUNS", &c.Server.MaxStoredRuns},
	}
	for _, e := range ints {
		if v := os.Getenv(e.env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, e.env, v)
			}
			*e.dst = n
		}
	}
	floats := []struct {
		env string
		dst *float64
	}{
		{"WSN_HARD_THRESHOLD", &s.HardThreshold},
		{"WSN_SOFT_THRESHOLD", &s.SoftThreshold},
	}
	for _, e := range floats {
		if v := os.Getenv(e.env); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, e.env, v)
			}
			*e.dst = f
		}
	}
	if v := os.Getenv("WSN_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: WSN_SEED=%q is not an unsigned integer", ErrInvalidConfig, v)
		}
		s.Seed = &seed
	}
	if v := os.Getenv("WSN_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("WSN_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	c.Tracing = observability.ApplyTracingEnv(c.Tracing)
	return nil
}

// ParseProtocolList parses a comma-separated protocol list.
func ParseProtocolList(s string) ([]model.Protocol, error) {
	var out []model.Protocol
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := model.ParseProtocol(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Params converts the settings into the core's routing parameters.
func (s SimulationConfig) Params() core.Params {
	return core.Params{
		Field:         s.Field,
		BaseStation:   s.BaseStation,
		Energy:        s.Energy,
		HardThreshold: s.HardThreshold,
		SoftThreshold: s.SoftThreshold,
	}
}

// Options returns the core run options implied by the settings.
func (s SimulationConfig) Options() []core.Option {
	if s.Seed == nil {
		return nil
	}
	return []core.Option{core.WithSeed(*s.Seed)}
}

// Validate checks a single-protocol simulation request.
func (s SimulationConfig) Validate() error {
	if s.Protocol == model.ProtocolUnknown {
		return fmt.Errorf("%w: protocol is required", ErrUnknownProtocol)
	}
	return s.validateCommon()
}

// ValidateComparison checks a comparison request. TEEN is rejected.
func (s SimulationConfig) ValidateComparison() error {
	for _, p := range s.Compare {
		if p == model.ProtocolUnknown {
			return fmt.Errorf("%w: empty protocol in comparison set", ErrUnknownProtocol)
		}
		if !p.Comparable() {
			return fmt.Errorf("%w: %v", ErrProtocolNotComparable, p)
		}
	}
	return s.validateCommon()
}

func (s SimulationConfig) validateCommon() error {
	var errs []error
	checkInt := func(name string, v, lo, hi int) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Errorf("%s must be in [%d, %d], got %d", name, lo, hi, v))
		}
	}
	checkFloat := func(name string, v, lo, hi float64) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Errorf("%s must be in [%g, %g], got %g", name, lo, hi, v))
		}
	}

	checkInt("nodes", s.Nodes, MinNodes, MaxNodes)
	checkInt("rounds", s.Rounds, MinRounds, MaxRounds)
	checkInt("packets_per_round", s.PacketsPerRound, MinPackets, MaxPackets)
	checkFloat("hard_threshold", s.HardThreshold, MinHardThreshold, MaxHardThreshold)
	checkFloat("soft_threshold", s.SoftThreshold, MinSoftThreshold, MaxSoftThreshold)
	if s.SoftThreshold >= s.HardThreshold {
		errs = append(errs, fmt.Errorf("soft_threshold (%g) must be below hard_threshold (%g)", s.SoftThreshold, s.HardThreshold))
	}
	if s.Field.Width <= 0 || s.Field.Height <= 0 {
		errs = append(errs, fmt.Errorf("field must have positive width and height, got %dx%d", s.Field.Width, s.Field.Height))
	}

	e := s.Energy
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"energy.tx_cost", e.TxCost},
		{"energy.rx_cost", e.RxCost},
		{"energy.rx_factor", e.RxFactor},
	}
	for _, c := range nonNegative {
		if c.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", c.name, c.v))
		}
	}
	divisors := []struct {
		name string
		v    float64
	}{
		{"energy.direct_divisor", e.DirectDivisor},
		{"energy.leach_divisor", e.LEACHDivisor},
		{"energy.pegasis_chain_divisor", e.PEGASISChainDivisor},
		{"energy.pegasis_leader_divisor", e.PEGASISLeaderDivisor},
		{"energy.teen_divisor", e.TEENDivisor},
	}
	for _, c := range divisors {
		if c.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", c.name, c.v))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
