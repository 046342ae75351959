package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/config"
	"github.com/signalsfoundry/wsn-simulator/kb"
	"github.com/signalsfoundry/wsn-simulator/model"
)

// RunKnobs are the tunables shared by simulation and comparison requests.
// Omitted fields fall back to the server's defaults.
type RunKnobs struct {
	Nodes           *int     `json:"nodes,omitempty"`
	Rounds          *int     `json:"rounds,omitempty"`
	PacketsPerRound *int     `json:"packets_per_round,omitempty"`
	HardThreshold   *float64 `json:"hard_threshold,omitempty"`
	SoftThreshold   *float64 `json:"soft_threshold,omitempty"`
	Seed            *uint64  `json:"seed,omitempty"`
}

// SimulationRequest asks for a single-protocol run.
type SimulationRequest struct {
	Protocol model.Protocol `json:"protocol,omitempty"`
	RunKnobs
}

// ComparisonRequest asks for a side-by-side run of several protocols. An
// empty protocol list means every comparable protocol.
type ComparisonRequest struct {
	Protocols []model.Protocol `json:"protocols,omitempty"`
	RunKnobs
}

// ComparisonResponse is the table returned by POST /api/v1/comparisons.
type ComparisonResponse struct {
	Seed      uint64                                  `json:"seed"`
	Nodes     int                                     `json:"nodes"`
	Rounds    int                                     `json:"rounds"`
	Protocols []model.Protocol                        `json:"protocols"`
	Results   map[model.Protocol]core.ComparisonEntry `json:"results"`
}

// ListResponse wraps the stored run summaries.
type ListResponse struct {
	Runs []kb.RunSummary `json:"runs"`
}

// StreamMessage is one frame on the websocket stream.
type StreamMessage struct {
	Type     string              `json:"type"`
	RunID    string              `json:"run_id"`
	Protocol model.Protocol      `json:"protocol"`
	Round    *model.RoundMetrics `json:"round,omitempty"`
	Summary  *kb.RunSummary      `json:"summary,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Stream frame types.
const (
	MessageRound  = "round"
	MessageResult = "result"
	MessageError  = "error"
)

func (k RunKnobs) apply(cfg *config.SimulationConfig) {
	if k.Nodes != nil {
		cfg.Nodes = *k.Nodes
	}
	if k.Rounds != nil {
		cfg.Rounds = *k.Rounds
	}
	if k.PacketsPerRound != nil {
		cfg.PacketsPerRound = *k.PacketsPerRound
	}
	if k.HardThreshold != nil {
		cfg.HardThreshold = *k.HardThreshold
	}
	if k.SoftThreshold != nil {
		cfg.SoftThreshold = *k.SoftThreshold
	}
	if k.Seed != nil {
		seed := *k.Seed
		cfg.Seed = &seed
	}
}

// Resolve overlays the request on defaults and validates the result.
func (r SimulationRequest) Resolve(defaults config.SimulationConfig) (config.SimulationConfig, error) {
	cfg := defaults
	if r.Protocol != model.ProtocolUnknown {
		cfg.Protocol = r.Protocol
	}
	r.RunKnobs.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.SimulationConfig{}, err
	}
	return cfg, nil
}

// Resolve overlays the request on defaults and validates the result.
func (r ComparisonRequest) Resolve(defaults config.SimulationConfig) (config.SimulationConfig, error) {
	cfg := defaults
	if len(r.Protocols) > 0 {
		cfg.Compare = append([]model.Protocol(nil), r.Protocols...)
	}
	r.RunKnobs.apply(&cfg)
	if err := cfg.ValidateComparison(); err != nil {
		return config.SimulationConfig{}, err
	}
	return cfg, nil
}

// simulationRequestFromQuery reads the stream endpoint's query string.
// Accepted keys: protocol, nodes, rounds, packets, hard, soft, seed.
func simulationRequestFromQuery(q url.Values) (SimulationRequest, error) {
	var req SimulationRequest
	if v := q.Get("protocol"); v != "" {
		p, err := model.ParseProtocol(v)
		if err != nil {
			return req, err
		}
		req.Protocol = p
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"nodes", &req.Nodes},
		{"rounds", &req.Rounds},
		{"packets", &req.PacketsPerRound},
	}
	for _, f := range ints {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: %s: %v", ErrBadRequest, f.key, err)
		}
		*f.dst = &n
	}

	floats := []struct {
		key string
		dst **float64
	}{
		{"hard", &req.HardThreshold},
		{"soft", &req.SoftThreshold},
	}
	for _, f := range floats {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("%w: %s: %v", ErrBadRequest, f.key, err)
		}
		*f.dst = &x
	}

	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: seed: %v", ErrBadRequest, err)
		}
		req.Seed = &seed
	}
	return req, nil
}
